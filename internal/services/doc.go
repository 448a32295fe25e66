// Package services builds the collaborators of the submission workflow from configuration.
//
// It selects the idempotency store (redis, postgres or in-process), opens the
// connections it needs and wires the certificate resolver, document generator,
// signing client and SRI SOAP client into a workflow.Workflow.
//
// To add a new idempotency backend:
//  1. Implement idempotency.Store (and idempotency.Sweeper if entries need pruning)
//  2. Add a case for it in newSharedStore() based on CACHE_BACKEND
package services
