// Package handlers provides the gateway HTTP handlers:
// the invoice emit and status API plus the infrastructure endpoints
// (health, readiness, version, config).
package handlers
