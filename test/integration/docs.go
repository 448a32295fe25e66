//go:build integration

// Package integration contains end-to-end tests for the SRI gateway.
//
// Postgres and Redis are started with testcontainers. The SRI SOAP services and the
// signing service are replaced by in-process stubs, so the tests exercise the real
// idempotency stores, migrations and HTTP server without reaching the authority.
//
//	go test -tags=integration -v ./test/integration
//
// Set ENABLE_SERVER_LOGS=true to include the server logs in the test output.
package integration
