// Package server provides the HTTP server for the SRI gateway.
//
// the server is configured through environment variables
// (see internal/config/config.go for details)
//
// Routes:
//   - POST /api/v1/invoices/emit and GET /api/v1/invoices/{accessKey}/status (the invoice API)
//   - GET /api/v1/config, /health/live, /health/ready, /version (infrastructure)
//
// handlers are in internal/server/handlers, middleware is in internal/server/middleware
package server
