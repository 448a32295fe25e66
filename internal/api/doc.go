// Package api holds the HTTP edge helpers shared by the gateway handlers and middleware.
//
// Every reply the gateway sends is shaped like an invoice.Result. Errors that escape
// the workflow (undecodable bodies, oversized requests, rate limiting) are mapped to a
// status code and an ERROR result by RespondWithError. Workflow outcomes, including
// ERROR outcomes, are sent with status 200 by RespondWithResult.
package api
