// Package sri talks to the SRI offline web services and interprets their replies.
//
// The services have returned the same logical field under several nestings across
// versions. Rather than chaining optional lookups, each field has an ordered list of
// candidate paths (see reception.go and authorization.go) tried in sequence.
//
// Replies are decoded into a generic Reply tree so the interpretation code works the
// same for SOAP responses and for JSON fixtures used in tests.
package sri
