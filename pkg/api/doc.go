// Package api defines the wire types of the altar HTTP API.
//
// It holds request and response bodies, structured errors, RSVP state
// transition rules, request validation and identifier checks. The package
// performs no I/O and knows nothing about tenants: every value it describes
// has already been scoped by the storage layer.
//
// Core types:
//   - [Wedding], [Guest], [RSVP], [Event]: resources owned by one tenant
//   - [SignupRequest]: creates a tenant and its wedding in one step
//   - [Dashboard]: aggregate counts for the couple's overview page
//   - [APIError]: Structured error with type, code, param, and message
package api
