// Package transport defines the service contract and HTTP middleware chain
// for the altar API.
//
// # Service Contract
//
// [Service] is implemented by the wedding domain. Its methods take the
// request context and never a tenant id: the tenant travels in the context,
// placed there by authentication or host resolution, and the storage layer
// applies it.
//
// # Middleware
//
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID) and structured logging via log/slog. Errors are mapped to
// JSON envelopes by [WriteError]: records hidden by tenant scoping surface
// as 404, unique violations as 409, and a request that reaches storage
// without a tenant scope as 500.
package transport
