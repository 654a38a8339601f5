// Package tenancy carries the active tenant through a request's call graph.
//
// The tenant travels in the request context, so every blocking call that
// already takes a context.Context picks it up without an explicit parameter.
// Contexts are immutable: a nested Run shadows the outer tenant only for the
// derived context, and goroutines started with a scoped context observe the
// same tenant as their parent.
//
// Absence of a tenant is a valid state (admin code paths run unscoped).
// Code that must never run unscoped calls Require, which reports a missing
// scope as ErrMissingTenantContext.
package tenancy
