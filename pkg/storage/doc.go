// Package storage defines the data-access client shared by the storage
// backends (memory, postgres, sqlite) and the tenant interception layer
// (scoped).
//
// Backends operate on Records keyed by column name and never look at the
// tenant scope themselves. Tenant filtering is applied by wrapping a backend
// with scoped.New, which rewrites Filters before they reach the backend.
package storage
