// Package wedding implements the altar domain operations on top of a
// tenant-scoped storage client.
//
// Nothing in this package filters by tenant. Handlers call the service with
// the request context; the scoped client appends ownership conditions,
// hides foreign rows and rejects foreign parents. Operations that must only
// run for a couple call tenancy.Require first so that a missing scope fails
// loudly instead of reading every tenant's rows.
package wedding
