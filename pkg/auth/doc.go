// Package auth provides pluggable authentication and authorization for altar.
//
// Authentication uses a chain-of-responsibility pattern with three-outcome
// voting: each authenticator returns Yes (principal found), No (credentials
// invalid), or Abstain (can't handle). A configurable default voter decides
// when all authenticators abstain.
//
// Auth is implemented as HTTP middleware, keeping it decoupled from handler
// logic. The middleware establishes the tenant scope of the request: a
// couple principal runs inside its tenant's scope, an admin principal runs
// with no scope and therefore sees every tenant.
package auth
