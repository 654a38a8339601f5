// Package noop provides a no-op authenticator that accepts all requests.
// Used for development and as a default voter in the auth chain.
package noop

import (
	"context"
	"net/http"

	"github.com/altarhq/altar/pkg/auth"
)

// Authenticator always returns Yes. With a zero Principal it yields an
// anonymous admin, which sees every tenant.
type Authenticator struct {
	Principal auth.Principal
}

func (a *Authenticator) Authenticate(_ context.Context, _ *http.Request) auth.AuthResult {
	p := a.Principal
	if p.Subject == "" {
		p = auth.Principal{Subject: "anonymous", Role: auth.RoleAdmin, ServiceTier: "default"}
	}
	return auth.AuthResult{Decision: auth.Yes, Principal: &p}
}
