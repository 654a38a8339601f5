package auth

import (
	"context"
	"errors"
	"net/http"
)

// AuthDecision represents the three possible outcomes of authentication.
type AuthDecision int

const (
	// Yes means credentials are valid. The chain stops and the principal is used.
	Yes AuthDecision = iota

	// No means credentials are present but invalid. The chain stops and the
	// request is rejected.
	No

	// Abstain means this authenticator cannot handle the credentials type.
	// The chain continues to the next authenticator.
	Abstain
)

// AuthResult carries the outcome of an authentication attempt.
type AuthResult struct {
	Decision  AuthDecision
	Principal *Principal // populated only when Decision == Yes
	Err       error      // populated only when Decision == No
}

// Roles a principal can hold.
const (
	// RoleCouple is a wedding owner. Always bound to exactly one tenant.
	RoleCouple = "couple"

	// RoleAdmin is platform staff. Never bound to a tenant; requests run
	// without tenant scope.
	RoleAdmin = "admin"
)

// Principal represents an authenticated caller.
type Principal struct {
	// Subject is the unique identifier (required, non-empty).
	Subject string

	// Role is RoleCouple or RoleAdmin. Empty is treated as RoleCouple.
	Role string

	// TenantID is the tenant a couple principal belongs to.
	TenantID string

	// ServiceTier determines rate limits.
	ServiceTier string

	// Scopes lists the authorization scopes granted.
	Scopes []string

	// Metadata carries auth-provider-specific data.
	Metadata map[string]string
}

// EffectiveRole returns the principal's role, defaulting to RoleCouple.
func (p *Principal) EffectiveRole() string {
	if p == nil {
		return ""
	}
	if p.Role == "" {
		return RoleCouple
	}
	return p.Role
}

// IsAdmin reports whether p is platform staff.
func (p *Principal) IsAdmin() bool {
	return p.EffectiveRole() == RoleAdmin
}

// Authenticator examines request credentials and returns a three-outcome vote.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) AuthResult
}

// Sentinel errors.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrTooManyRequests = errors.New("rate limit exceeded")
)

// AuthChain evaluates authenticators in order using three-outcome voting.
type AuthChain struct {
	// Authenticators are evaluated left to right.
	Authenticators []Authenticator

	// DefaultDecision is used when all authenticators abstain.
	// Use Yes for local development only: the anonymous principal is an
	// admin and sees every tenant.
	DefaultDecision AuthDecision
}

// Authenticate runs the chain. Stops on the first Yes or No.
// If all abstain, returns the default decision.
func (c *AuthChain) Authenticate(ctx context.Context, r *http.Request) AuthResult {
	for _, authn := range c.Authenticators {
		result := authn.Authenticate(ctx, r)
		if result.Decision != Abstain {
			return result
		}
	}

	// All abstained: use default.
	if c.DefaultDecision == Yes {
		return AuthResult{
			Decision:  Yes,
			Principal: &Principal{Subject: "anonymous", Role: RoleAdmin, ServiceTier: "default"},
		}
	}

	return AuthResult{
		Decision: No,
		Err:      ErrUnauthenticated,
	}
}
