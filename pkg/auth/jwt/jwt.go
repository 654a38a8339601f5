// Package jwt authenticates bearer tokens signed by an external identity
// provider. Signing keys come from the provider's JWKS endpoint.
//
// A token maps to an auth.Principal: the role claim selects couple or
// admin, and a couple token must name its tenant.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/altarhq/altar/pkg/auth"
)

// Config holds the JWT authenticator configuration.
type Config struct {
	// Issuer is the expected iss claim. Empty disables the check.
	Issuer string

	// Audience is the expected aud claim. Empty disables the check.
	Audience string

	// JWKSURL is where the signing keys are published.
	JWKSURL string

	// Claim names. Defaults: "sub", "role", "tenant_id", "scope".
	UserClaim   string
	RoleClaim   string
	TenantClaim string
	ScopesClaim string

	// CacheTTL bounds how long fetched keys are trusted. Default: 1 hour.
	CacheTTL time.Duration

	// HTTPClient fetches the JWKS. Default: http.DefaultClient.
	HTTPClient *http.Client
}

func (c *Config) applyDefaults() {
	if c.UserClaim == "" {
		c.UserClaim = "sub"
	}
	if c.RoleClaim == "" {
		c.RoleClaim = "role"
	}
	if c.TenantClaim == "" {
		c.TenantClaim = "tenant_id"
	}
	if c.ScopesClaim == "" {
		c.ScopesClaim = "scope"
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Hour
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
}

// Authenticator validates RS256/384/512 bearer tokens.
type Authenticator struct {
	config Config
	keys   *keySet
	parser *jwtlib.Parser
}

var _ auth.Authenticator = (*Authenticator)(nil)

// New creates a JWT authenticator. Keys are fetched lazily on the first
// token that needs them.
func New(cfg Config) *Authenticator {
	cfg.applyDefaults()

	opts := []jwtlib.ParserOption{jwtlib.WithValidMethods([]string{"RS256", "RS384", "RS512"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwtlib.WithAudience(cfg.Audience))
	}

	return &Authenticator{
		config: cfg,
		keys:   newKeySet(cfg.JWKSURL, cfg.HTTPClient, cfg.CacheTTL),
		parser: jwtlib.NewParser(opts...),
	}
}

// Authenticate abstains when the request carries no bearer token, votes No
// for any token that fails validation or principal mapping, and Yes
// otherwise.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) auth.AuthResult {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return auth.AuthResult{Decision: auth.Abstain}
	}
	if raw == "" {
		return deny(errors.New("empty bearer token"))
	}

	claims := jwtlib.MapClaims{}
	_, err := a.parser.ParseWithClaims(raw, claims, func(t *jwtlib.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token missing kid header")
		}
		return a.keys.get(ctx, kid)
	})
	if err != nil {
		slog.Debug("JWT validation failed", "error", err)
		return deny(fmt.Errorf("invalid JWT: %w", err))
	}

	p, err := a.principal(claims)
	if err != nil {
		return deny(err)
	}
	return auth.AuthResult{Decision: auth.Yes, Principal: p}
}

// principal maps validated claims to a principal. Tenant binding is
// exclusive: couples need one, admins must not carry one.
func (a *Authenticator) principal(claims jwtlib.MapClaims) (*auth.Principal, error) {
	p := &auth.Principal{
		Subject:  stringClaim(claims, a.config.UserClaim),
		Role:     stringClaim(claims, a.config.RoleClaim),
		TenantID: strings.TrimSpace(stringClaim(claims, a.config.TenantClaim)),
		Scopes:   scopes(claims[a.config.ScopesClaim]),
	}

	switch {
	case p.Subject == "":
		return nil, fmt.Errorf("JWT missing %q claim", a.config.UserClaim)
	case p.IsAdmin() && p.TenantID != "":
		return nil, fmt.Errorf("admin JWT must not carry %q claim", a.config.TenantClaim)
	case !p.IsAdmin() && p.TenantID == "":
		return nil, fmt.Errorf("JWT missing %q claim", a.config.TenantClaim)
	}
	return p, nil
}

func deny(err error) auth.AuthResult {
	return auth.AuthResult{Decision: auth.No, Err: err}
}

func stringClaim(claims jwtlib.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}

// scopes accepts a space separated string or a JSON array of strings.
func scopes(v any) []string {
	var out []string
	switch v := v.(type) {
	case string:
		out = strings.Fields(v)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
