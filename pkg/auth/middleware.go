package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/altarhq/altar/pkg/observability"
	"github.com/altarhq/altar/pkg/tenancy"
)

// Middleware creates HTTP middleware from an AuthChain and optional RateLimiter.
// It checks the bypass list, runs authentication, optionally enforces rate
// limits, and establishes the tenant scope of the request.
//
// Bypass entries ending in "/" match every path below them.
func Middleware(chain *AuthChain, limiter RateLimiter, bypassEndpoints []string) func(http.Handler) http.Handler {
	bypass := make(map[string]bool, len(bypassEndpoints))
	var prefixes []string
	for _, ep := range bypassEndpoints {
		if strings.HasSuffix(ep, "/") {
			prefixes = append(prefixes, ep)
			continue
		}
		bypass[ep] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Check bypass list.
			if bypass[r.URL.Path] || hasAnyPrefix(r.URL.Path, prefixes) {
				next.ServeHTTP(w, r)
				return
			}

			// Run auth chain.
			result := chain.Authenticate(r.Context(), r)

			if result.Decision == No {
				slog.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", result.Err,
				)
				http.Error(w, `{"error":{"type":"invalid_request","message":"authentication required"}}`, http.StatusUnauthorized)
				return
			}

			if result.Decision != Yes || result.Principal == nil {
				http.Error(w, `{"error":{"type":"invalid_request","message":"authentication required"}}`, http.StatusUnauthorized)
				return
			}

			p := result.Principal

			// Validate principal.
			if p.Subject == "" {
				slog.Error("authenticator returned principal with empty subject")
				http.Error(w, `{"error":{"type":"server_error","message":"internal authentication error"}}`, http.StatusInternalServerError)
				return
			}

			ctx := r.Context()
			switch p.EffectiveRole() {
			case RoleAdmin:
				// No tenant scope: admin operations see all tenants.
			case RoleCouple:
				ctx = tenancy.WithTenant(ctx, strings.TrimSpace(p.TenantID))
				if _, err := tenancy.Require(ctx); err != nil {
					// A couple must never fall through to the unscoped path.
					slog.Error("couple principal has no tenant",
						"subject", p.Subject,
						"error", err,
					)
					http.Error(w, `{"error":{"type":"server_error","message":"internal authentication error"}}`, http.StatusInternalServerError)
					return
				}
			default:
				slog.Warn("unknown principal role", "subject", p.Subject, "role", p.Role)
				http.Error(w, `{"error":{"type":"forbidden","message":"access denied"}}`, http.StatusForbidden)
				return
			}

			slog.Debug("authentication succeeded",
				"subject", p.Subject,
				"role", p.EffectiveRole(),
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			// Rate limiting (if configured).
			if limiter != nil {
				if err := limiter.Allow(ctx, p); err != nil {
					slog.Warn("rate limit exceeded",
						"subject", p.Subject,
						"tier", p.ServiceTier,
					)
					observability.RateLimitRejectedTotal.WithLabelValues(p.EffectiveRole()).Inc()
					http.Error(w, `{"error":{"type":"too_many_requests","message":"rate limit exceeded"}}`, http.StatusTooManyRequests)
					return
				}
			}

			ctx = SetPrincipal(ctx, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests whose principal is not an admin.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !PrincipalFromContext(r.Context()).IsAdmin() {
			http.Error(w, `{"error":{"type":"forbidden","message":"access denied"}}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// DefaultBypassEndpoints lists endpoints that skip authentication: probes,
// metrics, signup and the public wedding sites.
var DefaultBypassEndpoints = []string{"/healthz", "/readyz", "/metrics", "/v1/signup", "/site/"}
