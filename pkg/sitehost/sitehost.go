// Package sitehost maps the Host header of a public wedding site request to
// its tenant.
//
// A site is served either on a subdomain of the platform domain
// ({slug}.{base_domain}) or on a verified custom domain. Public requests
// carry no credentials, so the resolved tenant is the only thing that
// scopes their queries.
package sitehost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/altarhq/altar/pkg/api"
	"github.com/altarhq/altar/pkg/debug"
	"github.com/altarhq/altar/pkg/model"
	"github.com/altarhq/altar/pkg/observability"
	"github.com/altarhq/altar/pkg/storage"
	"github.com/altarhq/altar/pkg/tenancy"
	"github.com/altarhq/altar/pkg/transport"
)

// ErrUnknownHost is returned when no tenant serves the host.
var ErrUnknownHost = errors.New("unknown site host")

type entry struct {
	tenantID string
	expires  time.Time
}

// Resolver resolves hosts to tenant ids and caches the result.
type Resolver struct {
	db         storage.Client
	baseDomain string
	ttl        time.Duration
	now        func() time.Time

	mu    sync.RWMutex
	cache map[string]entry
}

// NewResolver creates a Resolver. Lookups run with a context that carries
// no tenant, so db sees every tenant's row. A ttl of zero disables caching.
func NewResolver(db storage.Client, baseDomain string, ttl time.Duration) *Resolver {
	return &Resolver{
		db:         db,
		baseDomain: strings.ToLower(strings.Trim(baseDomain, ".")),
		ttl:        ttl,
		now:        time.Now,
		cache:      make(map[string]entry),
	}
}

// Resolve returns the tenant serving host, or ErrUnknownHost.
func (r *Resolver) Resolve(ctx context.Context, host string) (string, error) {
	host = normalizeHost(host)
	if host == "" {
		observability.SiteHostLookupsTotal.WithLabelValues("unknown").Inc()
		return "", ErrUnknownHost
	}

	if id, ok := r.cached(host); ok {
		observability.SiteHostLookupsTotal.WithLabelValues("hit").Inc()
		return id, nil
	}

	id, err := r.lookup(ctx, host)
	if errors.Is(err, ErrUnknownHost) {
		observability.SiteHostLookupsTotal.WithLabelValues("unknown").Inc()
		return "", err
	}
	if err != nil {
		return "", err
	}

	observability.SiteHostLookupsTotal.WithLabelValues("miss").Inc()
	if r.ttl > 0 {
		r.mu.Lock()
		r.cache[host] = entry{tenantID: id, expires: r.now().Add(r.ttl)}
		r.mu.Unlock()
	}
	return id, nil
}

func (r *Resolver) cached(host string) (string, bool) {
	r.mu.RLock()
	e, ok := r.cache[host]
	r.mu.RUnlock()
	if !ok || !r.now().Before(e.expires) {
		return "", false
	}
	return e.tenantID, true
}

func (r *Resolver) lookup(ctx context.Context, host string) (string, error) {
	ctx = tenancy.WithoutTenant(ctx)

	where := storage.Filter{
		storage.Eq{Column: "custom_domain", Value: host},
		storage.Eq{Column: "domain_verified", Value: true},
	}
	if slug, ok := r.subdomain(host); ok {
		where = storage.Filter{storage.Eq{Column: "slug", Value: slug}}
	}

	recs, err := r.db.FindMany(ctx, model.Tenant, storage.Query{Where: where, Limit: 1})
	if err != nil {
		return "", fmt.Errorf("resolve host: %w", err)
	}
	if len(recs) == 0 {
		debug.Log("tenancy", "site host did not resolve", "host", host)
		return "", ErrUnknownHost
	}
	return recs[0].String("id"), nil
}

// subdomain returns the slug when host is a direct subdomain of the base
// domain.
func (r *Resolver) subdomain(host string) (string, bool) {
	if r.baseDomain == "" {
		return "", false
	}
	slug, ok := strings.CutSuffix(host, "."+r.baseDomain)
	if !ok || slug == "" || strings.Contains(slug, ".") {
		return "", false
	}
	return slug, true
}

// Middleware runs next in the scope of the tenant serving the request host.
// Unknown hosts get 404.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		tenantID, err := r.Resolve(req.Context(), req.Host)
		if errors.Is(err, ErrUnknownHost) {
			transport.WriteAPIError(w, api.NewNotFoundError("site not found"))
			return
		}
		if err != nil {
			slog.ErrorContext(req.Context(), "site host lookup failed", "host", req.Host, "error", err)
			transport.WriteAPIError(w, api.NewServerError("internal server error"))
			return
		}
		next.ServeHTTP(w, req.WithContext(tenancy.WithTenant(req.Context(), tenantID)))
	})
}

func normalizeHost(host string) string {
	host = strings.TrimSpace(strings.ToLower(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}
