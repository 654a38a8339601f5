package tenancy

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrMissingTenantContext is returned by Require when no tenant scope is
	// active. It indicates a programming error, not a user error.
	ErrMissingTenantContext = errors.New("missing tenant context")

	// ErrInvalidTenantID is returned when a scope is requested for an empty
	// tenant identifier.
	ErrInvalidTenantID = errors.New("invalid tenant id")
)

// tenantKey is a private type for the tenant context key, preventing
// collisions with other packages.
type tenantKey struct{}

// WithTenant returns a context scoped to tenantID. An empty tenantID
// returns ctx unchanged; callers that need the empty case to fail use Run.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return ctx
	}
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// WithoutTenant returns a context in which no tenant scope is active, even
// if ctx carries one. It is meant for lookups that must span all tenants.
func WithoutTenant(ctx context.Context) context.Context {
	if _, ok := FromContext(ctx); !ok {
		return ctx
	}
	return context.WithValue(ctx, tenantKey{}, "")
}

// FromContext returns the tenant of the nearest enclosing scope.
// The boolean is false outside any scope.
func FromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tenantKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Require returns the active tenant or ErrMissingTenantContext.
func Require(ctx context.Context) (string, error) {
	if id, ok := FromContext(ctx); ok {
		return id, nil
	}
	return "", ErrMissingTenantContext
}

// MustRequire is like Require but panics when no scope is active.
func MustRequire(ctx context.Context) string {
	id, err := Require(ctx)
	if err != nil {
		panic(err)
	}
	return id
}

// Run executes fn with a context scoped to tenantID and returns whatever fn
// returns. The caller's ctx is not modified, so the outer scope (if any) is
// in effect again once Run returns.
func Run[T any](ctx context.Context, tenantID string, fn func(ctx context.Context) (T, error)) (T, error) {
	if strings.TrimSpace(tenantID) == "" {
		var zero T
		return zero, ErrInvalidTenantID
	}
	return fn(WithTenant(ctx, tenantID))
}

// Do is Run for operations without a result.
func Do(ctx context.Context, tenantID string, fn func(ctx context.Context) error) error {
	_, err := Run(ctx, tenantID, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
