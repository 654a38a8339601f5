// Package scoped implements tenant isolation as a decorator over a
// storage.Client.
//
// The tenant comes from the context (tenancy.WithTenant / tenancy.Run).
// With a tenant present, every operation on a tenant-owned model is
// constrained to rows owned by that tenant:
//
//   - FindMany and Count get the model's ownership condition appended.
//   - FindUnique fetches the row and then checks its owner; a row of
//     another tenant is reported as storage.ErrNotFound.
//   - Create does not inject the tenant. It verifies that the owning tenant
//     column, or the referenced parent row, belongs to the active tenant.
//   - UpdateMany and DeleteMany get the ownership condition appended, so
//     rows of other tenants are affected zero times.
//
// Without a tenant in the context the client passes operations through
// unchanged. This is the administrative bypass used by signup, host
// resolution and back-office tooling.
//
// Mismatches never produce a distinct error: they look exactly like
// missing rows.
package scoped

import (
	"context"
	"errors"
	"fmt"

	"github.com/altarhq/altar/pkg/debug"
	"github.com/altarhq/altar/pkg/model"
	"github.com/altarhq/altar/pkg/observability"
	"github.com/altarhq/altar/pkg/storage"
	"github.com/altarhq/altar/pkg/tenancy"
)

// Operation names used in metrics and logs.
const (
	OpFindMany   = "find_many"
	OpFindUnique = "find_unique"
	OpCount      = "count"
	OpCreate     = "create"
	OpUpdateMany = "update_many"
	OpDeleteMany = "delete_many"
)

// Tenancy modes reported in altar_storage_operations_total.
const (
	ModeScoped = "scoped"
	ModeBypass = "bypass"
	ModeGlobal = "global"
)

// Client is a tenant-scoping storage.Client.
type Client struct {
	inner    storage.Client
	registry *model.Registry
}

// Ensure Client implements storage.Client at compile time.
var _ storage.Client = (*Client)(nil)

// New wraps inner. Only models present in registry may be used through the
// returned client.
func New(inner storage.Client, registry *model.Registry) *Client {
	return &Client{inner: inner, registry: registry}
}

// Inner returns the wrapped, unscoped client.
func (c *Client) Inner() storage.Client {
	return c.inner
}

// OwnerFilter returns the condition that restricts m to rows owned by
// tenantID. Parent-owned models nest one Related condition per hop. Global
// models return nil.
func OwnerFilter(m *model.Model, tenantID string) storage.Filter {
	switch m.Owner.Kind {
	case model.Self:
		return storage.Filter{storage.Eq{Column: m.Key(), Value: tenantID}}
	case model.Direct:
		return storage.Filter{storage.Eq{Column: m.Owner.Column, Value: tenantID}}
	case model.Parent:
		return storage.Filter{storage.Related{
			Column: m.Owner.Column,
			Parent: m.Owner.Parent,
			Where:  OwnerFilter(m.Owner.Parent, tenantID),
		}}
	default:
		return nil
	}
}

// scope determines how op on m is handled for ctx and records the decision.
// tenantID is empty unless mode is ModeScoped.
func (c *Client) scope(ctx context.Context, m *model.Model, op string) (tenantID, mode string, err error) {
	if m == nil || !c.registry.Contains(m) {
		name := "<nil>"
		if m != nil {
			name = m.Name
		}
		return "", "", fmt.Errorf("%w: %s", storage.ErrUnknownModel, name)
	}

	switch id, ok := tenancy.FromContext(ctx); {
	case !m.TenantOwned():
		mode = ModeGlobal
	case ok:
		tenantID, mode = id, ModeScoped
	default:
		mode = ModeBypass
	}

	observability.StorageOperationsTotal.WithLabelValues(m.Name, op, mode).Inc()
	debug.Trace(ctx, "storage", "storage operation", "model", m.Name, "op", op, "mode", mode)
	return tenantID, mode, nil
}

// deny records a cross-tenant access. The foreign owner is never logged.
func (c *Client) deny(ctx context.Context, m *model.Model, op string) {
	observability.TenantDenialsTotal.WithLabelValues(m.Name, op).Inc()
	debug.LogContext(ctx, "tenancy", "cross-tenant access collapsed to not found", "model", m.Name, "op", op)
}

func (c *Client) FindMany(ctx context.Context, m *model.Model, q storage.Query) ([]storage.Record, error) {
	tenantID, mode, err := c.scope(ctx, m, OpFindMany)
	if err != nil {
		return nil, err
	}
	if mode == ModeScoped {
		q.Where = q.Where.And(OwnerFilter(m, tenantID)...)
	}
	return c.inner.FindMany(ctx, m, q)
}

func (c *Client) FindUnique(ctx context.Context, m *model.Model, id string) (storage.Record, error) {
	tenantID, mode, err := c.scope(ctx, m, OpFindUnique)
	if err != nil {
		return nil, err
	}

	rec, err := c.inner.FindUnique(ctx, m, id)
	if err != nil || mode != ModeScoped {
		return rec, err
	}

	owner, err := c.ownerOf(ctx, m, rec)
	if errors.Is(err, storage.ErrNotFound) {
		// Orphaned chain: no tenant can see it.
		c.deny(ctx, m, OpFindUnique)
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if owner != tenantID {
		c.deny(ctx, m, OpFindUnique)
		return nil, storage.ErrNotFound
	}
	return rec, nil
}

// ownerOf resolves the tenant of rec, walking parent rows through the
// inner client so the lookups themselves are not filtered.
func (c *Client) ownerOf(ctx context.Context, m *model.Model, rec storage.Record) (string, error) {
	for {
		switch m.Owner.Kind {
		case model.Self:
			return rec.String(m.Key()), nil
		case model.Direct:
			return rec.String(m.Owner.Column), nil
		case model.Parent:
			fk := rec.String(m.Owner.Column)
			if fk == "" {
				return "", storage.ErrNotFound
			}
			parent, err := c.inner.FindUnique(ctx, m.Owner.Parent, fk)
			if err != nil {
				return "", err
			}
			m, rec = m.Owner.Parent, parent
		default:
			return "", fmt.Errorf("%w: %s is not tenant-owned", storage.ErrUnknownModel, m.Name)
		}
	}
}

func (c *Client) Count(ctx context.Context, m *model.Model, where storage.Filter) (int64, error) {
	tenantID, mode, err := c.scope(ctx, m, OpCount)
	if err != nil {
		return 0, err
	}
	if mode == ModeScoped {
		where = where.And(OwnerFilter(m, tenantID)...)
	}
	return c.inner.Count(ctx, m, where)
}

// Create never adds a tenant id to rec. In scope, it rejects records that
// would belong to another tenant with storage.ErrNotFound, as if the
// referenced parent did not exist.
func (c *Client) Create(ctx context.Context, m *model.Model, rec storage.Record) (storage.Record, error) {
	tenantID, mode, err := c.scope(ctx, m, OpCreate)
	if err != nil {
		return nil, err
	}

	if m.Owner.Kind == model.Direct || m.Owner.Kind == model.Parent {
		if rec.String(m.Owner.Column) == "" {
			return nil, fmt.Errorf("%w: %s.%s", storage.ErrMissingOwner, m.Name, m.Owner.Column)
		}
	}

	if mode == ModeScoped {
		visible := true
		switch m.Owner.Kind {
		case model.Self:
			// A scoped caller cannot create another tenant.
			visible = rec.String(m.Key()) == tenantID
		case model.Direct:
			visible = rec.String(m.Owner.Column) == tenantID
		case model.Parent:
			_, err := c.FindUnique(ctx, m.Owner.Parent, rec.String(m.Owner.Column))
			switch {
			case errors.Is(err, storage.ErrNotFound):
				visible = false
			case err != nil:
				return nil, err
			}
		}
		if !visible {
			c.deny(ctx, m, OpCreate)
			return nil, storage.ErrNotFound
		}
	}

	return c.inner.Create(ctx, m, rec)
}

// UpdateMany rejects changes to immutable columns (including the ownership
// column) in every mode.
func (c *Client) UpdateMany(ctx context.Context, m *model.Model, where storage.Filter, set storage.Record) (int64, error) {
	tenantID, mode, err := c.scope(ctx, m, OpUpdateMany)
	if err != nil {
		return 0, err
	}
	if err := storage.CheckMutable(m, set); err != nil {
		return 0, err
	}
	if mode != ModeScoped {
		return c.inner.UpdateMany(ctx, m, where, set)
	}

	n, err := c.inner.UpdateMany(ctx, m, where.And(OwnerFilter(m, tenantID)...), set)
	if err == nil && n == 0 {
		c.checkDenied(ctx, m, OpUpdateMany, where)
	}
	return n, err
}

func (c *Client) DeleteMany(ctx context.Context, m *model.Model, where storage.Filter) (int64, error) {
	tenantID, mode, err := c.scope(ctx, m, OpDeleteMany)
	if err != nil {
		return 0, err
	}
	if mode != ModeScoped {
		return c.inner.DeleteMany(ctx, m, where)
	}

	n, err := c.inner.DeleteMany(ctx, m, where.And(OwnerFilter(m, tenantID)...))
	if err == nil && n == 0 {
		c.checkDenied(ctx, m, OpDeleteMany, where)
	}
	return n, err
}

// checkDenied records a denial when a scoped write matched nothing but
// the unscoped match would have touched rows.
func (c *Client) checkDenied(ctx context.Context, m *model.Model, op string, where storage.Filter) {
	n, err := c.inner.Count(ctx, m, where)
	if err == nil && n > 0 {
		c.deny(ctx, m, op)
	}
}

// Transaction runs fn with a scoped client bound to the transaction. The
// tenant scope of ctx applies inside fn.
func (c *Client) Transaction(ctx context.Context, fn func(ctx context.Context, tx storage.Client) error) error {
	return c.inner.Transaction(ctx, func(ctx context.Context, tx storage.Client) error {
		return fn(ctx, New(tx, c.registry))
	})
}

func (c *Client) HealthCheck(ctx context.Context) error {
	return c.inner.HealthCheck(ctx)
}

func (c *Client) Close() error {
	return c.inner.Close()
}
