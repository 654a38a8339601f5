package storage

import (
	"context"

	"github.com/altarhq/altar/pkg/model"
)

// Query selects records for FindMany.
type Query struct {
	Where   Filter
	OrderBy string // column name; empty keeps backend order
	Desc    bool
	Limit   int // 0 = no limit
	Offset  int
}

// Client is the data-access contract used by every handler. The scoped
// implementation wraps a backend and applies tenant isolation.
type Client interface {
	// FindMany returns the records of m matching q.
	FindMany(ctx context.Context, m *model.Model, q Query) ([]Record, error)

	// FindUnique returns the record of m with the given primary key, or
	// ErrNotFound.
	FindUnique(ctx context.Context, m *model.Model, id string) (Record, error)

	// Count returns the number of records of m matching where.
	Count(ctx context.Context, m *model.Model, where Filter) (int64, error)

	// Create inserts rec and returns the stored record, including a
	// generated primary key and created_at when those were unset.
	Create(ctx context.Context, m *model.Model, rec Record) (Record, error)

	// UpdateMany applies set to every record matching where and returns
	// the number of affected records.
	UpdateMany(ctx context.Context, m *model.Model, where Filter, set Record) (int64, error)

	// DeleteMany removes every record matching where and returns the
	// number of affected records.
	DeleteMany(ctx context.Context, m *model.Model, where Filter) (int64, error)

	// Transaction runs fn against a client bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	Transaction(ctx context.Context, fn func(ctx context.Context, tx Client) error) error

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Update applies set to the record of m with the given key.
func Update(ctx context.Context, c Client, m *model.Model, id string, set Record) (int64, error) {
	return c.UpdateMany(ctx, m, Filter{Eq{Column: m.Key(), Value: id}}, set)
}

// Delete removes the record of m with the given key.
func Delete(ctx context.Context, c Client, m *model.Model, id string) (int64, error) {
	return c.DeleteMany(ctx, m, Filter{Eq{Column: m.Key(), Value: id}})
}
