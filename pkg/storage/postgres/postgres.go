// Package postgres provides a PostgreSQL implementation of storage.Client.
// It uses pgx/v5 for connection pooling and squirrel (via sqlfilter) for
// statement building.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/altarhq/altar/pkg/model"
	"github.com/altarhq/altar/pkg/storage"
	"github.com/altarhq/altar/pkg/storage/sqlfilter"
)

var builder = sqlfilter.New(sq.Dollar)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// conn implements the data operations against a pool or a transaction.
type conn struct {
	q querier
}

// Store is a PostgreSQL-backed storage.Client. One pool is shared by all
// tenants.
type Store struct {
	conn
	pool *pgxpool.Pool
}

// Ensure Store implements storage.Client at compile time.
var _ storage.Client = (*Store)(nil)

// Config holds pool and startup settings. Zero pool sizes and lifetime
// fall back to 25 and 5 connections and 5 minutes.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MigrateOnStart  bool
}

func (c Config) poolConfig() (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(c.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	pc.MaxConns = orDefault(c.MaxConns, 25)
	pc.MinConns = min(orDefault(c.MinConns, 5), pc.MaxConns)
	pc.MaxConnLifetime = orDefault(c.MaxConnLifetime, 5*time.Minute)
	return pc, nil
}

func orDefault[T int32 | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

// New connects a pool and verifies it with a ping. Migrations run first
// when MigrateOnStart is set.
func New(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := cfg.poolConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{conn: conn{q: pool}, pool: pool}

	if cfg.MigrateOnStart {
		if _, err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// Transaction runs fn in a database transaction. Nested calls on the
// transaction client use savepoints.
func (c *conn) Transaction(ctx context.Context, fn func(ctx context.Context, tx storage.Client) error) error {
	return pgx.BeginFunc(ctx, c.q, func(tx pgx.Tx) error {
		return fn(ctx, &conn{q: tx})
	})
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// HealthCheck on a transaction client is a no-op.
func (c *conn) HealthCheck(_ context.Context) error { return nil }

// Close on a transaction client is a no-op; the transaction ends when the
// Transaction callback returns.
func (c *conn) Close() error { return nil }

func (c *conn) FindMany(ctx context.Context, m *model.Model, q storage.Query) ([]storage.Record, error) {
	query, args, err := builder.Select(m, q)
	if err != nil {
		return nil, err
	}
	return c.collect(ctx, m, query, args)
}

func (c *conn) FindUnique(ctx context.Context, m *model.Model, id string) (storage.Record, error) {
	query, args, err := builder.SelectByKey(m, id)
	if err != nil {
		return nil, err
	}
	recs, err := c.collect(ctx, m, query, args)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, storage.ErrNotFound
	}
	return recs[0], nil
}

func (c *conn) Count(ctx context.Context, m *model.Model, where storage.Filter) (int64, error) {
	query, args, err := builder.Count(m, where)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := c.q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", m.Table, err)
	}
	return n, nil
}

func (c *conn) Create(ctx context.Context, m *model.Model, rec storage.Record) (storage.Record, error) {
	rec, err := storage.Prepare(m, rec)
	if err != nil {
		return nil, err
	}
	query, args, err := builder.Insert(m, rec)
	if err != nil {
		return nil, err
	}
	if _, err := c.q.Exec(ctx, query, args...); err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrConflict, m.Name)
		}
		return nil, fmt.Errorf("inserting %s: %w", m.Name, err)
	}
	return rec, nil
}

func (c *conn) UpdateMany(ctx context.Context, m *model.Model, where storage.Filter, set storage.Record) (int64, error) {
	if len(set) == 0 {
		return c.Count(ctx, m, where)
	}
	query, args, err := builder.Update(m, where, set.Clone().Normalize())
	if err != nil {
		return 0, err
	}
	tag, err := c.q.Exec(ctx, query, args...)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, fmt.Errorf("%w: %s", storage.ErrConflict, m.Name)
		}
		return 0, fmt.Errorf("updating %s: %w", m.Name, err)
	}
	return tag.RowsAffected(), nil
}

func (c *conn) DeleteMany(ctx context.Context, m *model.Model, where storage.Filter) (int64, error) {
	query, args, err := builder.Delete(m, where)
	if err != nil {
		return 0, err
	}
	tag, err := c.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting %s: %w", m.Name, err)
	}
	return tag.RowsAffected(), nil
}

func (c *conn) collect(ctx context.Context, m *model.Model, query string, args []any) ([]storage.Record, error) {
	rows, err := c.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", m.Table, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", m.Table, err)
	}
	out := make([]storage.Record, 0, len(maps))
	for _, row := range maps {
		out = append(out, storage.Record(row).Normalize())
	}
	return out, nil
}

// isDuplicateKey checks if the error is a PostgreSQL unique violation (23505).
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
