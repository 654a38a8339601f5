// Package sqlite provides an embedded SQLite implementation of
// storage.Client built on sqlx and mattn/go-sqlite3. It backs single-node
// deployments and in-process tests.
package sqlite

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/altarhq/altar/pkg/model"
	"github.com/altarhq/altar/pkg/storage"
	"github.com/altarhq/altar/pkg/storage/sqlfilter"
)

var builder = sqlfilter.New(sq.Question)

// Config holds SQLite settings.
type Config struct {
	// Path is the database file, or ":memory:" for a private in-memory
	// database.
	Path string

	// MigrateOnStart runs schema migrations automatically at open.
	MigrateOnStart bool
}

// conn implements the data operations against a DB or a transaction.
type conn struct {
	q sqlx.ExtContext
}

// Store is a SQLite-backed storage.Client.
type Store struct {
	conn
	db *sqlx.DB
}

// Ensure Store implements storage.Client at compile time.
var _ storage.Client = (*Store)(nil)

// Open creates or opens the database at cfg.Path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - a 5-second busy timeout for lock contention
//   - foreign key enforcement
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		cfg.Path = ":memory:"
	}

	db, err := sqlx.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite only supports one writer at a time. A single connection also
	// keeps a ":memory:" database alive for the life of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("executing %q: %w", pragma, err)
		}
	}

	s := &Store{conn: conn{q: db}, db: db}

	if cfg.MigrateOnStart {
		if _, err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}
	return s, nil
}

// Transaction runs fn in a database transaction.
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context, tx storage.Client) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(ctx, &txConn{conn{q: tx}}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// txConn is the client handed to Transaction callbacks.
type txConn struct {
	conn
}

// Transaction on a transaction client runs fn in the same transaction.
func (t *txConn) Transaction(ctx context.Context, fn func(ctx context.Context, tx storage.Client) error) error {
	return fn(ctx, t)
}

func (t *txConn) HealthCheck(_ context.Context) error { return nil }
func (t *txConn) Close() error                        { return nil }

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
	if err := sqlx.GetContext(ctx, c.q, &n, query, args...); err != nil {
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
	if _, err := c.q.ExecContext(ctx, query, args...); err != nil {
		if isConstraintViolation(err) {
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
	res, err := c.q.ExecContext(ctx, query, args...)
	if err != nil {
		if isConstraintViolation(err) {
			return 0, fmt.Errorf("%w: %s", storage.ErrConflict, m.Name)
		}
		return 0, fmt.Errorf("updating %s: %w", m.Name, err)
	}
	return res.RowsAffected()
}

func (c *conn) DeleteMany(ctx context.Context, m *model.Model, where storage.Filter) (int64, error) {
	query, args, err := builder.Delete(m, where)
	if err != nil {
		return 0, err
	}
	res, err := c.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting %s: %w", m.Name, err)
	}
	return res.RowsAffected()
}

func (c *conn) collect(ctx context.Context, m *model.Model, query string, args []any) ([]storage.Record, error) {
	rows, err := c.q.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", m.Table, err)
	}
	defer rows.Close()

	var out []storage.Record
	for rows.Next() {
		row := make(map[string]any, len(m.Columns))
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", m.Table, err)
		}
		out = append(out, storage.Record(row).Normalize())
	}
	return out, rows.Err()
}

// isConstraintViolation reports unique and primary key violations.
func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
