// Package memory provides an in-memory implementation of storage.Client
// for testing and lightweight deployments. Records are stored in memory and
// lost when the process restarts.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/altarhq/altar/pkg/model"
	"github.com/altarhq/altar/pkg/storage"
)

// row holds a stored record and its insertion sequence.
type row struct {
	rec storage.Record
	seq uint64
}

// dataset is the unlocked state shared by Store and its transactions.
type dataset struct {
	tables map[string]map[string]*row
	seq    uint64
}

// Store is an in-memory storage.Client. A single RWMutex guards all tables;
// a transaction holds the write lock for its whole duration.
type Store struct {
	mu   sync.RWMutex
	data *dataset
}

// Ensure Store implements storage.Client at compile time.
var _ storage.Client = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{data: &dataset{tables: make(map[string]map[string]*row)}}
}

// FindMany returns copies of the records matching q.
func (s *Store) FindMany(_ context.Context, m *model.Model, q storage.Query) ([]storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.findMany(m, q)
}

// FindUnique returns the record with the given key.
func (s *Store) FindUnique(_ context.Context, m *model.Model, id string) (storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.findUnique(m, id)
}

// Count returns the number of matching records.
func (s *Store) Count(_ context.Context, m *model.Model, where storage.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.count(m, where)
}

// Create inserts a record. Returns storage.ErrConflict when the key or a
// unique column is already taken.
func (s *Store) Create(_ context.Context, m *model.Model, rec storage.Record) (storage.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.create(m, rec)
}

// UpdateMany applies set to every matching record.
func (s *Store) UpdateMany(_ context.Context, m *model.Model, where storage.Filter, set storage.Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.updateMany(m, where, set)
}

// DeleteMany removes every matching record.
func (s *Store) DeleteMany(_ context.Context, m *model.Model, where storage.Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.deleteMany(m, where)
}

// Transaction runs fn while holding the write lock. On error the store is
// restored to its state before fn ran. fn must only use tx; calling the
// Store itself from inside fn deadlocks.
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context, tx storage.Client) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(ctx, &txClient{data: s.data}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// HealthCheck always returns nil for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// txClient operates on the dataset of a Store whose lock is already held.
type txClient struct {
	data *dataset
}

func (t *txClient) FindMany(_ context.Context, m *model.Model, q storage.Query) ([]storage.Record, error) {
	return t.data.findMany(m, q)
}

func (t *txClient) FindUnique(_ context.Context, m *model.Model, id string) (storage.Record, error) {
	return t.data.findUnique(m, id)
}

func (t *txClient) Count(_ context.Context, m *model.Model, where storage.Filter) (int64, error) {
	return t.data.count(m, where)
}

func (t *txClient) Create(_ context.Context, m *model.Model, rec storage.Record) (storage.Record, error) {
	return t.data.create(m, rec)
}

func (t *txClient) UpdateMany(_ context.Context, m *model.Model, where storage.Filter, set storage.Record) (int64, error) {
	return t.data.updateMany(m, where, set)
}

func (t *txClient) DeleteMany(_ context.Context, m *model.Model, where storage.Filter) (int64, error) {
	return t.data.deleteMany(m, where)
}

// Transaction on a transaction client runs fn in the same transaction.
func (t *txClient) Transaction(ctx context.Context, fn func(ctx context.Context, tx storage.Client) error) error {
	return fn(ctx, t)
}

func (t *txClient) HealthCheck(_ context.Context) error { return nil }
func (t *txClient) Close() error                        { return nil }

func (d *dataset) table(m *model.Model) map[string]*row {
	tbl, ok := d.tables[m.Table]
	if !ok {
		tbl = make(map[string]*row)
		d.tables[m.Table] = tbl
	}
	return tbl
}

func (d *dataset) clone() *dataset {
	out := &dataset{tables: make(map[string]map[string]*row, len(d.tables)), seq: d.seq}
	for name, tbl := range d.tables {
		cp := make(map[string]*row, len(tbl))
		for id, r := range tbl {
			cp[id] = &row{rec: r.rec.Clone(), seq: r.seq}
		}
		out.tables[name] = cp
	}
	return out
}

// scan returns the rows of m matching where, in insertion order.
func (d *dataset) scan(m *model.Model, where storage.Filter) ([]*row, error) {
	if err := where.Validate(m); err != nil {
		return nil, err
	}
	var out []*row
	for _, r := range d.table(m) {
		if d.matches(r.rec, where) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out, nil
}

func (d *dataset) matches(rec storage.Record, where storage.Filter) bool {
	for _, c := range where {
		switch c := c.(type) {
		case storage.Eq:
			if !storage.Equal(rec[c.Column], c.Value) {
				return false
			}
		case storage.In:
			if !slices.ContainsFunc(c.Values, func(v any) bool { return storage.Equal(rec[c.Column], v) }) {
				return false
			}
		case storage.Related:
			parent, ok := d.table(c.Parent)[rec.String(c.Column)]
			if !ok || !d.matches(parent.rec, c.Where) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func (d *dataset) findMany(m *model.Model, q storage.Query) ([]storage.Record, error) {
	rows, err := d.scan(m, q.Where)
	if err != nil {
		return nil, err
	}

	if q.OrderBy != "" {
		if !m.HasColumn(q.OrderBy) {
			return nil, fmt.Errorf("%w: %s.%s", storage.ErrUnknownColumn, m.Name, q.OrderBy)
		}
		sort.SliceStable(rows, func(i, j int) bool {
			c := compare(rows[i].rec[q.OrderBy], rows[j].rec[q.OrderBy])
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
	}

	if q.Offset > 0 {
		if q.Offset >= len(rows) {
			rows = nil
		} else {
			rows = rows[q.Offset:]
		}
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	out := make([]storage.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.rec.Clone())
	}
	return out, nil
}

func (d *dataset) findUnique(m *model.Model, id string) (storage.Record, error) {
	r, ok := d.table(m)[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return r.rec.Clone(), nil
}

func (d *dataset) count(m *model.Model, where storage.Filter) (int64, error) {
	rows, err := d.scan(m, where)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (d *dataset) create(m *model.Model, rec storage.Record) (storage.Record, error) {
	rec, err := storage.Prepare(m, rec)
	if err != nil {
		return nil, err
	}
	tbl := d.table(m)
	id := rec.String(m.Key())
	if _, exists := tbl[id]; exists {
		return nil, storage.ErrConflict
	}
	if err := d.checkUnique(m, rec, ""); err != nil {
		return nil, err
	}

	d.seq++
	tbl[id] = &row{rec: rec, seq: d.seq}
	return rec.Clone(), nil
}

func (d *dataset) updateMany(m *model.Model, where storage.Filter, set storage.Record) (int64, error) {
	if err := storage.ValidateRecord(m, set); err != nil {
		return 0, err
	}
	if _, ok := set[m.Key()]; ok {
		return 0, fmt.Errorf("%w: %s.%s", storage.ErrImmutableField, m.Name, m.Key())
	}
	rows, err := d.scan(m, where)
	if err != nil {
		return 0, err
	}

	set = set.Clone().Normalize()
	for _, r := range rows {
		next := r.rec.Clone()
		for k, v := range set {
			next[k] = v
		}
		if err := d.checkUnique(m, next, r.rec.String(m.Key())); err != nil {
			return 0, err
		}
	}
	for _, r := range rows {
		for k, v := range set {
			r.rec[k] = v
		}
	}
	return int64(len(rows)), nil
}

func (d *dataset) deleteMany(m *model.Model, where storage.Filter) (int64, error) {
	rows, err := d.scan(m, where)
	if err != nil {
		return 0, err
	}
	tbl := d.table(m)
	for _, r := range rows {
		delete(tbl, r.rec.String(m.Key()))
	}
	return int64(len(rows)), nil
}

// checkUnique reports storage.ErrConflict when rec collides with another
// row (other than self) on a unique column. NULL and empty values never
// collide.
func (d *dataset) checkUnique(m *model.Model, rec storage.Record, self string) error {
	for _, col := range m.Unique {
		v := rec[col]
		if v == nil || v == "" {
			continue
		}
		for id, other := range d.table(m) {
			if id != self && storage.Equal(other.rec[col], v) {
				return fmt.Errorf("%w: %s.%s", storage.ErrConflict, m.Name, col)
			}
		}
	}
	return nil
}

// compare orders column values; NULL sorts first.
func compare(a, b any) int {
	a, b = storage.NormalizeValue(a), storage.NormalizeValue(b)
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return cmp.Compare(av, bv)
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return cmp.Compare(av, bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return cmp.Compare(av, bv)
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
