// Package sqlfilter compiles storage filters and queries to SQL with
// squirrel. It is shared by the postgres and sqlite backends, which differ
// only in placeholder format.
package sqlfilter

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/altarhq/altar/pkg/model"
	"github.com/altarhq/altar/pkg/storage"
)

// Builder produces statements for one placeholder dialect.
type Builder struct {
	sb sq.StatementBuilderType
}

// New returns a Builder using ph (sq.Dollar for postgres, sq.Question for
// sqlite).
func New(ph sq.PlaceholderFormat) Builder {
	return Builder{sb: sq.StatementBuilder.PlaceholderFormat(ph)}
}

// Where compiles f against m. Columns are checked against the model before
// they are interpolated into SQL.
func Where(m *model.Model, f storage.Filter) (sq.Sqlizer, error) {
	if err := f.Validate(m); err != nil {
		return nil, err
	}
	return compile(m, f)
}

func compile(m *model.Model, f storage.Filter) (sq.Sqlizer, error) {
	and := sq.And{}
	for _, c := range f {
		switch c := c.(type) {
		case storage.Eq:
			and = append(and, sq.Eq{column(m, c.Column): c.Value})
		case storage.In:
			if len(c.Values) == 0 {
				and = append(and, sq.Expr("1=0"))
				continue
			}
			and = append(and, sq.Eq{column(m, c.Column): c.Values})
		case storage.Related:
			// squirrel has no subquery support outside SELECT, so the
			// parent lookup is rendered with ? placeholders and embedded as
			// an expression; the outer builder rewrites the placeholders.
			inner, err := compile(c.Parent, c.Where)
			if err != nil {
				return nil, err
			}
			sub, args, err := sq.Select(column(c.Parent, c.Parent.Key())).
				From(c.Parent.Table).
				Where(inner).
				ToSql()
			if err != nil {
				return nil, err
			}
			and = append(and, sq.Expr(column(m, c.Column)+" IN ("+sub+")", args...))
		default:
			return nil, fmt.Errorf("unsupported condition %T", c)
		}
	}
	return and, nil
}

func column(m *model.Model, col string) string {
	return m.Table + "." + col
}

// Select builds the FindMany statement.
func (b Builder) Select(m *model.Model, q storage.Query) (string, []any, error) {
	where, err := Where(m, q.Where)
	if err != nil {
		return "", nil, err
	}
	sel := b.sb.Select(m.Columns...).From(m.Table).Where(where)

	if q.OrderBy != "" {
		if !m.HasColumn(q.OrderBy) {
			return "", nil, fmt.Errorf("%w: %s.%s", storage.ErrUnknownColumn, m.Name, q.OrderBy)
		}
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		sel = sel.OrderBy(q.OrderBy + " " + dir)
	}
	if q.Limit > 0 {
		sel = sel.Limit(uint64(q.Limit))
	}
	if q.Offset > 0 {
		if q.Limit == 0 {
			// sqlite requires LIMIT before OFFSET.
			sel = sel.Limit(1<<62 - 1)
		}
		sel = sel.Offset(uint64(q.Offset))
	}
	return sel.ToSql()
}

// SelectByKey builds the FindUnique statement.
func (b Builder) SelectByKey(m *model.Model, id string) (string, []any, error) {
	return b.sb.Select(m.Columns...).From(m.Table).Where(sq.Eq{m.Key(): id}).ToSql()
}

// Count builds the Count statement.
func (b Builder) Count(m *model.Model, where storage.Filter) (string, []any, error) {
	w, err := Where(m, where)
	if err != nil {
		return "", nil, err
	}
	return b.sb.Select("COUNT(*)").From(m.Table).Where(w).ToSql()
}

// Insert builds an INSERT of every model column from rec. rec should come
// from storage.Prepare.
func (b Builder) Insert(m *model.Model, rec storage.Record) (string, []any, error) {
	if err := storage.ValidateRecord(m, rec); err != nil {
		return "", nil, err
	}
	vals := make([]any, 0, len(m.Columns))
	for _, col := range m.Columns {
		vals = append(vals, rec[col])
	}
	return b.sb.Insert(m.Table).Columns(m.Columns...).Values(vals...).ToSql()
}

// Update builds the UpdateMany statement. set must not be empty.
func (b Builder) Update(m *model.Model, where storage.Filter, set storage.Record) (string, []any, error) {
	if len(set) == 0 {
		return "", nil, fmt.Errorf("empty update for %s", m.Name)
	}
	if err := storage.ValidateRecord(m, set); err != nil {
		return "", nil, err
	}
	if _, ok := set[m.Key()]; ok {
		return "", nil, fmt.Errorf("%w: %s.%s", storage.ErrImmutableField, m.Name, m.Key())
	}
	w, err := Where(m, where)
	if err != nil {
		return "", nil, err
	}
	return b.sb.Update(m.Table).SetMap(map[string]any(set)).Where(w).ToSql()
}

// Delete builds the DeleteMany statement.
func (b Builder) Delete(m *model.Model, where storage.Filter) (string, []any, error) {
	w, err := Where(m, where)
	if err != nil {
		return "", nil, err
	}
	return b.sb.Delete(m.Table).Where(w).ToSql()
}
