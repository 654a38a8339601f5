package storage

import (
	"fmt"
	"slices"

	"github.com/altarhq/altar/pkg/model"
)

// Cond is a single predicate of a Filter. The concrete types are Eq, In
// and Related.
type Cond interface {
	cond()
}

// Eq matches records whose Column equals Value.
type Eq struct {
	Column string
	Value  any
}

// In matches records whose Column equals one of Values. An empty Values
// matches nothing.
type In struct {
	Column string
	Values []any
}

// Related matches records whose foreign key Column references a row of
// Parent that matches Where.
type Related struct {
	Column string
	Parent *model.Model
	Where  Filter
}

func (Eq) cond()      {}
func (In) cond()      {}
func (Related) cond() {}

// Filter is a conjunction of conditions. An empty Filter matches all records.
type Filter []Cond

// And returns a new Filter with conds appended. The receiver is not
// modified, so callers' filters are never aliased.
func (f Filter) And(conds ...Cond) Filter {
	out := make(Filter, 0, len(f)+len(conds))
	out = append(out, f...)
	return append(out, conds...)
}

// Validate checks that every column in f belongs to m (or to the parent
// model of a Related condition).
func (f Filter) Validate(m *model.Model) error {
	for _, c := range f {
		switch c := c.(type) {
		case Eq:
			if !m.HasColumn(c.Column) {
				return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, m.Name, c.Column)
			}
		case In:
			if !m.HasColumn(c.Column) {
				return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, m.Name, c.Column)
			}
		case Related:
			if !m.HasColumn(c.Column) {
				return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, m.Name, c.Column)
			}
			if c.Parent == nil {
				return fmt.Errorf("%w: related condition on %s.%s has no parent", ErrUnknownModel, m.Name, c.Column)
			}
			if err := c.Where.Validate(c.Parent); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported condition %T", c)
		}
	}
	return nil
}

// ValidateRecord checks that every key of rec is a column of m.
func ValidateRecord(m *model.Model, rec Record) error {
	for col := range rec {
		if !slices.Contains(m.Columns, col) {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, m.Name, col)
		}
	}
	return nil
}
