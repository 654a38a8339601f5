// Package model declares the persistence schema of altar.
//
// Each Model states how its rows belong to a tenant. Ownership is part of
// the schema, not a list kept next to it: the Registry refuses models that
// do not declare an Owner, and the storage interception layer refuses
// models that are not registered. A model that is intentionally shared
// across tenants must say so with Global.
package model

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
)

// OwnerKind describes how a row reaches its tenant.
type OwnerKind int

const (
	// Unspecified is the zero value and is rejected at registration.
	Unspecified OwnerKind = iota

	// Global rows are shared by all tenants and never filtered.
	Global

	// Self rows are tenants: the primary key is the tenant id.
	Self

	// Direct rows store the tenant id in Owner.Column.
	Direct

	// Parent rows reference a parent row through Owner.Column and belong
	// to whichever tenant owns that parent.
	Parent
)

func (k OwnerKind) String() string {
	switch k {
	case Global:
		return "global"
	case Self:
		return "self"
	case Direct:
		return "direct"
	case Parent:
		return "parent"
	default:
		return "unspecified"
	}
}

// Ownership is the tenancy declaration of a model.
type Ownership struct {
	Kind OwnerKind

	// Column is the tenant id column (Direct) or the foreign key to the
	// parent's primary key (Parent).
	Column string

	// Parent is the referenced model when Kind is Parent.
	Parent *Model
}

// Model describes one table.
type Model struct {
	// Name is the logical name used in logs and metrics (e.g. "guest").
	Name string

	// Table is the SQL table name.
	Table string

	// PrimaryKey defaults to "id".
	PrimaryKey string

	// IDPrefix is prepended to generated identifiers (e.g. "gst_").
	IDPrefix string

	// Columns lists every column in select order.
	Columns []string

	// Unique lists columns with a uniqueness constraint besides the key.
	Unique []string

	// Immutable lists columns that may not change after creation. The
	// primary key and the ownership column are always immutable.
	Immutable []string

	Owner Ownership
}

// Key returns the primary key column.
func (m *Model) Key() string {
	if m.PrimaryKey == "" {
		return "id"
	}
	return m.PrimaryKey
}

// HasColumn reports whether col is a column of m.
func (m *Model) HasColumn(col string) bool {
	return slices.Contains(m.Columns, col)
}

// IsImmutable reports whether col may not be changed by an update.
func (m *Model) IsImmutable(col string) bool {
	if col == m.Key() {
		return true
	}
	if (m.Owner.Kind == Direct || m.Owner.Kind == Parent) && col == m.Owner.Column {
		return true
	}
	return slices.Contains(m.Immutable, col)
}

// TenantOwned reports whether rows of m belong to a tenant.
func (m *Model) TenantOwned() bool {
	return m.Owner.Kind == Self || m.Owner.Kind == Direct || m.Owner.Kind == Parent
}

// Depth returns the number of parent hops between m and its tenant column.
func (m *Model) Depth() int {
	d := 0
	for cur := m; cur.Owner.Kind == Parent; cur = cur.Owner.Parent {
		d++
	}
	return d
}

// ErrInvalidModel is returned when a model declaration is incomplete.
var ErrInvalidModel = errors.New("invalid model")

// Registry holds the registered models by name.
type Registry struct {
	mu     sync.RWMutex
	models map[string]*Model
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]*Model)}
}

// Register validates and adds models. Parents must come before their
// children, either in an earlier call or earlier in the same batch. The
// batch is all or nothing: on error no model from it is registered.
func (r *Registry) Register(models ...*Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	staged := maps.Clone(r.models)
	for _, m := range models {
		if err := validate(staged, m); err != nil {
			return err
		}
		staged[m.Name] = m
	}
	r.models = staged
	return nil
}

// MustRegister is like Register but panics on error. Intended for package
// level schema setup.
func (r *Registry) MustRegister(models ...*Model) {
	if err := r.Register(models...); err != nil {
		panic(err)
	}
}

func validate(known map[string]*Model, m *Model) error {
	if m == nil || m.Name == "" || m.Table == "" {
		return fmt.Errorf("%w: name and table are required", ErrInvalidModel)
	}
	if _, dup := known[m.Name]; dup {
		return fmt.Errorf("%w: %s registered twice", ErrInvalidModel, m.Name)
	}
	if !m.HasColumn(m.Key()) {
		return fmt.Errorf("%w: %s has no key column %q", ErrInvalidModel, m.Name, m.Key())
	}

	switch m.Owner.Kind {
	case Global, Self:
	case Direct:
		if m.Owner.Column == "" || !m.HasColumn(m.Owner.Column) {
			return fmt.Errorf("%w: %s declares direct ownership without a tenant column", ErrInvalidModel, m.Name)
		}
	case Parent:
		if m.Owner.Column == "" || !m.HasColumn(m.Owner.Column) {
			return fmt.Errorf("%w: %s declares parent ownership without a foreign key column", ErrInvalidModel, m.Name)
		}
		if m.Owner.Parent == nil {
			return fmt.Errorf("%w: %s declares parent ownership without a parent", ErrInvalidModel, m.Name)
		}
		if reg, ok := known[m.Owner.Parent.Name]; !ok || reg != m.Owner.Parent {
			return fmt.Errorf("%w: parent %s of %s is not registered", ErrInvalidModel, m.Owner.Parent.Name, m.Name)
		}
		if m.Owner.Parent.Owner.Kind == Global {
			return fmt.Errorf("%w: %s cannot inherit ownership from global model %s", ErrInvalidModel, m.Name, m.Owner.Parent.Name)
		}
	default:
		return fmt.Errorf("%w: %s does not declare tenant ownership", ErrInvalidModel, m.Name)
	}

	for _, col := range append(slices.Clone(m.Unique), m.Immutable...) {
		if !m.HasColumn(col) {
			return fmt.Errorf("%w: %s references unknown column %q", ErrInvalidModel, m.Name, col)
		}
	}
	return nil
}

// Lookup returns the model registered under name.
func (r *Registry) Lookup(name string) (*Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[name]
	return m, ok
}

// Contains reports whether m itself (not just a model of the same name)
// is registered.
func (r *Registry) Contains(m *Model) bool {
	if m == nil {
		return false
	}
	reg, ok := r.Lookup(m.Name)
	return ok && reg == m
}

// Models returns all registered models ordered by ownership depth, so
// parents come before children.
func (r *Registry) Models() []*Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Model, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := out[i].Depth(), out[j].Depth()
		if di != dj {
			return di < dj
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// TenantOwned returns every registered model whose rows belong to a tenant.
func (r *Registry) TenantOwned() []*Model {
	var out []*Model
	for _, m := range r.Models() {
		if m.TenantOwned() {
			out = append(out, m)
		}
	}
	return out
}
