package storage

import (
	"fmt"
	"maps"
	"time"
)

// Record is one row keyed by column name. Backends normalize driver values
// so that text is string, integers are int64, booleans are bool and
// timestamps are time.Time.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

// String returns the column as a string. Missing or NULL columns return "".
func (r Record) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the column as an int64. Non-numeric values return 0.
func (r Record) Int(col string) int64 {
	n, _ := toInt64(r[col])
	return n
}

// Bool returns the column as a bool.
func (r Record) Bool(col string) bool {
	switch v := r[col].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	default:
		return false
	}
}

// Time returns the column as a time.Time. Missing columns return the zero
// time.
func (r Record) Time(col string) time.Time {
	switch v := r[col].(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}
		}
		return t
	default:
		return time.Time{}
	}
}

// Normalize converts driver-specific values in place.
func (r Record) Normalize() Record {
	for k, v := range r {
		r[k] = NormalizeValue(v)
	}
	return r
}

// NormalizeValue converts a single driver value to the canonical Record
// representation.
func NormalizeValue(v any) any {
	switch v := v.(type) {
	case []byte:
		return string(v)
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case time.Time:
		return v.UTC()
	default:
		return v
	}
}

// Equal compares two column values after normalization.
func Equal(a, b any) bool {
	a, b = NormalizeValue(a), NormalizeValue(b)
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	if na, ok := toInt64(a); ok {
		nb, ok := toInt64(b)
		return ok && na == nb
	}
	return a == b
}

func toInt64(v any) (int64, bool) {
	switch v := NormalizeValue(v).(type) {
	case int64:
		return v, true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), v == float64(int64(v))
	default:
		return 0, false
	}
}
