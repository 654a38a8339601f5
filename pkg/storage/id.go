package storage

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/altarhq/altar/pkg/model"
)

const (
	idLength = 24
	charset  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewID generates an identifier for m: the model prefix followed by 24
// cryptographically random alphanumeric characters.
func NewID(m *model.Model) string {
	return m.IDPrefix + randomAlphanumeric(idLength)
}

// Prepare validates rec against m and fills the primary key and created_at
// when they are unset. The returned record is a copy.
func Prepare(m *model.Model, rec Record) (Record, error) {
	if err := ValidateRecord(m, rec); err != nil {
		return nil, err
	}
	out := rec.Clone()
	if out == nil {
		out = Record{}
	}
	if out.String(m.Key()) == "" {
		out[m.Key()] = NewID(m)
	}
	if m.HasColumn("created_at") {
		if _, ok := out["created_at"]; !ok {
			out["created_at"] = time.Now().UTC().Truncate(time.Microsecond)
		}
	}
	for _, col := range m.Columns {
		if _, ok := out[col]; !ok {
			out[col] = nil
		}
	}
	return out.Normalize(), nil
}

// CheckMutable rejects set when it touches an immutable column of m.
func CheckMutable(m *model.Model, set Record) error {
	if err := ValidateRecord(m, set); err != nil {
		return err
	}
	for col := range set {
		if m.IsImmutable(col) {
			return fmt.Errorf("%w: %s.%s", ErrImmutableField, m.Name, col)
		}
	}
	return nil
}

func randomAlphanumeric(n int) string {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b)
}
