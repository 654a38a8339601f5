package sitehost

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altarhq/altar/pkg/model"
	"github.com/altarhq/altar/pkg/storage"
	"github.com/altarhq/altar/pkg/storage/memory"
	"github.com/altarhq/altar/pkg/storage/scoped"
	"github.com/altarhq/altar/pkg/tenancy"
)

func seedTenants(t *testing.T, db storage.Client) (alice, bob string) {
	t.Helper()
	ctx := context.Background()
	a, err := db.Create(ctx, model.Tenant, storage.Record{"slug": "alice", "custom_domain": "alice-and-sam.com", "domain_verified": true})
	require.NoError(t, err)
	b, err := db.Create(ctx, model.Tenant, storage.Record{"slug": "bob", "custom_domain": "bob-and-kim.com", "domain_verified": false})
	require.NoError(t, err)
	return a.String("id"), b.String("id")
}

func TestResolve(t *testing.T) {
	db := scoped.New(memory.New(), model.Default())
	alice, bob := seedTenants(t, db)
	r := NewResolver(db, "altar.localhost", time.Minute)

	tests := []struct {
		host    string
		want    string
		wantErr bool
	}{
		{"alice.altar.localhost", alice, false},
		{"ALICE.altar.localhost:8080", alice, false},
		{"bob.altar.localhost.", bob, false},
		{"alice-and-sam.com", alice, false},
		{"bob-and-kim.com", "", true}, // unverified
		{"carol.altar.localhost", "", true},
		{"deep.alice.altar.localhost", "", true},
		{"altar.localhost", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			got, err := r.Resolve(context.Background(), tt.host)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownHost)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_IgnoresCallerScope(t *testing.T) {
	db := scoped.New(memory.New(), model.Default())
	alice, bob := seedTenants(t, db)
	r := NewResolver(db, "altar.localhost", 0)

	got, err := r.Resolve(tenancy.WithTenant(context.Background(), alice), "bob.altar.localhost")
	require.NoError(t, err)
	assert.Equal(t, bob, got)
}

func TestResolve_Cache(t *testing.T) {
	db := memory.New()
	alice, _ := seedTenants(t, db)
	r := NewResolver(db, "altar.localhost", time.Minute)
	now := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	_, err := r.Resolve(context.Background(), "alice.altar.localhost")
	require.NoError(t, err)

	_, err = storage.Delete(context.Background(), db, model.Tenant, alice)
	require.NoError(t, err)

	got, err := r.Resolve(context.Background(), "alice.altar.localhost")
	require.NoError(t, err)
	assert.Equal(t, alice, got, "cached entry should still resolve")

	now = now.Add(2 * time.Minute)
	_, err = r.Resolve(context.Background(), "alice.altar.localhost")
	assert.ErrorIs(t, err, ErrUnknownHost)
}

func TestMiddleware(t *testing.T) {
	db := memory.New()
	alice, _ := seedTenants(t, db)
	r := NewResolver(db, "altar.localhost", time.Minute)

	var seen string
	h := r.Middleware(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		seen, _ = tenancy.FromContext(req.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/site/wedding", nil)
	req.Host = "alice.altar.localhost"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, alice, seen)

	req = httptest.NewRequest(http.MethodGet, "/site/wedding", nil)
	req.Host = "nobody.altar.localhost"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
