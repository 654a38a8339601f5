// Package storagetest provides a tenant isolation suite that every
// storage.Client backend runs from its own tests.
package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/altarhq/altar/pkg/model"
	"github.com/altarhq/altar/pkg/storage"
	"github.com/altarhq/altar/pkg/storage/scoped"
	"github.com/altarhq/altar/pkg/tenancy"
)

// Factory returns an empty backend for one subtest.
type Factory func(t *testing.T) storage.Client

// Couple is the data seeded for one tenant.
type Couple struct {
	Tenant  string
	Wedding string
	Guests  []string
	RSVP    string
	Event   string
}

// Fixture holds a scoped client over a seeded backend with two tenants.
type Fixture struct {
	Client *scoped.Client
	Alice  Couple
	Bob    Couple
}

// Seed creates the Alice and Bob tenants through the administrative bypass
// (no tenant in ctx). Alice gets three guests, Bob two; each has one RSVP
// and one event.
func Seed(t *testing.T, raw storage.Client) *Fixture {
	t.Helper()
	c := scoped.New(raw, model.Default())
	f := &Fixture{Client: c}
	f.Alice = seedCouple(t, c, "alice", []string{"Ann", "Art", "Amy"})
	f.Bob = seedCouple(t, c, "bob", []string{"Ben", "Bea"})
	return f
}

func seedCouple(t *testing.T, c storage.Client, slug string, guests []string) Couple {
	t.Helper()
	ctx := context.Background()

	tenant, err := c.Create(ctx, model.Tenant, storage.Record{"slug": slug})
	require.NoError(t, err)
	wedding, err := c.Create(ctx, model.Wedding, storage.Record{
		"tenant_id": tenant.String("id"),
		"title":     slug + "'s wedding",
	})
	require.NoError(t, err)

	out := Couple{Tenant: tenant.String("id"), Wedding: wedding.String("id")}
	for _, name := range guests {
		g, err := c.Create(ctx, model.Guest, storage.Record{
			"wedding_id": out.Wedding,
			"name":       name,
			"party_size": 1,
		})
		require.NoError(t, err)
		out.Guests = append(out.Guests, g.String("id"))
	}

	rsvp, err := c.Create(ctx, model.RSVP, storage.Record{
		"guest_id":     out.Guests[0],
		"status":       "attending",
		"responded_at": time.Now().UTC().Truncate(time.Microsecond),
	})
	require.NoError(t, err)
	out.RSVP = rsvp.String("id")

	event, err := c.Create(ctx, model.Event, storage.Record{
		"wedding_id": out.Wedding,
		"name":       "Ceremony",
		"starts_at":  time.Date(2027, 6, 12, 15, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	out.Event = event.String("id")
	return out
}

func ids(recs []storage.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.String("id"))
	}
	return out
}

// RunIsolation runs the tenant isolation suite against backends produced
// by newClient.
func RunIsolation(t *testing.T, newClient Factory) {
	t.Run("ScopedReadsReturnOnlyOwnRows", func(t *testing.T) {
		f := Seed(t, newClient(t))
		ctx := tenancy.WithTenant(context.Background(), f.Alice.Tenant)

		guests, err := f.Client.FindMany(ctx, model.Guest, storage.Query{})
		require.NoError(t, err)
		assert.ElementsMatch(t, f.Alice.Guests, ids(guests))

		weddings, err := f.Client.FindMany(ctx, model.Wedding, storage.Query{})
		require.NoError(t, err)
		assert.Equal(t, []string{f.Alice.Wedding}, ids(weddings))

		tenants, err := f.Client.FindMany(ctx, model.Tenant, storage.Query{})
		require.NoError(t, err)
		assert.Equal(t, []string{f.Alice.Tenant}, ids(tenants))

		rsvps, err := f.Client.FindMany(ctx, model.RSVP, storage.Query{})
		require.NoError(t, err)
		assert.Equal(t, []string{f.Alice.RSVP}, ids(rsvps))

		n, err := f.Client.Count(ctx, model.Guest, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
	})

	t.Run("CallerFiltersAreKept", func(t *testing.T) {
		f := Seed(t, newClient(t))
		ctx := tenancy.WithTenant(context.Background(), f.Alice.Tenant)

		guests, err := f.Client.FindMany(ctx, model.Guest, storage.Query{
			Where: storage.Filter{storage.In{Column: "name", Values: []any{"Amy", "Ben"}}},
		})
		require.NoError(t, err)
		require.Len(t, guests, 1)
		assert.Equal(t, "Amy", guests[0].String("name"))

		// Asking for Bob's wedding explicitly still yields nothing.
		guests, err = f.Client.FindMany(ctx, model.Guest, storage.Query{
			Where: storage.Filter{storage.Eq{Column: "wedding_id", Value: f.Bob.Wedding}},
		})
		require.NoError(t, err)
		assert.Empty(t, guests)
	})

	t.Run("FindUniqueAcrossTenantsIsNotFound", func(t *testing.T) {
		f := Seed(t, newClient(t))
		ctx := tenancy.WithTenant(context.Background(), f.Alice.Tenant)

		got, err := f.Client.FindUnique(ctx, model.Guest, f.Alice.Guests[0])
		require.NoError(t, err)
		assert.Equal(t, "Ann", got.String("name"))

		cases := []struct {
			m  *model.Model
			id string
		}{
			{model.Tenant, f.Bob.Tenant},
			{model.Wedding, f.Bob.Wedding},
			{model.Guest, f.Bob.Guests[0]},
			{model.RSVP, f.Bob.RSVP},
			{model.Event, f.Bob.Event},
		}
		for _, tc := range cases {
			_, err := f.Client.FindUnique(ctx, tc.m, tc.id)
			assert.ErrorIs(t, err, storage.ErrNotFound, "%s %s", tc.m.Name, tc.id)
		}

		_, err = f.Client.FindUnique(ctx, model.Guest, "gst_doesnotexist")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("WritesAcrossTenantsAffectNothing", func(t *testing.T) {
		f := Seed(t, newClient(t))
		ctx := tenancy.WithTenant(context.Background(), f.Alice.Tenant)

		n, err := storage.Update(ctx, f.Client, model.Guest, f.Bob.Guests[0], storage.Record{"name": "pwned"})
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = f.Client.UpdateMany(ctx, model.Guest, nil, storage.Record{"email": "alice@example.com"})
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)

		n, err = storage.Delete(ctx, f.Client, model.RSVP, f.Bob.RSVP)
		require.NoError(t, err)
		assert.Zero(t, n)

		bobCtx := tenancy.WithTenant(context.Background(), f.Bob.Tenant)
		ben, err := f.Client.FindUnique(bobCtx, model.Guest, f.Bob.Guests[0])
		require.NoError(t, err)
		assert.Equal(t, "Ben", ben.String("name"))
		assert.Empty(t, ben.String("email"))

		_, err = f.Client.FindUnique(bobCtx, model.RSVP, f.Bob.RSVP)
		assert.NoError(t, err)
	})

	t.Run("CreateRespectsParentScope", func(t *testing.T) {
		f := Seed(t, newClient(t))
		ctx := tenancy.WithTenant(context.Background(), f.Alice.Tenant)

		_, err := f.Client.Create(ctx, model.Guest, storage.Record{"wedding_id": f.Bob.Wedding, "name": "Eve"})
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = f.Client.Create(ctx, model.RSVP, storage.Record{"guest_id": f.Bob.Guests[1], "status": "declined"})
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = f.Client.Create(ctx, model.Wedding, storage.Record{"tenant_id": f.Bob.Tenant})
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = f.Client.Create(ctx, model.Guest, storage.Record{"name": "Nobody"})
		assert.ErrorIs(t, err, storage.ErrMissingOwner)

		g, err := f.Client.Create(ctx, model.Guest, storage.Record{"wedding_id": f.Alice.Wedding, "name": "Al"})
		require.NoError(t, err)
		assert.Equal(t, f.Alice.Wedding, g.String("wedding_id"))
		_, hasTenant := g["tenant_id"]
		assert.False(t, hasTenant, "create must not inject a tenant column")

		n, err := f.Client.Count(context.Background(), model.Guest, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 6, n)
	})

	t.Run("OwnershipColumnsAreImmutable", func(t *testing.T) {
		f := Seed(t, newClient(t))
		ctx := tenancy.WithTenant(context.Background(), f.Alice.Tenant)

		_, err := storage.Update(ctx, f.Client, model.Guest, f.Alice.Guests[0], storage.Record{"wedding_id": f.Bob.Wedding})
		assert.ErrorIs(t, err, storage.ErrImmutableField)

		_, err = storage.Update(ctx, f.Client, model.Wedding, f.Alice.Wedding, storage.Record{"tenant_id": f.Bob.Tenant})
		assert.ErrorIs(t, err, storage.ErrImmutableField)

		// Also without a tenant in context.
		_, err = storage.Update(context.Background(), f.Client, model.Tenant, f.Alice.Tenant, storage.Record{"slug": "carol"})
		assert.ErrorIs(t, err, storage.ErrImmutableField)
	})

	t.Run("ConcurrentScopesDoNotInterfere", func(t *testing.T) {
		f := Seed(t, newClient(t))

		var g errgroup.Group
		for i := 0; i < 20; i++ {
			couple := f.Alice
			if i%2 == 1 {
				couple = f.Bob
			}
			g.Go(func() error {
				return tenancy.Do(context.Background(), couple.Tenant, func(ctx context.Context) error {
					guests, err := f.Client.FindMany(ctx, model.Guest, storage.Query{})
					if err != nil {
						return err
					}
					if len(guests) != len(couple.Guests) {
						return fmt.Errorf("tenant %s saw %d guests, want %d", couple.Tenant, len(guests), len(couple.Guests))
					}
					for _, r := range guests {
						if r.String("wedding_id") != couple.Wedding {
							return fmt.Errorf("tenant %s saw guest of wedding %s", couple.Tenant, r.String("wedding_id"))
						}
					}
					return nil
				})
			})
		}
		require.NoError(t, g.Wait())
	})

	t.Run("NestedScopeRestoresOuter", func(t *testing.T) {
		f := Seed(t, newClient(t))

		err := tenancy.Do(context.Background(), f.Alice.Tenant, func(ctx context.Context) error {
			inner, err := tenancy.Run(ctx, f.Bob.Tenant, func(ctx context.Context) (int64, error) {
				return f.Client.Count(ctx, model.Guest, nil)
			})
			require.NoError(t, err)
			assert.EqualValues(t, 2, inner)

			outer, err := f.Client.Count(ctx, model.Guest, nil)
			require.NoError(t, err)
			assert.EqualValues(t, 3, outer)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("NoTenantBypassesFilters", func(t *testing.T) {
		f := Seed(t, newClient(t))
		ctx := context.Background()

		guests, err := f.Client.FindMany(ctx, model.Guest, storage.Query{})
		require.NoError(t, err)
		assert.Len(t, guests, 5)

		_, err = f.Client.FindUnique(ctx, model.Guest, f.Bob.Guests[1])
		assert.NoError(t, err)
	})

	t.Run("TransactionKeepsScope", func(t *testing.T) {
		f := Seed(t, newClient(t))
		ctx := tenancy.WithTenant(context.Background(), f.Alice.Tenant)

		err := f.Client.Transaction(ctx, func(ctx context.Context, tx storage.Client) error {
			n, err := tx.Count(ctx, model.Guest, nil)
			require.NoError(t, err)
			assert.EqualValues(t, 3, n)

			_, err = tx.FindUnique(ctx, model.Guest, f.Bob.Guests[0])
			assert.ErrorIs(t, err, storage.ErrNotFound)

			_, err = tx.Create(ctx, model.Event, storage.Record{"wedding_id": f.Alice.Wedding, "name": "Brunch"})
			require.NoError(t, err)
			return fmt.Errorf("roll back")
		})
		require.Error(t, err)

		n, err := f.Client.Count(ctx, model.Event, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})

	t.Run("AliceAndBob", func(t *testing.T) {
		f := Seed(t, newClient(t))

		// Alice lists her guests.
		guests, err := tenancy.Run(context.Background(), f.Alice.Tenant, func(ctx context.Context) ([]storage.Record, error) {
			return f.Client.FindMany(ctx, model.Guest, storage.Query{OrderBy: "name"})
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"Amy", "Ann", "Art"}, []string{guests[0].String("name"), guests[1].String("name"), guests[2].String("name")})

		// Alice fetches Bob's guest by id.
		_, err = tenancy.Run(context.Background(), f.Alice.Tenant, func(ctx context.Context) (storage.Record, error) {
			return f.Client.FindUnique(ctx, model.Guest, f.Bob.Guests[0])
		})
		assert.ErrorIs(t, err, storage.ErrNotFound)

		// Alice tries to delete Bob's guest.
		n, err := tenancy.Run(context.Background(), f.Alice.Tenant, func(ctx context.Context) (int64, error) {
			return storage.Delete(ctx, f.Client, model.Guest, f.Bob.Guests[0])
		})
		require.NoError(t, err)
		assert.Zero(t, n)

		// Bob's guest is untouched.
		_, err = tenancy.Run(context.Background(), f.Bob.Tenant, func(ctx context.Context) (storage.Record, error) {
			return f.Client.FindUnique(ctx, model.Guest, f.Bob.Guests[0])
		})
		assert.NoError(t, err)
	})
}
