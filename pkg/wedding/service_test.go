package wedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altarhq/altar/pkg/api"
	"github.com/altarhq/altar/pkg/model"
	"github.com/altarhq/altar/pkg/storage"
	"github.com/altarhq/altar/pkg/storage/memory"
	"github.com/altarhq/altar/pkg/storage/scoped"
	"github.com/altarhq/altar/pkg/tenancy"
	"github.com/altarhq/altar/pkg/transport"
)

type fixture struct {
	svc   *Service
	db    *scoped.Client
	alice context.Context
	bob   context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := scoped.New(memory.New(), model.Default())
	svc, err := New(db, DefaultConfig())
	require.NoError(t, err)

	ctx := context.Background()
	a, err := svc.Signup(ctx, &api.SignupRequest{Slug: "alice", Title: "Alice & Sam", Date: "2027-06-12"})
	require.NoError(t, err)
	b, err := svc.Signup(ctx, &api.SignupRequest{Slug: "bob", Title: "Bob & Kim"})
	require.NoError(t, err)

	return &fixture{
		svc:   svc,
		db:    db,
		alice: tenancy.WithTenant(ctx, a.Tenant.ID),
		bob:   tenancy.WithTenant(ctx, b.Tenant.ID),
	}
}

func (f *fixture) guest(t *testing.T, ctx context.Context, name string) *api.Guest {
	t.Helper()
	g, err := f.svc.CreateGuest(ctx, &api.CreateGuestRequest{Name: name})
	require.NoError(t, err)
	return g
}

func ptr[T any](v T) *T { return &v }

func TestNew_NilClient(t *testing.T) {
	_, err := New(nil, DefaultConfig())
	assert.Error(t, err)
}

func TestSignup(t *testing.T) {
	f := newFixture(t)

	w, err := f.svc.GetWedding(f.alice)
	require.NoError(t, err)
	assert.Equal(t, "Alice & Sam", w.Title)
	assert.Equal(t, "2027-06-12", w.Date)

	tenantID, _ := tenancy.FromContext(f.alice)
	assert.Equal(t, tenantID, w.TenantID)
}

func TestSignup_SlugTaken(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Signup(context.Background(), &api.SignupRequest{Slug: "alice", Title: "Again"})
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, api.ErrorTypeConflict, apiErr.Type)
	assert.Equal(t, "slug", apiErr.Param)

	// The failed signup must not leave an orphaned wedding behind.
	n, err := f.db.Count(context.Background(), model.Wedding, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestSignup_Invalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Signup(context.Background(), &api.SignupRequest{Slug: "www", Title: "Reserved"})
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, api.ErrorTypeInvalidRequest, apiErr.Type)
}

func TestGetWedding_RequiresTenant(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetWedding(context.Background())
	assert.ErrorIs(t, err, tenancy.ErrMissingTenantContext)
}

func TestUpdateWedding(t *testing.T) {
	f := newFixture(t)

	w, err := f.svc.UpdateWedding(f.alice, &api.UpdateWeddingRequest{Venue: ptr("Lakeside Barn")})
	require.NoError(t, err)
	assert.Equal(t, "Lakeside Barn", w.Venue)
	assert.Equal(t, "Alice & Sam", w.Title)

	bw, err := f.svc.GetWedding(f.bob)
	require.NoError(t, err)
	assert.Empty(t, bw.Venue)
}

func TestGuests_Isolation(t *testing.T) {
	f := newFixture(t)

	ag := f.guest(t, f.alice, "Carol")
	f.guest(t, f.bob, "Dave")

	list, err := f.svc.ListGuests(f.alice, transport.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "Carol", list.Data[0].Name)
	assert.Equal(t, 1, list.Data[0].PartySize)

	_, err = f.svc.GetGuest(f.bob, ag.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = f.svc.UpdateGuest(f.bob, ag.ID, &api.UpdateGuestRequest{Name: ptr("Mallory")})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = f.svc.DeleteGuest(f.bob, ag.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err := f.svc.GetGuest(f.alice, ag.ID)
	require.NoError(t, err)
	assert.Equal(t, "Carol", got.Name)
}

func TestListGuests_Pagination(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"A", "B", "C"} {
		f.guest(t, f.alice, name)
	}

	page, err := f.svc.ListGuests(f.alice, transport.ListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.True(t, page.HasMore)

	rest, err := f.svc.ListGuests(f.alice, transport.ListOptions{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, rest.Data, 1)
	assert.False(t, rest.HasMore)
}

func TestListGuests_RequiresTenant(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ListGuests(context.Background(), transport.ListOptions{})
	assert.ErrorIs(t, err, tenancy.ErrMissingTenantContext)
}

func TestPerIDOperations_RequireTenant(t *testing.T) {
	f := newFixture(t)
	g := f.guest(t, f.bob, "Dana")
	e, err := f.svc.CreateEvent(f.bob, &api.CreateEventRequest{Name: "Ceremony", StartsAt: time.Now().Add(24 * time.Hour)})
	require.NoError(t, err)

	unscoped := map[string]context.Context{
		"no scope":    context.Background(),
		"blank scope": tenancy.WithTenant(context.Background(), "  "),
	}
	for name, ctx := range unscoped {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.GetGuest(ctx, g.ID)
			assert.ErrorIs(t, err, tenancy.ErrMissingTenantContext, "GetGuest")

			_, err = f.svc.UpdateGuest(ctx, g.ID, &api.UpdateGuestRequest{Name: ptr("Mallory")})
			assert.ErrorIs(t, err, tenancy.ErrMissingTenantContext, "UpdateGuest")

			_, err = f.svc.PutRSVP(ctx, g.ID, &api.RSVPRequest{Status: api.RSVPStatusDeclined})
			assert.ErrorIs(t, err, tenancy.ErrMissingTenantContext, "PutRSVP")

			assert.ErrorIs(t, f.svc.DeleteGuest(ctx, g.ID), tenancy.ErrMissingTenantContext, "DeleteGuest")
			assert.ErrorIs(t, f.svc.DeleteEvent(ctx, e.ID), tenancy.ErrMissingTenantContext, "DeleteEvent")
		})
	}

	got, err := f.svc.GetGuest(f.bob, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dana", got.Name)
	assert.Nil(t, got.RSVP)

	events, err := f.svc.ListEvents(f.bob)
	require.NoError(t, err)
	assert.Len(t, events.Data, 1)
}

func TestUpdateGuest_ForeignTable(t *testing.T) {
	f := newFixture(t)
	g := f.guest(t, f.alice, "Carol")

	bw, err := f.svc.GetWedding(f.bob)
	require.NoError(t, err)
	bobTable, err := f.db.Create(f.bob, model.SeatingTable, storage.Record{"wedding_id": bw.ID, "label": "1", "capacity": 8})
	require.NoError(t, err)

	_, err = f.svc.UpdateGuest(f.alice, g.ID, &api.UpdateGuestRequest{TableID: ptr(bobTable.String("id"))})
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "table_id", apiErr.Param)

	aw, err := f.svc.GetWedding(f.alice)
	require.NoError(t, err)
	aliceTable, err := f.db.Create(f.alice, model.SeatingTable, storage.Record{"wedding_id": aw.ID, "label": "2", "capacity": 8})
	require.NoError(t, err)

	updated, err := f.svc.UpdateGuest(f.alice, g.ID, &api.UpdateGuestRequest{TableID: ptr(aliceTable.String("id"))})
	require.NoError(t, err)
	assert.Equal(t, aliceTable.String("id"), updated.TableID)

	cleared, err := f.svc.UpdateGuest(f.alice, g.ID, &api.UpdateGuestRequest{TableID: ptr("")})
	require.NoError(t, err)
	assert.Empty(t, cleared.TableID)
}

func TestPutRSVP(t *testing.T) {
	f := newFixture(t)
	g := f.guest(t, f.alice, "Carol")

	r, err := f.svc.PutRSVP(f.alice, g.ID, &api.RSVPRequest{Status: api.RSVPStatusPending})
	require.NoError(t, err)
	assert.Equal(t, api.RSVPStatusPending, r.Status)
	assert.Nil(t, r.RespondedAt)

	r, err = f.svc.PutRSVP(f.alice, g.ID, &api.RSVPRequest{Status: api.RSVPStatusAttending, Meal: "fish"})
	require.NoError(t, err)
	assert.Equal(t, api.RSVPStatusAttending, r.Status)
	assert.Equal(t, "fish", r.Meal)
	assert.NotNil(t, r.RespondedAt)

	got, err := f.svc.GetGuest(f.alice, g.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RSVP)
	assert.Equal(t, r.ID, got.RSVP.ID)

	// Once answered, a reply cannot go back to pending.
	_, err = f.svc.PutRSVP(f.alice, g.ID, &api.RSVPRequest{Status: api.RSVPStatusPending})
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, api.ErrorTypeInvalidRequest, apiErr.Type)

	_, err = f.svc.PutRSVP(f.bob, g.ID, &api.RSVPRequest{Status: api.RSVPStatusDeclined})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteGuest_RemovesRSVP(t *testing.T) {
	f := newFixture(t)
	g := f.guest(t, f.alice, "Carol")
	_, err := f.svc.PutRSVP(f.alice, g.ID, &api.RSVPRequest{Status: api.RSVPStatusDeclined})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteGuest(f.alice, g.ID))

	_, err = f.svc.GetGuest(f.alice, g.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	n, err := f.db.Count(f.alice, model.RSVP, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEvents(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2027, 6, 12, 15, 0, 0, 0, time.UTC)

	_, err := f.svc.CreateEvent(f.alice, &api.CreateEventRequest{Name: "Reception", StartsAt: base.Add(3 * time.Hour)})
	require.NoError(t, err)
	ceremony, err := f.svc.CreateEvent(f.alice, &api.CreateEventRequest{Name: "Ceremony", StartsAt: base})
	require.NoError(t, err)

	list, err := f.svc.ListEvents(f.alice)
	require.NoError(t, err)
	require.Len(t, list.Data, 2)
	assert.Equal(t, "Ceremony", list.Data[0].Name)
	assert.Equal(t, "Reception", list.Data[1].Name)

	bobs, err := f.svc.ListEvents(f.bob)
	require.NoError(t, err)
	assert.Empty(t, bobs.Data)

	assert.ErrorIs(t, f.svc.DeleteEvent(f.bob, ceremony.ID), storage.ErrNotFound)
	require.NoError(t, f.svc.DeleteEvent(f.alice, ceremony.ID))
	assert.ErrorIs(t, f.svc.DeleteEvent(f.alice, ceremony.ID), storage.ErrNotFound)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	carol := f.guest(t, f.alice, "Carol")
	dave := f.guest(t, f.alice, "Dave")
	f.guest(t, f.alice, "Erin")
	f.guest(t, f.bob, "Frank")

	_, err := f.svc.PutRSVP(f.alice, carol.ID, &api.RSVPRequest{Status: api.RSVPStatusAttending})
	require.NoError(t, err)
	_, err = f.svc.PutRSVP(f.alice, dave.ID, &api.RSVPRequest{Status: api.RSVPStatusDeclined})
	require.NoError(t, err)

	d, err := f.svc.Dashboard(f.alice)
	require.NoError(t, err)
	assert.Equal(t, "Alice & Sam", d.Wedding.Title)
	assert.Equal(t, int64(3), d.Guests)
	assert.Equal(t, int64(1), d.Attending)
	assert.Equal(t, int64(1), d.Declined)
	assert.Equal(t, int64(1), d.Pending)

	bd, err := f.svc.Dashboard(f.bob)
	require.NoError(t, err)
	assert.Equal(t, int64(1), bd.Guests)
	assert.Zero(t, bd.Attending)
}

func TestDashboard_RequiresTenant(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Dashboard(context.Background())
	assert.True(t, errors.Is(err, tenancy.ErrMissingTenantContext))
}

func TestListTenants(t *testing.T) {
	f := newFixture(t)

	all, err := f.svc.ListTenants(context.Background(), transport.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all.Data, 2)

	// In a couple's scope the same call only sees that couple.
	own, err := f.svc.ListTenants(f.alice, transport.ListOptions{})
	require.NoError(t, err)
	require.Len(t, own.Data, 1)
	assert.Equal(t, "alice", own.Data[0].Slug)
}

func TestPageSize(t *testing.T) {
	svc, err := New(memory.New(), Config{DefaultPageSize: 10, MaxPageSize: 50})
	require.NoError(t, err)

	assert.Equal(t, 10, svc.pageSize(0))
	assert.Equal(t, 5, svc.pageSize(5))
	assert.Equal(t, 50, svc.pageSize(500))
}
