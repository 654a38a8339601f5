package wedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/altarhq/altar/pkg/api"
	"github.com/altarhq/altar/pkg/debug"
	"github.com/altarhq/altar/pkg/model"
	"github.com/altarhq/altar/pkg/storage"
	"github.com/altarhq/altar/pkg/tenancy"
	"github.com/altarhq/altar/pkg/transport"
)

// Config holds service limits.
type Config struct {
	Validation      api.ValidationConfig
	DefaultPageSize int
	MaxPageSize     int
}

// DefaultConfig returns the default service configuration.
func DefaultConfig() Config {
	return Config{
		Validation:      api.DefaultValidationConfig(),
		DefaultPageSize: 20,
		MaxPageSize:     100,
	}
}

// Service implements transport.Service.
type Service struct {
	db  storage.Client
	cfg Config
	now func() time.Time
}

// Ensure Service implements transport.Service at compile time.
var _ transport.Service = (*Service)(nil)

// New creates a Service. db must apply tenant scoping (scoped.Client).
func New(db storage.Client, cfg Config) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("wedding: storage client must not be nil")
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}
	return &Service{db: db, cfg: cfg, now: time.Now}, nil
}

// Signup creates a tenant and its wedding in one transaction. It runs
// without a tenant scope: the tenant does not exist yet.
func (s *Service) Signup(ctx context.Context, req *api.SignupRequest) (*api.SignupResponse, error) {
	if apiErr := api.ValidateSignup(req, s.cfg.Validation); apiErr != nil {
		return nil, apiErr
	}

	var resp api.SignupResponse
	err := s.db.Transaction(ctx, func(ctx context.Context, tx storage.Client) error {
		tenant, err := tx.Create(ctx, model.Tenant, storage.Record{
			"slug":            req.Slug,
			"domain_verified": false,
		})
		if err != nil {
			return fmt.Errorf("create tenant: %w", err)
		}
		wedding, err := tx.Create(ctx, model.Wedding, storage.Record{
			"tenant_id": tenant.String("id"),
			"title":     req.Title,
			"date":      nullable(req.Date),
			"venue":     nullable(req.Venue),
		})
		if err != nil {
			return fmt.Errorf("create wedding: %w", err)
		}
		t := toTenant(tenant)
		resp.Tenant = &t
		resp.Wedding = toWedding(wedding)
		return nil
	})
	if errors.Is(err, storage.ErrConflict) {
		return nil, api.NewConflictError("slug", fmt.Sprintf("slug %q is already taken", req.Slug))
	}
	if err != nil {
		return nil, err
	}

	debug.LogContext(ctx, "tenancy", "tenant created", "tenant_id", resp.Tenant.ID, "slug", resp.Tenant.Slug)
	return &resp, nil
}

// currentWedding returns the wedding record of the tenant in scope.
func (s *Service) currentWedding(ctx context.Context, db storage.Client) (storage.Record, error) {
	if _, err := tenancy.Require(ctx); err != nil {
		return nil, err
	}
	recs, err := db.FindMany(ctx, model.Wedding, storage.Query{OrderBy: "created_at", Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("find wedding: %w", err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("find wedding: %w", storage.ErrNotFound)
	}
	return recs[0], nil
}

// GetWedding returns the wedding of the tenant in scope.
func (s *Service) GetWedding(ctx context.Context) (*api.Wedding, error) {
	rec, err := s.currentWedding(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return toWedding(rec), nil
}

// UpdateWedding patches the wedding of the tenant in scope.
func (s *Service) UpdateWedding(ctx context.Context, req *api.UpdateWeddingRequest) (*api.Wedding, error) {
	if apiErr := api.ValidateUpdateWedding(req, s.cfg.Validation); apiErr != nil {
		return nil, apiErr
	}
	rec, err := s.currentWedding(ctx, s.db)
	if err != nil {
		return nil, err
	}

	set := storage.Record{}
	if req.Title != nil {
		set["title"] = *req.Title
	}
	if req.Date != nil {
		set["date"] = nullable(*req.Date)
	}
	if req.Venue != nil {
		set["venue"] = nullable(*req.Venue)
	}

	id := rec.String("id")
	if err := s.updateOne(ctx, s.db, model.Wedding, id, set); err != nil {
		return nil, err
	}
	updated, err := s.db.FindUnique(ctx, model.Wedding, id)
	if err != nil {
		return nil, fmt.Errorf("reload wedding: %w", err)
	}
	return toWedding(updated), nil
}

// ListGuests returns the guests of the tenant in scope, oldest first.
func (s *Service) ListGuests(ctx context.Context, opts transport.ListOptions) (*api.List[api.Guest], error) {
	if _, err := tenancy.Require(ctx); err != nil {
		return nil, err
	}
	limit := s.pageSize(opts.Limit)
	recs, err := s.db.FindMany(ctx, model.Guest, storage.Query{
		OrderBy: "created_at",
		Limit:   limit + 1,
		Offset:  opts.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list guests: %w", err)
	}

	hasMore := len(recs) > limit
	if hasMore {
		recs = recs[:limit]
	}
	guests := make([]api.Guest, 0, len(recs))
	for _, rec := range recs {
		guests = append(guests, toGuest(rec))
	}
	list := api.NewList(guests, hasMore)
	return &list, nil
}

// CreateGuest adds a guest to the wedding of the tenant in scope.
func (s *Service) CreateGuest(ctx context.Context, req *api.CreateGuestRequest) (*api.Guest, error) {
	if apiErr := api.ValidateCreateGuest(req, s.cfg.Validation); apiErr != nil {
		return nil, apiErr
	}
	wedding, err := s.currentWedding(ctx, s.db)
	if err != nil {
		return nil, err
	}

	partySize := req.PartySize
	if partySize == 0 {
		partySize = 1
	}
	rec, err := s.db.Create(ctx, model.Guest, storage.Record{
		"wedding_id": wedding.String("id"),
		"name":       req.Name,
		"email":      nullable(req.Email),
		"party_size": partySize,
	})
	if err != nil {
		return nil, fmt.Errorf("create guest: %w", err)
	}
	g := toGuest(rec)
	return &g, nil
}

// GetGuest returns a guest with its RSVP.
func (s *Service) GetGuest(ctx context.Context, id string) (*api.Guest, error) {
	if _, err := tenancy.Require(ctx); err != nil {
		return nil, err
	}
	rec, err := s.db.FindUnique(ctx, model.Guest, id)
	if err != nil {
		return nil, fmt.Errorf("get guest: %w", err)
	}
	g := toGuest(rec)

	rsvp, err := s.findRSVP(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if rsvp != nil {
		g.RSVP = toRSVP(rsvp)
	}
	return &g, nil
}

// UpdateGuest patches a guest. A table assignment must reference a table
// visible in the same scope.
func (s *Service) UpdateGuest(ctx context.Context, id string, req *api.UpdateGuestRequest) (*api.Guest, error) {
	if _, err := tenancy.Require(ctx); err != nil {
		return nil, err
	}
	if apiErr := api.ValidateUpdateGuest(req, s.cfg.Validation); apiErr != nil {
		return nil, apiErr
	}

	set := storage.Record{}
	if req.Name != nil {
		set["name"] = *req.Name
	}
	if req.Email != nil {
		set["email"] = nullable(*req.Email)
	}
	if req.PartySize != nil {
		set["party_size"] = *req.PartySize
	}
	if req.TableID != nil {
		if *req.TableID != "" {
			if _, err := s.db.FindUnique(ctx, model.SeatingTable, *req.TableID); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return nil, api.NewInvalidRequestError("table_id", "table not found")
				}
				return nil, fmt.Errorf("get table: %w", err)
			}
		}
		set["table_id"] = nullable(*req.TableID)
	}

	if err := s.updateOne(ctx, s.db, model.Guest, id, set); err != nil {
		return nil, err
	}
	return s.GetGuest(ctx, id)
}

// DeleteGuest removes a guest and its RSVP.
func (s *Service) DeleteGuest(ctx context.Context, id string) error {
	if _, err := tenancy.Require(ctx); err != nil {
		return err
	}
	return s.db.Transaction(ctx, func(ctx context.Context, tx storage.Client) error {
		if _, err := tx.DeleteMany(ctx, model.RSVP, storage.Filter{storage.Eq{Column: "guest_id", Value: id}}); err != nil {
			return fmt.Errorf("delete rsvp: %w", err)
		}
		n, err := storage.Delete(ctx, tx, model.Guest, id)
		if err != nil {
			return fmt.Errorf("delete guest: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("delete guest: %w", storage.ErrNotFound)
		}
		return nil
	})
}

// PutRSVP records a guest's reply, creating the RSVP on first answer.
func (s *Service) PutRSVP(ctx context.Context, guestID string, req *api.RSVPRequest) (*api.RSVP, error) {
	if _, err := tenancy.Require(ctx); err != nil {
		return nil, err
	}
	if apiErr := api.ValidateRSVP(req, s.cfg.Validation); apiErr != nil {
		return nil, apiErr
	}

	var out *api.RSVP
	err := s.db.Transaction(ctx, func(ctx context.Context, tx storage.Client) error {
		if _, err := tx.FindUnique(ctx, model.Guest, guestID); err != nil {
			return fmt.Errorf("get guest: %w", err)
		}
		existing, err := s.findRSVP(ctx, tx, guestID)
		if err != nil {
			return err
		}

		var from api.RSVPStatus
		if existing != nil {
			from = api.RSVPStatus(existing.String("status"))
		}
		if apiErr := api.ValidateRSVPTransition(from, req.Status); apiErr != nil {
			return apiErr
		}

		fields := storage.Record{
			"status": string(req.Status),
			"meal":   nullable(req.Meal),
			"note":   nullable(req.Note),
		}
		if req.Status != api.RSVPStatusPending {
			fields["responded_at"] = s.now().UTC().Truncate(time.Microsecond)
		}

		if existing == nil {
			fields["guest_id"] = guestID
			rec, err := tx.Create(ctx, model.RSVP, fields)
			if err != nil {
				return fmt.Errorf("create rsvp: %w", err)
			}
			out = toRSVP(rec)
			return nil
		}

		id := existing.String("id")
		if err := s.updateOne(ctx, tx, model.RSVP, id, fields); err != nil {
			return err
		}
		rec, err := tx.FindUnique(ctx, model.RSVP, id)
		if err != nil {
			return fmt.Errorf("reload rsvp: %w", err)
		}
		out = toRSVP(rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListEvents returns the events of the tenant in scope in start order.
func (s *Service) ListEvents(ctx context.Context) (*api.List[api.Event], error) {
	if _, err := tenancy.Require(ctx); err != nil {
		return nil, err
	}
	recs, err := s.db.FindMany(ctx, model.Event, storage.Query{OrderBy: "starts_at"})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	events := make([]api.Event, 0, len(recs))
	for _, rec := range recs {
		events = append(events, toEvent(rec))
	}
	list := api.NewList(events, false)
	return &list, nil
}

// CreateEvent schedules an event on the wedding of the tenant in scope.
func (s *Service) CreateEvent(ctx context.Context, req *api.CreateEventRequest) (*api.Event, error) {
	if apiErr := api.ValidateCreateEvent(req, s.cfg.Validation); apiErr != nil {
		return nil, apiErr
	}
	wedding, err := s.currentWedding(ctx, s.db)
	if err != nil {
		return nil, err
	}
	rec, err := s.db.Create(ctx, model.Event, storage.Record{
		"wedding_id": wedding.String("id"),
		"name":       req.Name,
		"starts_at":  req.StartsAt.UTC().Truncate(time.Microsecond),
		"location":   nullable(req.Location),
	})
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	e := toEvent(rec)
	return &e, nil
}

// DeleteEvent removes an event.
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	if _, err := tenancy.Require(ctx); err != nil {
		return err
	}
	n, err := storage.Delete(ctx, s.db, model.Event, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete event: %w", storage.ErrNotFound)
	}
	return nil
}

// Dashboard gathers the counts of the tenant in scope concurrently. Every
// branch runs with the scoped context derived from ctx.
func (s *Service) Dashboard(ctx context.Context) (*api.Dashboard, error) {
	if _, err := tenancy.Require(ctx); err != nil {
		return nil, err
	}

	var d api.Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rec, err := s.currentWedding(gctx, s.db)
		if err != nil {
			return err
		}
		d.Wedding = toWedding(rec)
		return nil
	})

	counts := []struct {
		m     *model.Model
		where storage.Filter
		dst   *int64
	}{
		{model.Guest, nil, &d.Guests},
		{model.RSVP, storage.Filter{storage.Eq{Column: "status", Value: string(api.RSVPStatusAttending)}}, &d.Attending},
		{model.RSVP, storage.Filter{storage.Eq{Column: "status", Value: string(api.RSVPStatusDeclined)}}, &d.Declined},
		{model.Event, nil, &d.Events},
		{model.SeatingTable, nil, &d.Tables},
		{model.Gift, nil, &d.Gifts},
		{model.Photo, nil, &d.Photos},
	}
	for _, c := range counts {
		g.Go(func() error {
			n, err := s.db.Count(gctx, c.m, c.where)
			if err != nil {
				return fmt.Errorf("count %s: %w", c.m.Name, err)
			}
			*c.dst = n
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	d.Pending = d.Guests - d.Attending - d.Declined
	return &d, nil
}

// ListTenants returns all tenants, newest first. It must run unscoped; in
// a couple's scope it would only ever return that couple's tenant.
func (s *Service) ListTenants(ctx context.Context, opts transport.ListOptions) (*api.List[api.Tenant], error) {
	limit := s.pageSize(opts.Limit)
	recs, err := s.db.FindMany(ctx, model.Tenant, storage.Query{
		OrderBy: "created_at",
		Desc:    true,
		Limit:   limit + 1,
		Offset:  opts.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}

	hasMore := len(recs) > limit
	if hasMore {
		recs = recs[:limit]
	}
	tenants := make([]api.Tenant, 0, len(recs))
	for _, rec := range recs {
		tenants = append(tenants, toTenant(rec))
	}
	list := api.NewList(tenants, hasMore)
	return &list, nil
}

// HealthCheck verifies the backing store is reachable.
func (s *Service) HealthCheck(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}

// updateOne applies set to one record and reports a miss as ErrNotFound.
func (s *Service) updateOne(ctx context.Context, db storage.Client, m *model.Model, id string, set storage.Record) error {
	n, err := storage.Update(ctx, db, m, id, set)
	if err != nil {
		return fmt.Errorf("update %s: %w", m.Name, err)
	}
	if n == 0 {
		return fmt.Errorf("update %s: %w", m.Name, storage.ErrNotFound)
	}
	return nil
}

func (s *Service) findRSVP(ctx context.Context, db storage.Client, guestID string) (storage.Record, error) {
	recs, err := db.FindMany(ctx, model.RSVP, storage.Query{
		Where: storage.Filter{storage.Eq{Column: "guest_id", Value: guestID}},
		Limit: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("find rsvp: %w", err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

func (s *Service) pageSize(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultPageSize
	}
	if limit > s.cfg.MaxPageSize {
		return s.cfg.MaxPageSize
	}
	return limit
}
