package transport

import (
	"context"

	"github.com/altarhq/altar/pkg/api"
)

// ListOptions controls pagination for list operations.
type ListOptions struct {
	Limit  int // Maximum number of items to return (default 20, max 100).
	Offset int // Number of items to skip.
}

// Service is the contract between the HTTP layer and the wedding domain.
// Every method except Signup and ListTenants expects the context to carry
// the caller's tenant; the implementation never receives tenant ids as
// arguments.
type Service interface {
	// Signup creates a tenant and its wedding atomically.
	Signup(ctx context.Context, req *api.SignupRequest) (*api.SignupResponse, error)

	// GetWedding returns the wedding of the tenant in scope.
	GetWedding(ctx context.Context) (*api.Wedding, error)

	// UpdateWedding patches the wedding of the tenant in scope.
	UpdateWedding(ctx context.Context, req *api.UpdateWeddingRequest) (*api.Wedding, error)

	ListGuests(ctx context.Context, opts ListOptions) (*api.List[api.Guest], error)
	CreateGuest(ctx context.Context, req *api.CreateGuestRequest) (*api.Guest, error)
	GetGuest(ctx context.Context, id string) (*api.Guest, error)
	UpdateGuest(ctx context.Context, id string, req *api.UpdateGuestRequest) (*api.Guest, error)
	DeleteGuest(ctx context.Context, id string) error

	// PutRSVP creates or replaces the reply of a guest.
	PutRSVP(ctx context.Context, guestID string, req *api.RSVPRequest) (*api.RSVP, error)

	ListEvents(ctx context.Context) (*api.List[api.Event], error)
	CreateEvent(ctx context.Context, req *api.CreateEventRequest) (*api.Event, error)
	DeleteEvent(ctx context.Context, id string) error

	// Dashboard aggregates counts for the tenant in scope.
	Dashboard(ctx context.Context) (*api.Dashboard, error)

	// ListTenants returns every tenant. Callers must run it unscoped.
	ListTenants(ctx context.Context, opts ListOptions) (*api.List[api.Tenant], error)

	// HealthCheck verifies the backing store is reachable.
	HealthCheck(ctx context.Context) error
}
