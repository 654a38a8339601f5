package api

import "time"

// Tenant is a couple's account. Only admins list tenants.
type Tenant struct {
	ID             string    `json:"id"`
	Slug           string    `json:"slug"`
	CustomDomain   string    `json:"custom_domain,omitempty"`
	DomainVerified bool      `json:"domain_verified"`
	CreatedAt      time.Time `json:"created_at"`
}

// Wedding is the aggregate root of a tenant.
type Wedding struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Title     string    `json:"title"`
	Date      string    `json:"date,omitempty"` // YYYY-MM-DD
	Venue     string    `json:"venue,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Guest is an invitee. RSVP is populated on single-guest reads.
type Guest struct {
	ID        string    `json:"id"`
	WeddingID string    `json:"wedding_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	PartySize int       `json:"party_size"`
	TableID   string    `json:"table_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	RSVP      *RSVP     `json:"rsvp,omitempty"`
}

// RSVP is a guest's reply.
type RSVP struct {
	ID          string     `json:"id"`
	GuestID     string     `json:"guest_id"`
	Status      RSVPStatus `json:"status"`
	Meal        string     `json:"meal,omitempty"`
	Note        string     `json:"note,omitempty"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

// Event is a scheduled part of the wedding.
type Event struct {
	ID        string    `json:"id"`
	WeddingID string    `json:"wedding_id"`
	Name      string    `json:"name"`
	StartsAt  time.Time `json:"starts_at"`
	Location  string    `json:"location,omitempty"`
}

// Dashboard summarizes a wedding for its couple.
type Dashboard struct {
	Wedding   *Wedding `json:"wedding"`
	Guests    int64    `json:"guests"`
	Attending int64    `json:"attending"`
	Declined  int64    `json:"declined"`
	Pending   int64    `json:"pending"`
	Events    int64    `json:"events"`
	Tables    int64    `json:"tables"`
	Gifts     int64    `json:"gifts"`
	Photos    int64    `json:"photos"`
}

// List is the envelope for collection responses.
type List[T any] struct {
	Object  string `json:"object"`
	Data    []T    `json:"data"`
	HasMore bool   `json:"has_more"`
}

// NewList wraps items in a list envelope. A nil slice encodes as [].
func NewList[T any](items []T, hasMore bool) List[T] {
	if items == nil {
		items = []T{}
	}
	return List[T]{Object: "list", Data: items, HasMore: hasMore}
}

// SignupRequest creates a tenant and its wedding.
type SignupRequest struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Date  string `json:"date,omitempty"`
	Venue string `json:"venue,omitempty"`
}

// SignupResponse is returned by a successful signup.
type SignupResponse struct {
	Tenant  *Tenant  `json:"tenant"`
	Wedding *Wedding `json:"wedding"`
}

// UpdateWeddingRequest patches a wedding. Nil fields are left unchanged.
type UpdateWeddingRequest struct {
	Title *string `json:"title,omitempty"`
	Date  *string `json:"date,omitempty"`
	Venue *string `json:"venue,omitempty"`
}

// CreateGuestRequest adds a guest to the caller's wedding.
type CreateGuestRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	PartySize int    `json:"party_size,omitempty"` // default: 1
}

// UpdateGuestRequest patches a guest. Nil fields are left unchanged; an
// empty TableID clears the seat.
type UpdateGuestRequest struct {
	Name      *string `json:"name,omitempty"`
	Email     *string `json:"email,omitempty"`
	PartySize *int    `json:"party_size,omitempty"`
	TableID   *string `json:"table_id,omitempty"`
}

// RSVPRequest records a guest's reply.
type RSVPRequest struct {
	Status RSVPStatus `json:"status"`
	Meal   string     `json:"meal,omitempty"`
	Note   string     `json:"note,omitempty"`
}

// CreateEventRequest schedules an event.
type CreateEventRequest struct {
	Name     string    `json:"name"`
	StartsAt time.Time `json:"starts_at"`
	Location string    `json:"location,omitempty"`
}

