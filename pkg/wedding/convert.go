package wedding

import (
	"github.com/altarhq/altar/pkg/api"
	"github.com/altarhq/altar/pkg/storage"
)

func toTenant(rec storage.Record) api.Tenant {
	return api.Tenant{
		ID:             rec.String("id"),
		Slug:           rec.String("slug"),
		CustomDomain:   rec.String("custom_domain"),
		DomainVerified: rec.Bool("domain_verified"),
		CreatedAt:      rec.Time("created_at"),
	}
}

func toWedding(rec storage.Record) *api.Wedding {
	return &api.Wedding{
		ID:        rec.String("id"),
		TenantID:  rec.String("tenant_id"),
		Title:     rec.String("title"),
		Date:      rec.String("date"),
		Venue:     rec.String("venue"),
		CreatedAt: rec.Time("created_at"),
	}
}

func toGuest(rec storage.Record) api.Guest {
	return api.Guest{
		ID:        rec.String("id"),
		WeddingID: rec.String("wedding_id"),
		Name:      rec.String("name"),
		Email:     rec.String("email"),
		PartySize: int(rec.Int("party_size")),
		TableID:   rec.String("table_id"),
		CreatedAt: rec.Time("created_at"),
	}
}

func toRSVP(rec storage.Record) *api.RSVP {
	r := &api.RSVP{
		ID:      rec.String("id"),
		GuestID: rec.String("guest_id"),
		Status:  api.RSVPStatus(rec.String("status")),
		Meal:    rec.String("meal"),
		Note:    rec.String("note"),
	}
	if rec["responded_at"] != nil {
		t := rec.Time("responded_at")
		r.RespondedAt = &t
	}
	return r
}

func toEvent(rec storage.Record) api.Event {
	return api.Event{
		ID:        rec.String("id"),
		WeddingID: rec.String("wedding_id"),
		Name:      rec.String("name"),
		StartsAt:  rec.Time("starts_at"),
		Location:  rec.String("location"),
	}
}

// nullable stores empty strings as NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
