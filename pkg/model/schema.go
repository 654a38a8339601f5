package model

// Tenant is the isolation boundary: one couple's account.
var Tenant = &Model{
	Name:      "tenant",
	Table:     "tenants",
	IDPrefix:  "tnt_",
	Columns:   []string{"id", "slug", "custom_domain", "domain_verified", "created_at"},
	Unique:    []string{"slug", "custom_domain"},
	Immutable: []string{"slug", "created_at"},
	Owner:     Ownership{Kind: Self},
}

// Wedding is the tenant-owned aggregate root.
var Wedding = &Model{
	Name:      "wedding",
	Table:     "weddings",
	IDPrefix:  "wed_",
	Columns:   []string{"id", "tenant_id", "title", "date", "venue", "created_at"},
	Immutable: []string{"created_at"},
	Owner:     Ownership{Kind: Direct, Column: "tenant_id"},
}

// Guest is invited to a wedding.
var Guest = &Model{
	Name:      "guest",
	Table:     "guests",
	IDPrefix:  "gst_",
	Columns:   []string{"id", "wedding_id", "name", "email", "party_size", "table_id", "created_at"},
	Immutable: []string{"created_at"},
	Owner:     Ownership{Kind: Parent, Column: "wedding_id", Parent: Wedding},
}

// RSVP is a guest's reply. It reaches its tenant through the guest.
var RSVP = &Model{
	Name:     "rsvp",
	Table:    "rsvps",
	IDPrefix: "rsv_",
	Columns:  []string{"id", "guest_id", "status", "meal", "note", "responded_at"},
	Unique:   []string{"guest_id"},
	Owner:    Ownership{Kind: Parent, Column: "guest_id", Parent: Guest},
}

// Event is a scheduled part of the wedding (ceremony, reception, ...).
var Event = &Model{
	Name:     "event",
	Table:    "events",
	IDPrefix: "evt_",
	Columns:  []string{"id", "wedding_id", "name", "starts_at", "location"},
	Owner:    Ownership{Kind: Parent, Column: "wedding_id", Parent: Wedding},
}

// SeatingTable is a table on the seating chart.
var SeatingTable = &Model{
	Name:     "seating_table",
	Table:    "seating_tables",
	IDPrefix: "tbl_",
	Columns:  []string{"id", "wedding_id", "label", "capacity"},
	Owner:    Ownership{Kind: Parent, Column: "wedding_id", Parent: Wedding},
}

// Gift is a registry entry.
var Gift = &Model{
	Name:     "gift",
	Table:    "gifts",
	IDPrefix: "gft_",
	Columns:  []string{"id", "wedding_id", "name", "url", "claimed_by"},
	Owner:    Ownership{Kind: Parent, Column: "wedding_id", Parent: Wedding},
}

// Photo is a shared photo. Blob contents live outside the database; only
// the object key is stored.
var Photo = &Model{
	Name:     "photo",
	Table:    "photos",
	IDPrefix: "pho_",
	Columns:  []string{"id", "wedding_id", "caption", "object_key", "approved"},
	Owner:    Ownership{Kind: Parent, Column: "wedding_id", Parent: Wedding},
}

// Default returns a registry holding the altar schema.
func Default() *Registry {
	r := NewRegistry()
	r.MustRegister(Tenant, Wedding, Guest, RSVP, Event, SeatingTable, Gift, Photo)
	return r
}
