package api

import "fmt"

// RSVPStatus is the state of a guest's reply.
type RSVPStatus string

const (
	RSVPStatusPending   RSVPStatus = "pending"
	RSVPStatusAttending RSVPStatus = "attending"
	RSVPStatusDeclined  RSVPStatus = "declined"
)

// Valid reports whether s is a known status.
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPStatusPending, RSVPStatusAttending, RSVPStatusDeclined:
		return true
	}
	return false
}

// ValidateRSVPTransition checks whether an RSVP status transition is valid.
// An empty "from" status represents a guest who has not replied yet.
// Once a guest has answered, the reply can change but never returns to pending.
func ValidateRSVPTransition(from, to RSVPStatus) *APIError {
	valid := map[RSVPStatus][]RSVPStatus{
		"":                  {RSVPStatusPending, RSVPStatusAttending, RSVPStatusDeclined},
		RSVPStatusPending:   {RSVPStatusAttending, RSVPStatusDeclined},
		RSVPStatusAttending: {RSVPStatusAttending, RSVPStatusDeclined},
		RSVPStatusDeclined:  {RSVPStatusDeclined, RSVPStatusAttending},
	}

	allowed, exists := valid[from]
	if !exists {
		return NewInvalidRequestError("status",
			fmt.Sprintf("invalid transition from %s to %s", from, to))
	}

	for _, s := range allowed {
		if s == to {
			return nil
		}
	}

	return NewInvalidRequestError("status",
		fmt.Sprintf("invalid transition from %s to %s", from, to))
}
