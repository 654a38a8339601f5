package api

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
)

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxNameLength int
	MaxNoteLength int
	MaxPartySize  int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxNameLength: 200,
		MaxNoteLength: 2000,
		MaxPartySize:  20,
	}
}

// DateLayout is the wire format of wedding dates.
const DateLayout = "2006-01-02"

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,61}[a-z0-9]$`)

// reservedSlugs cannot be claimed because they collide with platform hosts.
var reservedSlugs = map[string]bool{
	"www": true, "api": true, "app": true, "admin": true, "mail": true, "static": true,
}

// ValidateSlug checks that slug can serve as a subdomain label.
func ValidateSlug(slug string) *APIError {
	if slug == "" {
		return NewInvalidRequestError("slug", "slug is required")
	}
	if !slugPattern.MatchString(slug) || strings.Contains(slug, "--") {
		return NewInvalidRequestError("slug",
			"slug must be 3-63 lowercase letters, digits or single hyphens, and not start or end with a hyphen")
	}
	if reservedSlugs[slug] {
		return NewInvalidRequestError("slug", fmt.Sprintf("slug %q is reserved", slug))
	}
	return nil
}

// ValidateSignup checks a SignupRequest. It returns an *APIError describing
// the first validation failure, or nil if the request is valid.
func ValidateSignup(req *SignupRequest, cfg ValidationConfig) *APIError {
	if err := ValidateSlug(req.Slug); err != nil {
		return err
	}
	if err := requireText("title", req.Title, cfg.MaxNameLength); err != nil {
		return err
	}
	return validateDate(req.Date)
}

// ValidateUpdateWedding checks an UpdateWeddingRequest.
func ValidateUpdateWedding(req *UpdateWeddingRequest, cfg ValidationConfig) *APIError {
	if req.Title == nil && req.Date == nil && req.Venue == nil {
		return NewInvalidRequestError("", "at least one field must be set")
	}
	if req.Title != nil {
		if err := requireText("title", *req.Title, cfg.MaxNameLength); err != nil {
			return err
		}
	}
	if req.Date != nil {
		if err := validateDate(*req.Date); err != nil {
			return err
		}
	}
	if req.Venue != nil && len(*req.Venue) > cfg.MaxNameLength {
		return tooLong("venue", cfg.MaxNameLength)
	}
	return nil
}

// ValidateCreateGuest checks a CreateGuestRequest.
func ValidateCreateGuest(req *CreateGuestRequest, cfg ValidationConfig) *APIError {
	if err := requireText("name", req.Name, cfg.MaxNameLength); err != nil {
		return err
	}
	if err := validateEmail(req.Email); err != nil {
		return err
	}
	if req.PartySize != 0 {
		return validatePartySize(req.PartySize, cfg)
	}
	return nil
}

// ValidateUpdateGuest checks an UpdateGuestRequest.
func ValidateUpdateGuest(req *UpdateGuestRequest, cfg ValidationConfig) *APIError {
	if req.Name == nil && req.Email == nil && req.PartySize == nil && req.TableID == nil {
		return NewInvalidRequestError("", "at least one field must be set")
	}
	if req.Name != nil {
		if err := requireText("name", *req.Name, cfg.MaxNameLength); err != nil {
			return err
		}
	}
	if req.Email != nil {
		if err := validateEmail(*req.Email); err != nil {
			return err
		}
	}
	if req.PartySize != nil {
		if err := validatePartySize(*req.PartySize, cfg); err != nil {
			return err
		}
	}
	if req.TableID != nil && *req.TableID != "" && !ValidateID("tbl_", *req.TableID) {
		return NewInvalidRequestError("table_id", "invalid table ID format")
	}
	return nil
}

// ValidateRSVP checks an RSVPRequest. Transition rules are checked
// separately against the stored status with ValidateRSVPTransition.
func ValidateRSVP(req *RSVPRequest, cfg ValidationConfig) *APIError {
	if !req.Status.Valid() {
		return NewInvalidRequestError("status",
			fmt.Sprintf("status must be %q, %q or %q", RSVPStatusPending, RSVPStatusAttending, RSVPStatusDeclined))
	}
	if len(req.Meal) > cfg.MaxNameLength {
		return tooLong("meal", cfg.MaxNameLength)
	}
	if len(req.Note) > cfg.MaxNoteLength {
		return tooLong("note", cfg.MaxNoteLength)
	}
	return nil
}

// ValidateCreateEvent checks a CreateEventRequest.
func ValidateCreateEvent(req *CreateEventRequest, cfg ValidationConfig) *APIError {
	if err := requireText("name", req.Name, cfg.MaxNameLength); err != nil {
		return err
	}
	if req.StartsAt.IsZero() {
		return NewInvalidRequestError("starts_at", "starts_at is required")
	}
	if len(req.Location) > cfg.MaxNameLength {
		return tooLong("location", cfg.MaxNameLength)
	}
	return nil
}

func requireText(param, value string, maxLen int) *APIError {
	if strings.TrimSpace(value) == "" {
		return NewInvalidRequestError(param, param+" is required")
	}
	if maxLen > 0 && len(value) > maxLen {
		return tooLong(param, maxLen)
	}
	return nil
}

func tooLong(param string, maxLen int) *APIError {
	return NewInvalidRequestError(param, fmt.Sprintf("%s exceeds maximum length of %d", param, maxLen))
}

func validateDate(date string) *APIError {
	if date == "" {
		return nil
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return NewInvalidRequestError("date", "date must be formatted as YYYY-MM-DD")
	}
	return nil
}

func validateEmail(email string) *APIError {
	if email == "" {
		return nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return NewInvalidRequestError("email", "email is not a valid address")
	}
	return nil
}

func validatePartySize(n int, cfg ValidationConfig) *APIError {
	if n < 1 {
		return NewInvalidRequestError("party_size", "party_size must be positive")
	}
	if cfg.MaxPartySize > 0 && n > cfg.MaxPartySize {
		return NewInvalidRequestError("party_size",
			fmt.Sprintf("party_size exceeds maximum of %d", cfg.MaxPartySize))
	}
	return nil
}
