package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestAPIError_Message(t *testing.T) {
	tests := []struct {
		err  *APIError
		want string
	}{
		{NewInvalidRequestError("slug", "already taken"), "invalid_request: already taken (param: slug)"},
		{NewConflictError("slug", "already taken"), "conflict: already taken (param: slug)"},
		{NewNotFoundError("guest not found"), "not_found: guest not found"},
		{NewForbiddenError("admin only"), "forbidden: admin only"},
		{NewTooManyRequestsError("slow down"), "too_many_requests: slow down"},
		{NewServerError("internal server error"), "server_error: internal server error"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestAPIError_SurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("put rsvp: %w", NewInvalidRequestError("status", "cannot return to pending"))

	var apiErr *APIError
	if !errors.As(wrapped, &apiErr) {
		t.Fatal("errors.As did not find *APIError")
	}
	if apiErr.Type != ErrorTypeInvalidRequest || apiErr.Param != "status" {
		t.Errorf("got %+v", apiErr)
	}
}

func TestErrorResponse_Wire(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			"param omitted when empty",
			NewNotFoundError("guest not found"),
			`{"error":{"type":"not_found","message":"guest not found"}}`,
		},
		{
			"param and code",
			&APIError{Type: ErrorTypeConflict, Code: "slug_taken", Param: "slug", Message: "already taken"},
			`{"error":{"type":"conflict","code":"slug_taken","param":"slug","message":"already taken"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(ErrorResponse{Error: tt.err})
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("json = %s, want %s", data, tt.want)
			}
		})
	}
}
