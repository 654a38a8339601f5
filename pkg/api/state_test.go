package api

import (
	"strings"
	"testing"
)

func TestValidateRSVPTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    RSVPStatus
		to      RSVPStatus
		wantErr bool
	}{
		// Valid transitions
		{name: "first reply pending", from: "", to: RSVPStatusPending, wantErr: false},
		{name: "first reply attending", from: "", to: RSVPStatusAttending, wantErr: false},
		{name: "first reply declined", from: "", to: RSVPStatusDeclined, wantErr: false},
		{name: "pending to attending", from: RSVPStatusPending, to: RSVPStatusAttending, wantErr: false},
		{name: "pending to declined", from: RSVPStatusPending, to: RSVPStatusDeclined, wantErr: false},
		{name: "attending to declined", from: RSVPStatusAttending, to: RSVPStatusDeclined, wantErr: false},
		{name: "declined to attending", from: RSVPStatusDeclined, to: RSVPStatusAttending, wantErr: false},
		{name: "attending meal change", from: RSVPStatusAttending, to: RSVPStatusAttending, wantErr: false},

		// Invalid transitions
		{name: "attending back to pending", from: RSVPStatusAttending, to: RSVPStatusPending, wantErr: true},
		{name: "declined back to pending", from: RSVPStatusDeclined, to: RSVPStatusPending, wantErr: true},
		{name: "pending to pending", from: RSVPStatusPending, to: RSVPStatusPending, wantErr: true},
		{name: "unknown target", from: RSVPStatusPending, to: "maybe", wantErr: true},
		{name: "unknown source", from: "maybe", to: RSVPStatusAttending, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRSVPTransition(tt.from, tt.to)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ValidateRSVPTransition(%q, %q) = nil, want error", tt.from, tt.to)
				} else if !strings.Contains(err.Message, "invalid transition") {
					t.Errorf("error message %q does not contain \"invalid transition\"", err.Message)
				}
			} else if err != nil {
				t.Errorf("ValidateRSVPTransition(%q, %q) = %v, want nil", tt.from, tt.to, err)
			}
		})
	}
}

func TestRSVPStatusValid(t *testing.T) {
	for _, s := range []RSVPStatus{RSVPStatusPending, RSVPStatusAttending, RSVPStatusDeclined} {
		if !s.Valid() {
			t.Errorf("%q.Valid() = false", s)
		}
	}
	for _, s := range []RSVPStatus{"", "maybe", "ATTENDING"} {
		if s.Valid() {
			t.Errorf("%q.Valid() = true", s)
		}
	}
}
