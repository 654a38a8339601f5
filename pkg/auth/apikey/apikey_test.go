package apikey

import (
	"context"
	"net/http"
	"testing"

	"github.com/altarhq/altar/pkg/auth"
)

func newTestAuth() *Authenticator {
	return New([]RawKeyEntry{
		{
			Key: "sk-test-key-1",
			Principal: auth.Principal{
				Subject:     "alice",
				Role:        auth.RoleCouple,
				TenantID:    "tnt_alice",
				ServiceTier: "standard",
			},
		},
		{
			Key: "sk-test-key-2",
			Principal: auth.Principal{
				Subject:     "ops",
				Role:        auth.RoleAdmin,
				ServiceTier: "premium",
			},
		},
	})
}

func TestValidKey(t *testing.T) {
	a := newTestAuth()
	r, _ := http.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer sk-test-key-1")

	result := a.Authenticate(context.Background(), r)

	if result.Decision != auth.Yes {
		t.Fatalf("Decision = %d, want Yes", result.Decision)
	}
	if result.Principal.Subject != "alice" {
		t.Errorf("Subject = %q, want %q", result.Principal.Subject, "alice")
	}
	if result.Principal.ServiceTier != "standard" {
		t.Errorf("ServiceTier = %q, want %q", result.Principal.ServiceTier, "standard")
	}
	if result.Principal.TenantID != "tnt_alice" {
		t.Errorf("TenantID = %q, want %q", result.Principal.TenantID, "tnt_alice")
	}
}

func TestInvalidKey(t *testing.T) {
	a := newTestAuth()
	r, _ := http.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer sk-wrong-key")

	result := a.Authenticate(context.Background(), r)

	if result.Decision != auth.No {
		t.Fatalf("Decision = %d, want No", result.Decision)
	}
}

func TestNoHeader(t *testing.T) {
	a := newTestAuth()
	r, _ := http.NewRequest("GET", "/", nil)

	result := a.Authenticate(context.Background(), r)

	if result.Decision != auth.Abstain {
		t.Fatalf("Decision = %d, want Abstain", result.Decision)
	}
}

func TestNonBearerHeader(t *testing.T) {
	a := newTestAuth()
	r, _ := http.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	result := a.Authenticate(context.Background(), r)

	if result.Decision != auth.Abstain {
		t.Fatalf("Decision = %d, want Abstain (non-Bearer)", result.Decision)
	}
}

func TestEmptyBearerToken(t *testing.T) {
	a := newTestAuth()
	r, _ := http.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer ")

	result := a.Authenticate(context.Background(), r)

	if result.Decision != auth.No {
		t.Fatalf("Decision = %d, want No (empty token)", result.Decision)
	}
}

func TestSecondKey(t *testing.T) {
	a := newTestAuth()
	r, _ := http.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer sk-test-key-2")

	result := a.Authenticate(context.Background(), r)

	if result.Decision != auth.Yes {
		t.Fatalf("Decision = %d, want Yes", result.Decision)
	}
	if result.Principal.Subject != "ops" {
		t.Errorf("Subject = %q, want %q", result.Principal.Subject, "ops")
	}
	if !result.Principal.IsAdmin() {
		t.Error("expected admin principal")
	}
}

func TestResultIsACopy(t *testing.T) {
	a := newTestAuth()
	r, _ := http.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer sk-test-key-1")

	first := a.Authenticate(context.Background(), r)
	first.Principal.TenantID = "tnt_mallory"

	second := a.Authenticate(context.Background(), r)
	if second.Principal.TenantID != "tnt_alice" {
		t.Errorf("TenantID = %q, want %q", second.Principal.TenantID, "tnt_alice")
	}
}
