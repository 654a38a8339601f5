package integration

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/altarhq/altar/pkg/api"
)

func TestInvalidJSON(t *testing.T) {
	req, err := http.NewRequest(http.MethodPost, testEnv.BaseURL()+"/v1/guests", bytes.NewReader([]byte(`{invalid json`)))
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+aliceKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.StatusCode, readBody(t, resp))
	}

	var errResp api.ErrorResponse
	decodeJSON(t, resp, &errResp)
	if errResp.Error == nil {
		t.Fatal("error object is nil")
	}
	if errResp.Error.Type != api.ErrorTypeInvalidRequest {
		t.Errorf("error.type = %q, want %q", errResp.Error.Type, api.ErrorTypeInvalidRequest)
	}
}

func TestMissingCredentials(t *testing.T) {
	resp := request(t, http.MethodGet, "/v1/guests", "", nil)
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestInvalidCredentials(t *testing.T) {
	resp := request(t, http.MethodGet, "/v1/guests", "not-a-key", nil)
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestValidationError(t *testing.T) {
	resp := request(t, http.MethodPost, "/v1/guests", aliceKey, api.CreateGuestRequest{Name: ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var errResp api.ErrorResponse
	decodeJSON(t, resp, &errResp)
	if errResp.Error.Param != "name" {
		t.Errorf("error.param = %q, want %q", errResp.Error.Param, "name")
	}
}

func TestMalformedGuestID(t *testing.T) {
	resp := request(t, http.MethodGet, "/v1/guests/not-an-id", aliceKey, nil)
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestSignupSlugTaken(t *testing.T) {
	resp := request(t, http.MethodPost, "/v1/signup", "", api.SignupRequest{Slug: "alice", Title: "Impostor"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var errResp api.ErrorResponse
	decodeJSON(t, resp, &errResp)
	if errResp.Error.Type != api.ErrorTypeConflict {
		t.Errorf("error.type = %q, want %q", errResp.Error.Type, api.ErrorTypeConflict)
	}
}
