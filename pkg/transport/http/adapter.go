package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/altarhq/altar/pkg/api"
	"github.com/altarhq/altar/pkg/auth"
	"github.com/altarhq/altar/pkg/transport"
)

// Adapter serves the altar API over HTTP.
// It routes requests to the Service and serializes responses.
type Adapter struct {
	svc     transport.Service
	mux     *http.ServeMux
	config  Config
	authMW  transport.Middleware
	siteMW  transport.Middleware
	metrics http.Handler
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64
	MetricsPath string // empty disables the metrics endpoint
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 1 << 20, // 1 MB
		MetricsPath: "/metrics",
	}
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithAuth sets the middleware that authenticates /v1 requests and
// establishes the tenant scope. Without it every request runs unscoped.
func WithAuth(mw transport.Middleware) AdapterOption {
	return func(a *Adapter) { a.authMW = mw }
}

// WithSite sets the middleware that scopes public /site requests by host.
// Without it the /site endpoints are not registered.
func WithSite(mw transport.Middleware) AdapterOption {
	return func(a *Adapter) { a.siteMW = mw }
}

// WithMetricsHandler replaces the default Prometheus handler.
func WithMetricsHandler(h http.Handler) AdapterOption {
	return func(a *Adapter) { a.metrics = h }
}

// NewAdapter creates an HTTP adapter for svc.
func NewAdapter(svc transport.Service, cfg Config, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		svc:     svc,
		mux:     http.NewServeMux(),
		config:  cfg,
		metrics: promhttp.Handler(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.config.MaxBodySize <= 0 {
		a.config.MaxBodySize = DefaultConfig().MaxBodySize
	}

	a.mux.HandleFunc("POST /v1/signup", a.handleSignup)

	a.mux.HandleFunc("GET /v1/wedding", a.handleGetWedding)
	a.mux.HandleFunc("PATCH /v1/wedding", a.handleUpdateWedding)

	a.mux.HandleFunc("GET /v1/guests", a.handleListGuests)
	a.mux.HandleFunc("POST /v1/guests", a.handleCreateGuest)
	a.mux.HandleFunc("GET /v1/guests/{id}", a.handleGetGuest)
	a.mux.HandleFunc("PATCH /v1/guests/{id}", a.handleUpdateGuest)
	a.mux.HandleFunc("DELETE /v1/guests/{id}", a.handleDeleteGuest)
	a.mux.HandleFunc("PUT /v1/guests/{id}/rsvp", a.handlePutRSVP)

	a.mux.HandleFunc("GET /v1/events", a.handleListEvents)
	a.mux.HandleFunc("POST /v1/events", a.handleCreateEvent)
	a.mux.HandleFunc("DELETE /v1/events/{id}", a.handleDeleteEvent)

	a.mux.HandleFunc("GET /v1/dashboard", a.handleDashboard)

	a.mux.Handle("GET /v1/admin/tenants", auth.RequireAdmin(http.HandlerFunc(a.handleListTenants)))

	if a.siteMW != nil {
		a.mux.Handle("GET /site/wedding", a.siteMW(http.HandlerFunc(a.handleGetWedding)))
		a.mux.Handle("GET /site/events", a.siteMW(http.HandlerFunc(a.handleListEvents)))
	}

	a.mux.HandleFunc("GET /healthz", a.handleHealthz)
	a.mux.HandleFunc("GET /readyz", a.handleReadyz)
	if a.config.MetricsPath != "" {
		a.mux.Handle("GET "+a.config.MetricsPath, a.metrics)
	}

	return a
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest.
func (a *Adapter) Handler() http.Handler {
	if a.authMW == nil {
		return a.mux
	}
	return a.authMW(a.mux)
}

// handleSignup handles POST /v1/signup.
func (a *Adapter) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req api.SignupRequest
	if !a.decode(w, r, &req) {
		return
	}
	resp, err := a.svc.Signup(r.Context(), &req)
	if err != nil {
		transport.WriteError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *Adapter) handleGetWedding(w http.ResponseWriter, r *http.Request) {
	wedding, err := a.svc.GetWedding(r.Context())
	if err != nil {
		transport.WriteError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, wedding)
}

func (a *Adapter) handleUpdateWedding(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateWeddingRequest
	if !a.decode(w, r, &req) {
		return
	}
	wedding, err := a.svc.UpdateWedding(r.Context(), &req)
	if err != nil {
		transport.WriteError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, wedding)
}

func (a *Adapter) handleListGuests(w http.ResponseWriter, r *http.Request) {
	opts, apiErr := parseListOptions(r)
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}
	list, err := a.svc.ListGuests(r.Context(), opts)
	if err != nil {
		transport.WriteError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *Adapter) handleCreateGuest(w http.ResponseWriter, r *http.Request) {
	var req api.CreateGuestRequest
	if !a.decode(w, r, &req) {
		return
	}
	guest, err := a.svc.CreateGuest(r.Context(), &req)
	if err != nil {
		transport.WriteError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, guest)
}

func (a *Adapter) handleGetGuest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "gst_", "guest")
	if !ok {
		return
	}
	guest, err := a.svc.GetGuest(r.Context(), id)
	if err != nil {
		transport.WriteError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, guest)
}

func (a *Adapter) handleUpdateGuest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "gst_", "guest")
	if !ok {
		return
	}
	var req api.UpdateGuestRequest
	if !a.decode(w, r, &req) {
		return
	}
	guest, err := a.svc.UpdateGuest(r.Context(), id, &req)
	if err != nil {
		transport.WriteError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, guest)
}

func (a *Adapter) handleDeleteGuest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "gst_", "guest")
	if !ok {
		return
	}
	if err := a.svc.DeleteGuest(r.Context(), id); err != nil {
		transport.WriteError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePutRSVP handles PUT /v1/guests/{id}/rsvp.
func (a *Adapter) handlePutRSVP(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "gst_", "guest")
	if !ok {
		return
	}
	var req api.RSVPRequest
	if !a.decode(w, r, &req) {
		return
	}
	rsvp, err := a.svc.PutRSVP(r.Context(), id, &req)
	if err != nil {
		transport.WriteError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, rsvp)
}

func (a *Adapter) handleListEvents(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.ListEvents(r.Context())
	if err != nil {
		transport.WriteError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *Adapter) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req api.CreateEventRequest
	if !a.decode(w, r, &req) {
		return
	}
	event, err := a.svc.CreateEvent(r.Context(), &req)
	if err != nil {
		transport.WriteError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (a *Adapter) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "evt_", "event")
	if !ok {
		return
	}
	if err := a.svc.DeleteEvent(r.Context(), id); err != nil {
		transport.WriteError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDashboard handles GET /v1/dashboard.
func (a *Adapter) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := a.svc.Dashboard(r.Context())
	if err != nil {
		transport.WriteError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleListTenants handles GET /v1/admin/tenants. RequireAdmin guarantees
// the request runs unscoped.
func (a *Adapter) handleListTenants(w http.ResponseWriter, r *http.Request) {
	opts, apiErr := parseListOptions(r)
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}
	list, err := a.svc.ListTenants(r.Context(), opts)
	if err != nil {
		transport.WriteError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *Adapter) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports whether the backing store is reachable.
func (a *Adapter) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.HealthCheck(r.Context()); err != nil {
		transport.WriteErrorResponse(w, api.NewServerError("storage unavailable"), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// decode reads a JSON request body into dst. It writes the error response
// and returns false when the body is unacceptable.
func (a *Adapter) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return false
		}
		transport.WriteAPIError(w, api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()))
		return false
	}
	return true
}

// pathID extracts and validates the {id} path value.
func pathID(w http.ResponseWriter, r *http.Request, prefix, kind string) (string, bool) {
	id := r.PathValue("id")
	if !api.ValidateID(prefix, id) {
		transport.WriteAPIError(w, api.NewInvalidRequestError("id", "malformed "+kind+" ID"))
		return "", false
	}
	return id, true
}

// parseListOptions extracts pagination parameters from the query string.
func parseListOptions(r *http.Request) (transport.ListOptions, *api.APIError) {
	q := r.URL.Query()
	var opts transport.ListOptions

	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 1 {
			return opts, api.NewInvalidRequestError("limit", "limit must be a positive integer")
		}
		opts.Limit = limit
	}
	if s := q.Get("offset"); s != "" {
		offset, err := strconv.Atoi(s)
		if err != nil || offset < 0 {
			return opts, api.NewInvalidRequestError("offset", "offset must be a non-negative integer")
		}
		opts.Offset = offset
	}
	return opts, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
