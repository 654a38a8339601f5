package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/altarhq/altar/pkg/api"
	"github.com/altarhq/altar/pkg/storage"
	"github.com/altarhq/altar/pkg/tenancy"
)

// HTTPStatusFromError maps an APIError type to the corresponding HTTP status
// code. Transport-level errors (body too large, unsupported content type)
// are handled separately by the HTTP adapter.
func HTTPStatusFromError(err *api.APIError) int {
	switch err.Type {
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorTypeNotFound:
		return http.StatusNotFound
	case api.ErrorTypeConflict:
		return http.StatusConflict
	case api.ErrorTypeForbidden:
		return http.StatusForbidden
	case api.ErrorTypeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse writes a JSON error response using the ErrorResponse
// wrapper format from pkg/api. It sets the Content-Type header and writes
// the HTTP status code.
func WriteErrorResponse(w http.ResponseWriter, apiErr *api.APIError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}

// WriteAPIError writes an APIError response, deriving the HTTP status code
// from the error type.
func WriteAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	WriteErrorResponse(w, apiErr, HTTPStatusFromError(apiErr))
}

// ToAPIError converts a service or storage error into the APIError
// presented to clients. Internal details of unexpected errors are not
// exposed.
func ToAPIError(err error) *api.APIError {
	var apiErr *api.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, storage.ErrNotFound):
		return api.NewNotFoundError("resource not found")
	case errors.Is(err, storage.ErrConflict):
		return api.NewConflictError("", "resource already exists")
	case errors.Is(err, storage.ErrImmutableField):
		return api.NewInvalidRequestError("", "field cannot be changed")
	default:
		return api.NewServerError("internal server error")
	}
}

// WriteError logs err when it is a server-side failure and writes the
// matching APIError response.
func WriteError(ctx context.Context, w http.ResponseWriter, err error) {
	apiErr := ToAPIError(err)
	if apiErr.Type == api.ErrorTypeServerError {
		msg := "request failed"
		if errors.Is(err, tenancy.ErrMissingTenantContext) {
			msg = "data access outside tenant scope"
		}
		slog.ErrorContext(ctx, msg,
			"request_id", RequestIDFromContext(ctx),
			"error", err.Error(),
		)
	}
	WriteAPIError(w, apiErr)
}
