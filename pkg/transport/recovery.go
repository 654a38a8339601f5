package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/altarhq/altar/pkg/api"
	"github.com/altarhq/altar/pkg/tenancy"
)

// Recovery returns middleware that catches panics in the handler and
// converts them to server error responses. The server continues to
// accept new requests after a panic is recovered.
//
// A panic from tenancy.MustRequire is a data access attempted outside any
// tenant scope; it is logged as such and answered with a generic 500.
func Recovery() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rv := recover()
				if rv == nil {
					return
				}
				if rv == http.ErrAbortHandler {
					panic(rv)
				}

				err, ok := rv.(error)
				if !ok {
					err = fmt.Errorf("%v", rv)
				}
				if errors.Is(err, tenancy.ErrMissingTenantContext) {
					slog.ErrorContext(r.Context(), "data access outside tenant scope",
						"path", r.URL.Path,
						"request_id", RequestIDFromContext(r.Context()),
					)
				} else {
					slog.ErrorContext(r.Context(), "panic recovered",
						"path", r.URL.Path,
						"request_id", RequestIDFromContext(r.Context()),
						"panic", err.Error(),
					)
				}
				WriteAPIError(w, api.NewServerError("internal server error"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
