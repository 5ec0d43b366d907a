package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/powdertracker/powdertracker/internal/api/models"
)

// Recovery turns handler panics into a logged 500 JSON error and counts them.
// http.ErrAbortHandler is re-panicked so the server can abort the connection.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	panics, err := otel.Meter(meterName).Int64Counter(
		"http.server.panics",
		metric.WithDescription("Handler panics recovered by the server"),
		metric.WithUnit("{panic}"),
	)
	if err != nil {
		log.Warn().Err(err).Msg("panic counter unavailable")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if e, ok := rec.(error); ok && errors.Is(e, http.ErrAbortHandler) {
					panic(rec)
				}

				requestID := GetRequestID(r.Context())
				route := routePattern(r)

				if panics != nil {
					panics.Add(r.Context(), 1, metric.WithAttributes(attribute.String("http.route", route)))
				}

				log.Error().
					Str("request_id", requestID).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("route", route).
					Interface("error", rec).
					Str("stack", string(debug.Stack())).
					Msg("panic recovered")

				models.NewInternalError(requestID, "An unexpected error occurred").Write(w)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
