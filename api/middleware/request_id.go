package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/planera-app/planera-backend/pkg/logger"
)

// requestIDHeader is echoed back on every response so callers can
// correlate their logs with ours.
const requestIDHeader = "X-Request-Id"

// RequestID tags each request with an id and threads it through the
// logger context for every downstream log line.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := requestIDFrom(r)
			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestIDFrom returns the caller's X-Request-Id when it parses as a
// UUID, otherwise a fresh one. The id ends up in log fields, so free
// text from the wire is not trusted.
func requestIDFrom(r *http.Request) string {
	if raw := r.Header.Get(requestIDHeader); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return id.String()
		}
	}
	return uuid.NewString()
}
