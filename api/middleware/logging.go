package middleware

import (
	"net/http"
	"time"

	"github.com/planera-app/planera-backend/pkg/logger"
)

// Logging emits one line when a request arrives and one when it
// finishes, carrying method, path, status, response size, and latency.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logg == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := logg.WithFields(r.Context(), map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			logg.Info(ctx, "request started")

			tracker := &responseTracker{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(tracker, r.WithContext(ctx))

			ctx = logg.WithFields(ctx, map[string]any{
				"status":      tracker.status,
				"bytes":       tracker.bytes,
				"duration_ms": time.Since(start).Milliseconds(),
			})
			logg.Info(ctx, "request completed")
		})
	}
}

// responseTracker records what the handler wrote. status starts at 200
// because net/http sends that when a handler writes a body without
// calling WriteHeader first.
type responseTracker struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (t *responseTracker) WriteHeader(code int) {
	t.status = code
	t.ResponseWriter.WriteHeader(code)
}

func (t *responseTracker) Write(p []byte) (int, error) {
	n, err := t.ResponseWriter.Write(p)
	t.bytes += n
	return n, err
}
