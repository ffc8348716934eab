package middleware

import (
	"fmt"
	"net/http"

	"github.com/planera-app/planera-backend/api/responses"
	pkgerrors "github.com/planera-app/planera-backend/pkg/errors"
	"github.com/planera-app/planera-backend/pkg/logger"
)

// Recoverer converts handler panics into a logged 500 response.
// http.ErrAbortHandler is re-raised so net/http aborts the connection
// the way the handler asked for.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				err := fmt.Errorf("panic: %v", rec)
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{"panic": rec})
					logg.Error(ctx, "recovered from handler panic", err)
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
