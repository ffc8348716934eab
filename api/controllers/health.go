package controllers

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/planera-app/planera-backend/api/responses"
	"github.com/planera-app/planera-backend/pkg/config"
	"github.com/planera-app/planera-backend/pkg/db"
	pkgerrors "github.com/planera-app/planera-backend/pkg/errors"
	"github.com/planera-app/planera-backend/pkg/logger"
	"github.com/planera-app/planera-backend/pkg/redis"
)

const readinessTimeout = 5 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Planera-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady answers 200 only when every backing dependency does. The
// webhook path needs both the datastore and the replay cache, so a failed
// ping takes the instance out of rotation.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbClient db.Pinger, redisClient redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		w.Header().Set("X-Planera-Env", cfg.App.Env)

		checks := map[string]error{}
		if dbClient != nil {
			checks["postgres"] = dbClient.Ping(ctx)
		}
		if redisClient != nil {
			checks["redis"] = redisClient.Ping(ctx)
		}

		var failed []string
		for name, err := range checks {
			if err == nil {
				continue
			}
			failed = append(failed, name)
			if logg != nil {
				logg.Error(logg.WithField(ctx, "dependency", name), "readiness check failed", err)
			}
		}
		if len(failed) > 0 {
			sort.Strings(failed)
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable: "+strings.Join(failed, ", ")))
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
