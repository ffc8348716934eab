package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/planera-app/planera-backend/api/controllers"
	webhookcontrollers "github.com/planera-app/planera-backend/api/controllers/webhooks"
	"github.com/planera-app/planera-backend/api/middleware"
	"github.com/planera-app/planera-backend/internal/securityaudit"
	"github.com/planera-app/planera-backend/pkg/config"
	"github.com/planera-app/planera-backend/pkg/db"
	"github.com/planera-app/planera-backend/pkg/logger"
	"github.com/planera-app/planera-backend/pkg/metrics"
	"github.com/planera-app/planera-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient db.Pinger,
	redisClient redis.Pinger,
	paymentService webhookcontrollers.PaymentService,
	audit *securityaudit.Recorder,
	webhookMetrics *metrics.WebhookMetrics,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbClient, redisClient))
	})

	var auditor webhookcontrollers.SignatureAuditor
	if audit != nil {
		auditor = audit
	}
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payments", webhookcontrollers.PaymentWebhook(paymentService, cfg.Webhook, auditor, webhookMetrics, logg))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
