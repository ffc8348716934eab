package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/planera-app/planera-backend/api/routes"
	"github.com/planera-app/planera-backend/internal/finance"
	"github.com/planera-app/planera-backend/internal/packs"
	"github.com/planera-app/planera-backend/internal/payments"
	"github.com/planera-app/planera-backend/internal/reservations"
	"github.com/planera-app/planera-backend/internal/securityaudit"
	"github.com/planera-app/planera-backend/internal/visibility"
	"github.com/planera-app/planera-backend/pkg/config"
	"github.com/planera-app/planera-backend/pkg/db"
	"github.com/planera-app/planera-backend/pkg/instance"
	"github.com/planera-app/planera-backend/pkg/logger"
	"github.com/planera-app/planera-backend/pkg/metrics"
	"github.com/planera-app/planera-backend/pkg/migrate"
	"github.com/planera-app/planera-backend/pkg/outbox"
	"github.com/planera-app/planera-backend/pkg/redis"
)

const (
	serviceName     = "api"
	shutdownTimeout = 10 * time.Second
)

func main() {
	bootCtx := context.Background()
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(bootCtx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	mustBoot(bootCtx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	mustBoot(bootCtx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(bootCtx, "error closing database", err)
		}
	}()

	mustBoot(bootCtx, logg, "dev migrations", migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient))

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	mustBoot(bootCtx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(bootCtx, "error closing redis", err)
		}
	}()

	auditRecorder, err := securityaudit.NewRecorder(securityaudit.NewRepository(dbClient.DB()), logg)
	mustBoot(bootCtx, logg, "security audit recorder", err)

	paymentService, err := buildPaymentService(cfg, logg, dbClient, redisClient, auditRecorder)
	mustBoot(bootCtx, logg, "payment service", err)

	addr := ":" + listenPort(cfg)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	webhookMetrics := metrics.NewWebhookMetrics(prometheus.DefaultRegisterer)
	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, paymentService, auditRecorder, webhookMetrics),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-shutdownCtx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "api server shutdown", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped gracefully")
}

// buildPaymentService assembles the reconciliation service and the
// finance helpers it dispatches to, all bound to the same database.
func buildPaymentService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, audit *securityaudit.Recorder) (payments.Service, error) {
	commissions, err := finance.NewCommissionService(finance.NewEstablishmentRepository(dbClient.DB()))
	if err != nil {
		return nil, err
	}
	escrow, err := finance.NewEscrowService(finance.NewLedgerRepository(dbClient.DB()))
	if err != nil {
		return nil, err
	}
	invoices, err := finance.NewInvoiceService(finance.NewInvoiceRepository(dbClient.DB()))
	if err != nil {
		return nil, err
	}

	return payments.NewService(payments.Deps{
		DB:           dbClient,
		Reservations: reservations.NewRepository(dbClient.DB()),
		Packs:        packs.NewRepository(dbClient.DB()),
		Visibility:   visibility.NewRepository(dbClient.DB()),
		Outbox:       outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Commissions:  commissions,
		Escrow:       escrow,
		Invoices:     invoices,
		Audit:        audit,
		Cache:        redisClient,
		Config: payments.Config{
			AmountToleranceCents:    cfg.Webhook.AmountToleranceCents,
			OverpaymentCeilingCents: cfg.Webhook.OverpaymentCeilingCents,
			DedupTTL:                cfg.Webhook.DedupTTL,
		},
		Logger: logg,
	})
}

// listenPort lets PORT override the configured port, which most
// container platforms set for the process.
func listenPort(cfg *config.Config) string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return cfg.App.Port
}

func mustBoot(ctx context.Context, logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "bootstrap failed: "+step, err)
	os.Exit(1)
}
