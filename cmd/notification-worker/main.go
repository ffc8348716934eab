package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/planera-app/planera-backend/internal/notifications"
	"github.com/planera-app/planera-backend/pkg/config"
	"github.com/planera-app/planera-backend/pkg/db"
	"github.com/planera-app/planera-backend/pkg/instance"
	"github.com/planera-app/planera-backend/pkg/logger"
	"github.com/planera-app/planera-backend/pkg/outbox/idempotency"
	"github.com/planera-app/planera-backend/pkg/pubsub"
	"github.com/planera-app/planera-backend/pkg/redis"
)

const serviceName = "notification-worker"

func main() {
	bootCtx := context.Background()
	logg := logger.New(logger.Options{ServiceName: serviceName})

	_ = godotenv.Load()

	cfg, err := config.Load()
	mustBoot(bootCtx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	mustBoot(bootCtx, logg, "database", err)
	defer dbClient.Close()

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	mustBoot(bootCtx, logg, "redis", err)
	defer redisClient.Close()

	pubsubClient, err := pubsub.NewClient(bootCtx, cfg.GCP, cfg.PubSub, logg)
	mustBoot(bootCtx, logg, "pubsub", err)
	defer pubsubClient.Close()

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	mustBoot(bootCtx, logg, "idempotency manager", err)

	consumer, err := notifications.NewConsumer(
		notifications.NewRepository(dbClient.DB()),
		notifications.NewMailer(cfg.Mailer, logg),
		pubsubClient.NotificationSubscription(),
		manager,
		logg,
	)
	mustBoot(bootCtx, logg, "notification consumer", err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"serviceKind": serviceName,
		"env":         cfg.App.Env,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "notification worker ready")

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "notification worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "notification worker shutting down gracefully")
}

func mustBoot(ctx context.Context, logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "bootstrap failed: "+step, err)
	os.Exit(1)
}
