package config

// EnvPrefix scopes every environment variable this service reads.
const EnvPrefix = "PLANERA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Env var names referenced outside struct tags (error messages, tests).
const (
	EnvAppEnv = "PLANERA_APP_ENV"
	EnvPort   = "PLANERA_APP_PORT"

	EnvDBDSN  = "PLANERA_DB_DSN"
	EnvDBHost = "PLANERA_DB_HOST"
	EnvDBUser = "PLANERA_DB_USER"
	EnvDBName = "PLANERA_DB_NAME"

	EnvRedisURL = "PLANERA_REDIS_URL"

	EnvWebhookSecret = "PLANERA_WEBHOOK_SECRET"

	EnvGCPProjectID = "PLANERA_GCP_PROJECT_ID"

	EnvPubSubPaymentsTopic   = "PLANERA_PUBSUB_PAYMENTS_TOPIC"
	EnvPubSubPaymentsSub     = "PLANERA_PUBSUB_PAYMENTS_SUBSCRIPTION"
	EnvPubSubNotificationSub = "PLANERA_PUBSUB_NOTIFICATION_SUBSCRIPTION"
)
