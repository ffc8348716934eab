package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the full environment-derived configuration for every binary in
// this repo. Binaries read the sections they need and ignore the rest.
type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Webhook      WebhookConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Mailer       MailerConfig
}

// Load reads all PLANERA_* variables and backfills the database DSN from the
// legacy per-field variables when PLANERA_DB_DSN is unset.
func Load() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, fmt.Errorf("database config: %w", err)
	}
	return cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PLANERA_APP_ENV" required:"true"`
	Port         string `envconfig:"PLANERA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PLANERA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PLANERA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// DBConfig accepts either a full DSN or the older per-field variables that
// predate it. The Legacy* fields exist only to keep old deploy manifests
// working; new environments should set PLANERA_DB_DSN.
type DBConfig struct {
	DSN    string `envconfig:"PLANERA_DB_DSN"`
	Driver string `envconfig:"PLANERA_DB_DRIVER" default:"postgres"`

	// UseSQLite points the pool at a SQLite file (DSN holds the path) so
	// the service can run without a Postgres container. Local use only.
	UseSQLite bool `envconfig:"PLANERA_USE_SQLITE" default:"false"`

	LegacyHost     string `envconfig:"PLANERA_DB_HOST"`
	LegacyPort     int    `envconfig:"PLANERA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PLANERA_DB_USER"`
	LegacyPassword string `envconfig:"PLANERA_DB_PASSWORD"`
	LegacyName     string `envconfig:"PLANERA_DB_NAME"`
	LegacySSLMode  string `envconfig:"PLANERA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PLANERA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PLANERA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PLANERA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PLANERA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PLANERA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PLANERA_REDIS_ADDR"`
	Password     string        `envconfig:"PLANERA_REDIS_PASSWORD"`
	DB           int           `envconfig:"PLANERA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PLANERA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PLANERA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PLANERA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PLANERA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PLANERA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// WebhookConfig drives the payment webhook ingress. Secret is not required
// at load time: an unset secret disables the endpoint (503) instead of
// preventing the rest of the service from booting.
type WebhookConfig struct {
	Secret                  string        `envconfig:"PLANERA_WEBHOOK_SECRET"`
	AmountToleranceCents    int64         `envconfig:"PLANERA_WEBHOOK_AMOUNT_TOLERANCE_CENTS" default:"100"`
	OverpaymentCeilingCents int64         `envconfig:"PLANERA_WEBHOOK_OVERPAYMENT_CEILING_CENTS" default:"0"`
	DedupTTL                time.Duration `envconfig:"PLANERA_WEBHOOK_DEDUP_TTL" default:"72h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PLANERA_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"PLANERA_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PLANERA_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"PLANERA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PLANERA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	PaymentsTopic            string `envconfig:"PLANERA_PUBSUB_PAYMENTS_TOPIC" default:"planera-payment-events"`
	PaymentsSubscription     string `envconfig:"PLANERA_PUBSUB_PAYMENTS_SUBSCRIPTION" required:"true"`
	NotificationTopic        string `envconfig:"PLANERA_PUBSUB_NOTIFICATION_TOPIC" default:"planera-notification-events"`
	NotificationSubscription string `envconfig:"PLANERA_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PLANERA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PLANERA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PLANERA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type MailerConfig struct {
	APIKey      string `envconfig:"PLANERA_MAILER_API_KEY"`
	DefaultFrom string `envconfig:"PLANERA_MAILER_FROM_EMAIL"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if missing := db.missingLegacyVars(); len(missing) > 0 {
		return fmt.Errorf("set %s, or complete the legacy vars (missing %s)",
			EnvDBDSN, strings.Join(missing, ", "))
	}
	db.DSN = db.legacyDSN()
	return nil
}

func (db *DBConfig) missingLegacyVars() []string {
	var missing []string
	for _, v := range []struct {
		env   string
		value string
	}{
		{EnvDBHost, db.LegacyHost},
		{EnvDBUser, db.LegacyUser},
		{EnvDBName, db.LegacyName},
	} {
		if v.value == "" {
			missing = append(missing, v.env)
		}
	}
	return missing
}

func (db *DBConfig) legacyDSN() string {
	user := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		user = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}
	dsn := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}
	if db.LegacySSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {db.LegacySSLMode}}.Encode()
	}
	return dsn.String()
}
