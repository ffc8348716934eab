package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/planera-app/planera-backend/pkg/config"
	"github.com/planera-app/planera-backend/pkg/logger"
)

// Key layout: pln:<prefix>:<scope>:<id>. The namespace keeps this service's
// keys identifiable on shared Redis deployments.
const (
	keyNamespace      = "pln"
	idempotencyPrefix = "idempotency"
	dedupPrefix       = "webhook_dedup"
)

// commands is the slice of go-redis this package relies on, kept narrow
// so tests can substitute an in-memory implementation.
type commands interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// Client wraps the redis connection helpers needed by the platform.
type Client struct {
	cmds commands
	conn *redis.Client
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// IdempotencyStore exposes the minimal operations idempotency helpers use.
type IdempotencyStore interface {
	Get(context.Context, string) (string, error)
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(context.Context, ...string) error
}

var errNoConnection = errors.New("redis connection not ready")

// New connects to Redis, preferring the URL form of configuration, and
// verifies connectivity before handing the client out.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := parseOptions(cfg)
	if err != nil {
		return nil, err
	}

	conn := redis.NewClient(opts)
	if err := conn.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "redis connection established")
	}
	return &Client{cmds: conn, conn: conn}, nil
}

// parseOptions resolves the connection options, letting explicit URL
// fields win over the scalar config knobs.
func parseOptions(cfg config.RedisConfig) (*redis.Options, error) {
	base, err := baseOptions(cfg)
	if err != nil {
		return nil, err
	}
	if base.DB == 0 {
		base.DB = cfg.DB
	}
	fillPool(base, cfg)
	fillTimeouts(base, cfg)
	return base, nil
}

func baseOptions(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		return parsed, nil
	}
	if cfg.Address != "" {
		return &redis.Options{Addr: cfg.Address, Password: cfg.Password}, nil
	}
	return nil, errors.New("redis url or address is required")
}

func fillPool(base *redis.Options, cfg config.RedisConfig) {
	if base.PoolSize == 0 {
		base.PoolSize = cfg.PoolSize
	}
	if base.MinIdleConns == 0 {
		base.MinIdleConns = cfg.MinIdleConns
	}
}

func fillTimeouts(base *redis.Options, cfg config.RedisConfig) {
	if base.DialTimeout == 0 {
		base.DialTimeout = cfg.DialTimeout
	}
	if base.ReadTimeout == 0 {
		base.ReadTimeout = cfg.ReadTimeout
	}
	if base.WriteTimeout == 0 {
		base.WriteTimeout = cfg.WriteTimeout
	}
}

// Set writes key with an optional TTL; zero means no expiry.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.cmds == nil {
		return errNoConnection
	}
	return c.cmds.Set(ctx, key, value, ttl).Err()
}

// Get returns the value at key. A missing key surfaces as redis.Nil so
// callers can tell misses apart from transport failures.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.cmds == nil {
		return "", errNoConnection
	}
	return c.cmds.Get(ctx, key).Result()
}

// SetNX writes key only when it does not exist yet and reports whether
// this call won.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.cmds == nil {
		return false, errNoConnection
	}
	return c.cmds.SetNX(ctx, key, value, ttl).Result()
}

// Del removes the given keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.cmds == nil {
		return errNoConnection
	}
	return c.cmds.Del(ctx, keys...).Err()
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	if c.cmds == nil {
		return errNoConnection
	}
	return c.cmds.Ping(ctx).Err()
}

// Close shuts down the underlying connection if one was opened.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// IdempotencyKey returns a namespaced key for idempotency storage.
func (c *Client) IdempotencyKey(scope, id string) string {
	return namespacedKey(idempotencyPrefix, scope, id)
}

// WebhookDedupKey returns a namespaced key for the webhook fast-path dedup
// mark, scoped so event ids from different providers cannot collide.
func (c *Client) WebhookDedupKey(scope, eventID string) string {
	return namespacedKey(dedupPrefix, scope, eventID)
}

func namespacedKey(parts ...string) string {
	segments := make([]string, 0, len(parts)+1)
	segments = append(segments, keyNamespace)
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	return strings.Join(segments, ":")
}
