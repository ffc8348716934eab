package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/planera-app/planera-backend/pkg/config"
)

func TestDedupMarkLifecycle(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmds: newFakeStore()}

	key := client.WebhookDedupKey("reservation", "evt_1")

	first, err := client.SetNX(ctx, key, "1", time.Hour)
	if err != nil {
		t.Fatalf("first SetNX: %v", err)
	}
	if !first {
		t.Fatal("first SetNX must win")
	}

	second, err := client.SetNX(ctx, key, "1", time.Hour)
	if err != nil {
		t.Fatalf("second SetNX: %v", err)
	}
	if second {
		t.Fatal("second SetNX must lose")
	}

	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del: %v", err)
	}
	third, err := client.SetNX(ctx, key, "1", time.Hour)
	if err != nil {
		t.Fatalf("third SetNX: %v", err)
	}
	if !third {
		t.Fatal("SetNX after Del must win again")
	}
}

func TestSetThenGet(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmds: newFakeStore()}

	if err := client.Set(ctx, "pln:token", "abc", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, err := client.Get(ctx, "pln:token")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if value != "abc" {
		t.Fatalf("value = %q", value)
	}
}

func TestGetMissSurfacesRedisNil(t *testing.T) {
	client := &Client{cmds: newFakeStore()}
	if _, err := client.Get(context.Background(), "pln:missing"); err != redis.Nil {
		t.Fatalf("miss error = %v, want redis.Nil", err)
	}
}

func TestKeyShapes(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("scope", "id"); got != "pln:idempotency:scope:id" {
		t.Fatalf("idempotency key = %s", got)
	}
	if got := client.WebhookDedupKey("reservation", "evt_1"); got != "pln:webhook_dedup:reservation:evt_1" {
		t.Fatalf("dedup key = %s", got)
	}
	if got := client.WebhookDedupKey("", "evt_1"); got != "pln:webhook_dedup:evt_1" {
		t.Fatalf("blank scope must be skipped, got %s", got)
	}
}

func TestBuildOptionsFillsConfigDefaults(t *testing.T) {
	opts, err := parseOptions(config.RedisConfig{
		URL:          "redis://localhost:6379/2",
		PoolSize:     15,
		MinIdleConns: 3,
		DialTimeout:  2 * time.Second,
	})
	if err != nil {
		t.Fatalf("parseOptions: %v", err)
	}
	if opts.DB != 2 {
		t.Fatalf("DB = %d, the URL value must win", opts.DB)
	}
	if opts.PoolSize != 15 || opts.MinIdleConns != 3 {
		t.Fatalf("pool settings not applied: %+v", opts)
	}
	if opts.DialTimeout != 2*time.Second {
		t.Fatalf("dial timeout = %v", opts.DialTimeout)
	}

	if _, err := parseOptions(config.RedisConfig{}); err == nil {
		t.Fatal("empty config must be rejected")
	}
}

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeStore) Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeStore) Get(ctx context.Context, key string) *redis.StringCmd {
	value, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	if _, exists := f.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeStore) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(f.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
