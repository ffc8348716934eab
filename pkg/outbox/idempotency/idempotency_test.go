package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

// scriptedStore records SetNX and Del traffic and returns scripted
// results, so tests can pin the exact key and TTL the manager uses.
type scriptedStore struct {
	claim    bool
	claimErr error
	keys     []string
	ttls     []time.Duration
	deleted  []string
}

func (s *scriptedStore) Get(context.Context, string) (string, error) { return "", nil }

func (s *scriptedStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	s.keys = append(s.keys, key)
	s.ttls = append(s.ttls, ttl)
	return s.claim, s.claimErr
}

func (s *scriptedStore) IdempotencyKey(scope, id string) string {
	return "pln:idempotency:" + scope + ":" + id
}

func (s *scriptedStore) Del(_ context.Context, keys ...string) error {
	s.deleted = append(s.deleted, keys...)
	return nil
}

func TestFirstDeliveryClaimsMark(t *testing.T) {
	store := &scriptedStore{claim: true}
	manager, err := NewManager(store, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	eventID := uuid.New()
	already, err := manager.CheckAndMarkProcessed(context.Background(), "notification-worker", eventID)
	if err != nil {
		t.Fatalf("CheckAndMarkProcessed: %v", err)
	}
	if already {
		t.Fatalf("first delivery must not report already processed")
	}

	want := "pln:idempotency:evt:processed:notification-worker:" + eventID.String()
	if len(store.keys) != 1 || store.keys[0] != want {
		t.Fatalf("unexpected keys %v, want %q", store.keys, want)
	}
	if store.ttls[0] != 24*time.Hour {
		t.Fatalf("unexpected ttl %v", store.ttls[0])
	}
}

func TestReplayIsReported(t *testing.T) {
	store := &scriptedStore{claim: false}
	manager, err := NewManager(store, 12*time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	already, err := manager.CheckAndMarkProcessed(context.Background(), "notification-worker", uuid.New())
	if err != nil {
		t.Fatalf("CheckAndMarkProcessed: %v", err)
	}
	if !already {
		t.Fatalf("lost SETNX must report already processed")
	}
}

func TestStoreErrorPropagates(t *testing.T) {
	store := &scriptedStore{claimErr: errors.New("redis down")}
	manager, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if _, err := manager.CheckAndMarkProcessed(context.Background(), "notification-worker", uuid.New()); err == nil {
		t.Fatal("expected store error to propagate")
	}
}

func TestDeleteReleasesMark(t *testing.T) {
	store := &scriptedStore{}
	manager, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	eventID := uuid.New()
	if err := manager.Delete(context.Background(), "notification-worker", eventID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	want := "pln:idempotency:evt:processed:notification-worker:" + eventID.String()
	if len(store.deleted) != 1 || store.deleted[0] != want {
		t.Fatalf("unexpected deleted keys %v, want %q", store.deleted, want)
	}
}

func TestManagerRejectsBadInput(t *testing.T) {
	if _, err := NewManager(nil, time.Hour); err == nil {
		t.Fatal("nil store must be rejected")
	}
	if _, err := NewManager(&scriptedStore{}, -time.Second); err == nil {
		t.Fatal("negative ttl must be rejected")
	}

	manager, err := NewManager(&scriptedStore{claim: true}, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := manager.CheckAndMarkProcessed(context.Background(), "", uuid.New()); err == nil {
		t.Fatal("empty consumer must be rejected")
	}
	if _, err := manager.CheckAndMarkProcessed(context.Background(), "worker", uuid.Nil); err == nil {
		t.Fatal("nil event id must be rejected")
	}
}
