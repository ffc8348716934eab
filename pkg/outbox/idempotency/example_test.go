package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// exampleStore behaves like a real SETNX store: the first claim for a
// key wins, later claims lose.
type exampleStore struct {
	seen map[string]bool
}

func (s *exampleStore) Get(context.Context, string) (string, error) { return "", nil }

func (s *exampleStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func (s *exampleStore) IdempotencyKey(scope, id string) string {
	return "pln:idempotency:" + scope + ":" + id
}

func (s *exampleStore) Del(context.Context, ...string) error { return nil }

func ExampleManager_CheckAndMarkProcessed() {
	ctx := context.Background()
	manager, _ := NewManager(&exampleStore{seen: map[string]bool{}}, 7*24*time.Hour)
	eventID := uuid.MustParse("f47ac10b-58cc-4372-a567-0e02b2c3d479")

	handle := func() string {
		already, _ := manager.CheckAndMarkProcessed(ctx, "notification-worker", eventID)
		if already {
			return "already processed"
		}
		return "processing event"
	}

	fmt.Println(handle())
	fmt.Println(handle())
	// Output:
	// processing event
	// already processed
}
