package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StepStore persists completed step results so a retried run can skip
// steps that already ran. At-least-once execution degrades to exactly
// the step contract of the workflows: every write is last-value-wins.
type StepStore interface {
	Get(ctx context.Context, runID, step string) ([]byte, bool, error)
	Set(ctx context.Context, runID, step string, value []byte) error
}

// RedisStepStore memoizes step results in Redis with a TTL, surviving
// process restarts between attempts.
type RedisStepStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStepStore constructs the store.
func NewRedisStepStore(client *redis.Client, ttl time.Duration) *RedisStepStore {
	return &RedisStepStore{client: client, ttl: ttl}
}

func stepKey(runID, step string) string {
	return fmt.Sprintf("workflow:run:%s:step:%s", runID, step)
}

func (s *RedisStepStore) Get(ctx context.Context, runID, step string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, stepKey(runID, step)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *RedisStepStore) Set(ctx context.Context, runID, step string, value []byte) error {
	return s.client.Set(ctx, stepKey(runID, step), value, s.ttl).Err()
}

// MemoryStepStore keeps step results in process memory. Used when
// Redis is not configured, and in tests.
type MemoryStepStore struct {
	mu      sync.Mutex
	results map[string][]byte
}

// NewMemoryStepStore constructs the store.
func NewMemoryStepStore() *MemoryStepStore {
	return &MemoryStepStore{results: make(map[string][]byte)}
}

func (s *MemoryStepStore) Get(ctx context.Context, runID, step string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.results[stepKey(runID, step)]
	return data, ok, nil
}

func (s *MemoryStepStore) Set(ctx context.Context, runID, step string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[stepKey(runID, step)] = value
	return nil
}
