package register

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryStore keeps session values in process. It backs tests and registers
// running without Redis.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Load implements SessionStore.
func (s *MemoryStore) Load(context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out, nil
}

// Save implements SessionStore.
func (s *MemoryStore) Save(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.values[k] = v
	}
	return nil
}

// Erase implements SessionStore.
func (s *MemoryStore) Erase(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

// RedisStore persists one register session as plain Redis string keys so it
// survives process restarts.
type RedisStore struct {
	client     redis.UniversalClient
	prefix     string
	registerID string
	ttl        time.Duration
}

// NewRedisStore constructs a store for registerID. Keys are written as
// <prefix>:register:<registerID>:<key>. A zero ttl keeps keys forever.
func NewRedisStore(client redis.UniversalClient, prefix, registerID string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, registerID: registerID, ttl: ttl}
}

func (s *RedisStore) redisKey(key string) string {
	if s.prefix == "" {
		return fmt.Sprintf("register:%s:%s", s.registerID, key)
	}
	return fmt.Sprintf("%s:register:%s:%s", s.prefix, s.registerID, key)
}

// Load implements SessionStore. Missing keys are omitted from the result.
func (s *RedisStore) Load(ctx context.Context) (map[string]string, error) {
	keys := make([]string, len(AllKeys))
	for i, k := range AllKeys {
		keys[i] = s.redisKey(k)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("register: redis load: %w", err)
	}
	out := make(map[string]string, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		out[AllKeys[i]] = str
	}
	return out, nil
}

// Save implements SessionStore. All values are written in one MULTI/EXEC.
func (s *RedisStore) Save(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, s.redisKey(k), v, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("register: redis save: %w", err)
	}
	return nil
}

// Erase implements SessionStore.
func (s *RedisStore) Erase(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.redisKey(k)
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("register: redis erase: %w", err)
	}
	return nil
}
