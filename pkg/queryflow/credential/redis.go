package credential

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "credential:"

// RedisStore persists credential ciphertext in Redis. Useful when
// several processes share one credential set, or when credentials
// should expire (set a TTL).
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL expires stored credentials after d. Zero means no expiry.
func WithTTL(d time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = d }
}

// NewRedisStore creates a credential store backed by the given Redis
// URL (e.g. "redis://localhost:6379/0"). The connection is verified
// with a ping.
func NewRedisStore(ctx context.Context, url string, opts ...RedisOption) (*RedisStore, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	s := &RedisStore{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *RedisStore) key(userID, keyName string) string {
	return redisKeyPrefix + userID + ":" + keyName
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, userID, keyName string) (string, error) {
	ciphertext, err := s.client.Get(ctx, s.key(userID, keyName)).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get credential: %w", err)
	}
	return ciphertext, nil
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, userID, keyName, ciphertext string) error {
	if err := s.client.Set(ctx, s.key(userID, keyName), ciphertext, s.ttl).Err(); err != nil {
		return fmt.Errorf("put credential: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, userID, keyName string) error {
	if err := s.client.Del(ctx, s.key(userID, keyName)).Err(); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
