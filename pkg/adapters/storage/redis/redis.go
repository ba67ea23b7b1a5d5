package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// KVStore implements ports.KVStore using Redis strings
type KVStore struct {
	client *redis.Client
	logger *zap.Logger
	prefix string
	ttl    time.Duration
}

// NewKVStore creates a new Redis key-value store. Keys are namespaced with
// prefix; a zero ttl stores values without expiry.
func NewKVStore(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *KVStore {
	return &KVStore{
		client: client,
		logger: logger,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get returns the value stored under key
func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.redisKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get key %s: %w", key, err)
	}

	return value, true, nil
}

// Set overwrites the value stored under key
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.redisKey(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}

	s.logger.Debug("value stored",
		zap.String("key", s.redisKey(key)),
		zap.Int("bytes", len(value)))

	return nil
}

// Ping checks the Redis connection
func (s *KVStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// redisKey returns the namespaced Redis key
func (s *KVStore) redisKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", s.prefix, key)
}
