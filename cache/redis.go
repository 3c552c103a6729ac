package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on redis for multi-instance deployments.
// Values round-trip through JSON, so cached payloads must be
// JSON-serializable; Get returns the decoded form.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

const redisPrefix = "cache:"

func (s *RedisStore) Get(ctx context.Context, key string) (any, bool) {
	data, err := s.client.Get(ctx, redisPrefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, false
	}
	return value, true
}

func (s *RedisStore) Set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	s.client.Set(ctx, redisPrefix+key, data, s.ttl)
}

func (s *RedisStore) Invalidate(ctx context.Context, userID uint) {
	keys := identityKeys(userID)
	prefixed := make([]string, 0, len(keys)+2)
	for _, k := range keys {
		prefixed = append(prefixed, redisPrefix+k)
	}
	prefixed = append(prefixed, redisPrefix+UsersListKey, redisPrefix+UsersStatsKey)
	s.client.Del(ctx, prefixed...)
}

func (s *RedisStore) InvalidateAggregates(ctx context.Context) {
	s.client.Del(ctx, redisPrefix+UsersListKey, redisPrefix+UsersStatsKey)
}
