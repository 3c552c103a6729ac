package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() (*MemoryStore, *time.Time) {
	s := NewMemoryStore(DefaultTTL)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestMemoryStoreGetSet(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	_, ok := s.Get(ctx, UserKey(1))
	assert.False(t, ok)

	s.Set(ctx, UserKey(1), "alice")
	v, ok := s.Get(ctx, UserKey(1))
	require.True(t, ok)
	assert.Equal(t, "alice", v)
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	s, now := newTestStore()
	ctx := context.Background()

	s.Set(ctx, UserKey(1), "alice")

	*now = now.Add(4 * time.Minute)
	_, ok := s.Get(ctx, UserKey(1))
	assert.True(t, ok, "entry inside the TTL window must be served")

	*now = now.Add(2 * time.Minute)
	_, ok = s.Get(ctx, UserKey(1))
	assert.False(t, ok, "entry past the TTL must be treated as a miss")
	assert.Equal(t, 0, s.Len(), "expired entry is removed on access")
}

func TestMemoryStoreCoherencyAfterInvalidate(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	s.Set(ctx, UserKey(7), map[string]any{"active": true})
	s.Set(ctx, AppointmentsKey(7), "appointments")
	s.Set(ctx, UsersListKey, "list")
	s.Set(ctx, UsersStatsKey, "stats")

	// Mutating the identity invalidates its keys and the aggregates, so a
	// read inside the TTL window sees the store, not the stale value.
	s.Invalidate(ctx, 7)

	for _, key := range []string{UserKey(7), AppointmentsKey(7), UsersListKey, UsersStatsKey} {
		_, ok := s.Get(ctx, key)
		assert.False(t, ok, "key %s should have been invalidated", key)
	}
}

func TestMemoryStoreInvalidateLeavesOtherIdentities(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	s.Set(ctx, UserKey(1), "alice")
	s.Set(ctx, UserKey(2), "bob")

	s.Invalidate(ctx, 1)

	_, ok := s.Get(ctx, UserKey(1))
	assert.False(t, ok)
	v, ok := s.Get(ctx, UserKey(2))
	require.True(t, ok)
	assert.Equal(t, "bob", v)
}

func TestMemoryStoreInvalidateAggregates(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	s.Set(ctx, UsersListKey, "list")
	s.Set(ctx, UsersStatsKey, "stats")
	s.Set(ctx, UserKey(1), "alice")

	s.InvalidateAggregates(ctx)

	_, ok := s.Get(ctx, UsersListKey)
	assert.False(t, ok)
	_, ok = s.Get(ctx, UsersStatsKey)
	assert.False(t, ok)
	_, ok = s.Get(ctx, UserKey(1))
	assert.True(t, ok, "per-identity entries survive aggregate invalidation")
}

func TestMemoryStoreEvictsOldestInsertion(t *testing.T) {
	s, now := newTestStore()
	ctx := context.Background()

	s.Set(ctx, "victim", "oldest")
	*now = now.Add(time.Second)

	for i := 1; i < maxEntries; i++ {
		s.Set(ctx, fmt.Sprintf("key%d", i), i)
	}
	require.Equal(t, maxEntries, s.Len())

	s.Set(ctx, "overflow", "newest")

	_, ok := s.Get(ctx, "victim")
	assert.False(t, ok, "oldest-by-insertion entry should have been evicted")
	assert.Equal(t, maxEntries, s.Len())

	v, ok := s.Get(ctx, "overflow")
	require.True(t, ok)
	assert.Equal(t, "newest", v)
}

func TestMemoryStoreSetOverwriteRefreshesInsertion(t *testing.T) {
	s, now := newTestStore()
	ctx := context.Background()

	s.Set(ctx, UserKey(1), "v1")
	*now = now.Add(4 * time.Minute)
	s.Set(ctx, UserKey(1), "v2")

	*now = now.Add(4 * time.Minute)
	v, ok := s.Get(ctx, UserKey(1))
	require.True(t, ok, "overwrite restarts the TTL")
	assert.Equal(t, "v2", v)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	s := NewRedisStore(client, DefaultTTL)
	ctx := context.Background()

	_, ok := s.Get(ctx, UserKey(1))
	assert.False(t, ok)

	payload := map[string]any{"email": "a@b.com", "active": true}
	s.Set(ctx, UserKey(1), payload)
	s.Set(ctx, UsersListKey, []any{"a@b.com"})

	v, ok := s.Get(ctx, UserKey(1))
	require.True(t, ok)
	assert.Equal(t, "a@b.com", v.(map[string]any)["email"])

	s.Invalidate(ctx, 1)
	_, ok = s.Get(ctx, UserKey(1))
	assert.False(t, ok)
	_, ok = s.Get(ctx, UsersListKey)
	assert.False(t, ok, "aggregates are invalidated alongside the identity")

	// TTL expiry via miniredis fast-forward.
	s.Set(ctx, UserKey(2), "bob")
	mr.FastForward(DefaultTTL + time.Second)
	_, ok = s.Get(ctx, UserKey(2))
	assert.False(t, ok)
}
