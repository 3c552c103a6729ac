// Package cache is a short-lived read-through cache for identity lookups
// and aggregate views. The in-memory store serves single-instance
// deployments; RedisStore shares entries across instances behind the same
// interface.
package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultTTL bounds entry staleness; writes invalidate affected keys
// eagerly, TTL covers everything else.
const DefaultTTL = 5 * time.Minute

const maxEntries = 1000

// Key builders. Every cached value about one identity uses a key derived
// from these, so Invalidate can enumerate them without scanning.
func UserKey(id uint) string         { return fmt.Sprintf("user:%d", id) }
func AppointmentsKey(id uint) string { return fmt.Sprintf("appointments:%d", id) }

// Aggregate keys, invalidated on any identity mutation.
const (
	UsersListKey  = "users:all"
	UsersStatsKey = "users:stats"
)

// Store is the identity-cache contract shared by the in-memory and redis
// implementations.
type Store interface {
	Get(ctx context.Context, key string) (any, bool)
	Set(ctx context.Context, key string, value any)
	// Invalidate removes every entry referencing the identity plus the
	// aggregate views.
	Invalidate(ctx context.Context, userID uint)
	// InvalidateAggregates removes only the aggregate views (list, stats).
	InvalidateAggregates(ctx context.Context)
}

type entry struct {
	key        string
	value      any
	insertedAt time.Time
}

// MemoryStore is a TTL cache capped at maxEntries; overflow evicts the
// oldest entry by insertion order.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = oldest insertion
	ttl     time.Duration

	now func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if s.now().Sub(e.insertedAt) > s.ttl {
		s.removeLocked(el)
		return nil, false
	}
	return e.value, true
}

func (s *MemoryStore) Set(_ context.Context, key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[key]; ok {
		s.removeLocked(el)
	}
	if len(s.entries) >= maxEntries {
		if oldest := s.order.Front(); oldest != nil {
			s.removeLocked(oldest)
		}
	}

	e := &entry{key: key, value: value, insertedAt: s.now()}
	s.entries[key] = s.order.PushBack(e)
}

func (s *MemoryStore) Invalidate(ctx context.Context, userID uint) {
	s.mu.Lock()
	for _, key := range identityKeys(userID) {
		if el, ok := s.entries[key]; ok {
			s.removeLocked(el)
		}
	}
	s.mu.Unlock()
	s.InvalidateAggregates(ctx)
}

func (s *MemoryStore) InvalidateAggregates(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range []string{UsersListKey, UsersStatsKey} {
		if el, ok := s.entries[key]; ok {
			s.removeLocked(el)
		}
	}
}

// Len reports the number of live entries, expired ones included until they
// are touched.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// removeLocked unlinks el from both structures. Caller holds mu.
func (s *MemoryStore) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	s.order.Remove(el)
	delete(s.entries, e.key)
}

func identityKeys(userID uint) []string {
	return []string{UserKey(userID), AppointmentsKey(userID)}
}
