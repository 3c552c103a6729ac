package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Throttle gates credential verification per identity key. Implementations
// are process-local (MemoryThrottle) or shared (RedisThrottle) — see the
// deployment notes in DESIGN.md about multi-instance consistency.
type Throttle interface {
	// Attempt counts one login attempt for key. It returns a
	// *Error (TOO_MANY_ATTEMPTS) when the key is over budget inside the
	// window, nil when the attempt may proceed.
	Attempt(ctx context.Context, key string) error
	// Reset clears the counter for key after a successful login.
	Reset(ctx context.Context, key string)
}

const throttleMaxEntries = 1000

type attemptRecord struct {
	attempts    int
	lastAttempt time.Time
	expiresAt   time.Time
}

// MemoryThrottle is an in-memory per-key attempt counter with TTL eviction.
// It never touches I/O; all state lives in one mutex-guarded map.
type MemoryThrottle struct {
	mu          sync.Mutex
	entries     map[string]*attemptRecord
	maxAttempts int
	window      time.Duration

	now func() time.Time
}

func NewMemoryThrottle(maxAttempts int, window time.Duration) *MemoryThrottle {
	return &MemoryThrottle{
		entries:     make(map[string]*attemptRecord),
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

func (t *MemoryThrottle) Attempt(_ context.Context, key string) error {
	key = strings.ToLower(key)

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	rec, ok := t.entries[key]
	if ok && now.After(rec.expiresAt) {
		delete(t.entries, key)
		rec, ok = nil, false
	}

	if !ok {
		if len(t.entries) >= throttleMaxEntries {
			t.evictNearestExpiry()
		}
		rec = &attemptRecord{}
		t.entries[key] = rec
	}

	elapsed := now.Sub(rec.lastAttempt)
	if rec.attempts >= t.maxAttempts && elapsed < t.window {
		retryAfter := (t.window - elapsed).Round(time.Second)
		if retryAfter < t.window-elapsed {
			retryAfter += time.Second
		}
		return ErrTooManyAttempts(retryAfter, t.window, rec.attempts, t.maxAttempts)
	}

	// Stale counter: the window has fully elapsed since the last attempt.
	if rec.attempts > 0 && elapsed >= t.window {
		rec.attempts = 0
	}

	rec.attempts++
	rec.lastAttempt = now
	rec.expiresAt = now.Add(t.window)
	return nil
}

func (t *MemoryThrottle) Reset(_ context.Context, key string) {
	key = strings.ToLower(key)
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}

// evictNearestExpiry drops the entry closest to expiring. Caller holds mu.
func (t *MemoryThrottle) evictNearestExpiry() {
	var victim string
	var nearest time.Time
	for k, rec := range t.entries {
		if victim == "" || rec.expiresAt.Before(nearest) {
			victim = k
			nearest = rec.expiresAt
		}
	}
	if victim != "" {
		delete(t.entries, victim)
	}
}

// RedisThrottle shares the attempt budget across instances using an INCR
// counter with a window TTL set on first failure.
type RedisThrottle struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
}

func NewRedisThrottle(client *redis.Client, maxAttempts int, window time.Duration) *RedisThrottle {
	return &RedisThrottle{client: client, maxAttempts: maxAttempts, window: window}
}

func throttleKey(key string) string {
	return "throttle:login:" + strings.ToLower(key)
}

func (t *RedisThrottle) Attempt(ctx context.Context, key string) error {
	k := throttleKey(key)

	count, err := t.client.Incr(ctx, k).Result()
	if err != nil {
		// Redis being down must not lock everyone out.
		return nil
	}
	if count == 1 {
		t.client.Expire(ctx, k, t.window)
	}
	if count > int64(t.maxAttempts) {
		ttl, err := t.client.TTL(ctx, k).Result()
		if err != nil || ttl < 0 {
			ttl = t.window
		}
		// The rejected attempt itself must not consume budget.
		t.client.Decr(ctx, k)
		return ErrTooManyAttempts(ttl, t.window, t.maxAttempts, t.maxAttempts)
	}
	return nil
}

func (t *RedisThrottle) Reset(ctx context.Context, key string) {
	t.client.Del(ctx, throttleKey(key))
}
