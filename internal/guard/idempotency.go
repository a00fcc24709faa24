package guard

import (
	"context"
	"sync"
	"time"

	"github.com/zerotrust/platform/internal/domain"
)

// DefaultIdempotencyTTL is how long a processed key is remembered.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyGuard rejects a request whose idempotency key was already
// processed within the TTL. Keys are forgotten after the TTL.
type IdempotencyGuard struct {
	mu        sync.Mutex
	seen      map[string]time.Time
	ttl       time.Duration
	nextSweep time.Time
	now       func() time.Time
}

// NewIdempotencyGuard creates an in-memory idempotency guard. A non-positive
// ttl uses DefaultIdempotencyTTL.
func NewIdempotencyGuard(ttl time.Duration) *IdempotencyGuard {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyGuard{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Check claims key. The first caller is allowed; later callers are refused
// until the key expires or is removed. An empty key is always allowed.
func (ig *IdempotencyGuard) Check(_ context.Context, key string) domain.GuardResult {
	if key == "" {
		return domain.GuardResult{Allowed: true}
	}

	ig.mu.Lock()
	defer ig.mu.Unlock()

	now := ig.now()
	ig.sweep(now)

	if expires, ok := ig.seen[key]; ok && now.Before(expires) {
		return domain.GuardResult{
			Allowed: false,
			Reason:  "duplicate request: idempotency key already processed",
			Guard:   "idempotency",
		}
	}

	ig.seen[key] = now.Add(ig.ttl)
	return domain.GuardResult{Allowed: true}
}

// Remove releases key so a failed request can be retried with it.
func (ig *IdempotencyGuard) Remove(key string) {
	ig.mu.Lock()
	defer ig.mu.Unlock()
	delete(ig.seen, key)
}

// sweep drops expired keys at most once per TTL. Caller holds mu.
func (ig *IdempotencyGuard) sweep(now time.Time) {
	if now.Before(ig.nextSweep) {
		return
	}
	for k, expires := range ig.seen {
		if !now.Before(expires) {
			delete(ig.seen, k)
		}
	}
	ig.nextSweep = now.Add(ig.ttl)
}
