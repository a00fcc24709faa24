package guard

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zerotrust/platform/internal/domain"
)

const (
	MaxAttempts   = 5
	LockoutWindow = 15 * time.Minute
)

// FailureCounter tracks recent authentication failures per email. The count
// feeds the failed-attempts risk signal and the lockout check.
type FailureCounter interface {
	RecordAttempt(ctx context.Context, email, ip string, success bool)
	RecentFailures(ctx context.Context, email string) int
}

// CheckLocked returns ErrAccountLocked if the account has >= MaxAttempts failed
// attempts within the lockout window.
func CheckLocked(ctx context.Context, counter FailureCounter, email string) error {
	if counter.RecentFailures(ctx, email) >= MaxAttempts {
		return domain.ErrAccountLocked("too many failed login attempts, try again later")
	}
	return nil
}

// PgFailureCounter stores attempts in the login_attempts table.
type PgFailureCounter struct {
	pool *pgxpool.Pool
}

// NewPgFailureCounter creates a Postgres-backed failure counter.
func NewPgFailureCounter(pool *pgxpool.Pool) *PgFailureCounter {
	return &PgFailureCounter{pool: pool}
}

// RecordAttempt inserts a login attempt row.
func (c *PgFailureCounter) RecordAttempt(ctx context.Context, email, ip string, success bool) {
	_, _ = c.pool.Exec(ctx, `
		INSERT INTO login_attempts (email, ip_address, success)
		VALUES ($1, $2, $3)`,
		email, ip, success)
}

// RecentFailures counts failed attempts inside the lockout window.
func (c *PgFailureCounter) RecentFailures(ctx context.Context, email string) int {
	var count int
	err := c.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM login_attempts
		WHERE email = $1 AND success = false
		  AND created_at > $2`,
		email, time.Now().Add(-LockoutWindow)).Scan(&count)
	if err != nil {
		return 0 // fail open on DB error
	}
	return count
}

// MemoryFailureCounter keeps failure timestamps in process memory.
type MemoryFailureCounter struct {
	mu       sync.Mutex
	failures map[string][]time.Time
	window   time.Duration
	now      func() time.Time
}

// NewMemoryFailureCounter creates an in-memory failure counter.
func NewMemoryFailureCounter() *MemoryFailureCounter {
	return &MemoryFailureCounter{
		failures: make(map[string][]time.Time),
		window:   LockoutWindow,
		now:      time.Now,
	}
}

// RecordAttempt stores a failure; successful attempts are not counted.
func (c *MemoryFailureCounter) RecordAttempt(_ context.Context, email, _ string, success bool) {
	if success {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[email] = append(c.prune(email), c.now())
}

// RecentFailures counts failures inside the window.
func (c *MemoryFailureCounter) RecentFailures(_ context.Context, email string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prune(email))
}

// prune drops expired entries for email. Caller holds mu.
func (c *MemoryFailureCounter) prune(email string) []time.Time {
	cutoff := c.now().Add(-c.window)
	entries := c.failures[email]
	valid := entries[:0]
	for _, t := range entries {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		delete(c.failures, email)
		return nil
	}
	c.failures[email] = valid
	return valid
}
