package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session is the durable session token persisted after a non-blocking policy
// decision. Logging out deletes it.
type Session struct {
	ID         uuid.UUID    `json:"id"`
	UserID     uuid.UUID    `json:"user_id"`
	DeviceID   uuid.UUID    `json:"device_id"`
	LastPolicy PolicyResult `json:"last_policy"`
	CreatedAt  time.Time    `json:"created_at"`
	ExpiresAt  time.Time    `json:"expires_at"`
}

// GuardResult is returned by request guards (rate limiter, circuit breaker).
type GuardResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Guard   string `json:"guard,omitempty"` // which guard blocked
}
