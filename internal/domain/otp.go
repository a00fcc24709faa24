package domain

import (
	"time"

	"github.com/google/uuid"
)

// OTPPurpose says which flow a one-time code belongs to.
type OTPPurpose string

const (
	OTPRegistration OTPPurpose = "registration"
	OTPLogin        OTPPurpose = "login"
)

// Valid reports whether p is a known purpose.
func (p OTPPurpose) Valid() bool {
	return p == OTPRegistration || p == OTPLogin
}

const (
	OTPLength      = 6
	OTPTTL         = 5 * time.Minute
	OTPMaxAttempts = 5
)

// OTPRecord is the single live code for a (user, purpose) pair.
type OTPRecord struct {
	UserID    uuid.UUID  `json:"user_id"`
	Code      string     `json:"code"`
	Purpose   OTPPurpose `json:"purpose"`
	ExpiresAt time.Time  `json:"expires_at"`
	Attempts  int        `json:"attempts"`
	CreatedAt time.Time  `json:"created_at"`
}

// Expired reports whether now is past the expiry instant.
func (r *OTPRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
