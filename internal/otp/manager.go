// Package otp issues and verifies one-time codes bound to a user and a purpose.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/zerotrust/platform/internal/domain"
	"github.com/zerotrust/platform/internal/repository"
)

const (
	codeMin = 100000
	codeMax = 999999
)

// CodeGenerator produces a 6-digit numeric code.
type CodeGenerator func() (string, error)

// RandomCode draws a code uniformly from 100000..999999 using crypto/rand.
func RandomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+codeMin), nil
}

// Manager owns the OTP lifecycle. The store holds at most one record per
// (user, purpose); issuing overwrites it.
type Manager struct {
	store repository.OTPRepository
	gen   CodeGenerator
	now   func() time.Time
	ttl   time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithGenerator replaces the code generator.
func WithGenerator(g CodeGenerator) Option {
	return func(m *Manager) { m.gen = g }
}

// WithClock replaces the clock.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager over store.
func NewManager(store repository.OTPRepository, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		gen:   RandomCode,
		now:   time.Now,
		ttl:   domain.OTPTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue creates a fresh code for (userID, purpose), superseding any live one.
func (m *Manager) Issue(ctx context.Context, userID uuid.UUID, purpose domain.OTPPurpose) (*domain.OTPRecord, error) {
	if !purpose.Valid() {
		return nil, domain.ErrValidation(fmt.Sprintf("unknown otp purpose %q", purpose))
	}
	code, err := m.gen()
	if err != nil {
		return nil, domain.ErrInternal("otp generation failed", err)
	}

	now := m.now()
	rec := &domain.OTPRecord{
		UserID:    userID,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: now.Add(m.ttl),
		Attempts:  0,
		CreatedAt: now,
	}
	if err := m.store.Put(ctx, rec); err != nil {
		return nil, domain.ErrInternal("otp store failed", err)
	}
	return rec, nil
}

// Resend is Issue under another name: the previous code stops verifying.
func (m *Manager) Resend(ctx context.Context, userID uuid.UUID, purpose domain.OTPPurpose) (*domain.OTPRecord, error) {
	return m.Issue(ctx, userID, purpose)
}

// Pending reports whether a record exists for (userID, purpose), live or not.
func (m *Manager) Pending(ctx context.Context, userID uuid.UUID, purpose domain.OTPPurpose) (bool, error) {
	rec, err := m.store.Get(ctx, userID, purpose)
	if err != nil {
		return false, domain.ErrInternal("otp lookup failed", err)
	}
	return rec != nil, nil
}

// Verify checks code against the live record. Checks run in a fixed order:
// no record, attempt limit, expiry, then the code itself. A mismatch that
// reaches the attempt limit deletes the record.
func (m *Manager) Verify(ctx context.Context, userID uuid.UUID, purpose domain.OTPPurpose, code string) error {
	rec, err := m.store.Get(ctx, userID, purpose)
	if err != nil {
		return domain.ErrInternal("otp lookup failed", err)
	}
	if rec == nil {
		return domain.ErrNoPendingOTP()
	}

	if rec.Attempts >= domain.OTPMaxAttempts {
		m.discard(ctx, userID, purpose)
		return domain.ErrOTPTooManyAttempts()
	}

	if rec.Expired(m.now()) {
		m.discard(ctx, userID, purpose)
		return domain.ErrOTPExpired()
	}

	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) != 1 {
		rec.Attempts++
		if rec.Attempts >= domain.OTPMaxAttempts {
			m.discard(ctx, userID, purpose)
			return domain.ErrOTPTooManyAttempts()
		}
		if err := m.store.Put(ctx, rec); err != nil {
			return domain.ErrInternal("otp store failed", err)
		}
		return domain.ErrOTPInvalid()
	}

	m.discard(ctx, userID, purpose)
	return nil
}

func (m *Manager) discard(ctx context.Context, userID uuid.UUID, purpose domain.OTPPurpose) {
	_ = m.store.Delete(ctx, userID, purpose)
}
