package otp

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerotrust/platform/internal/domain"
	"github.com/zerotrust/platform/internal/repository"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func sequence(codes ...string) CodeGenerator {
	i := 0
	return func() (string, error) {
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
}

func newManager(codes ...string) (*Manager, *repository.MemoryOTPRepository, *fakeClock) {
	store := repository.NewMemoryOTPRepository()
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManager(store, WithGenerator(sequence(codes...)), WithClock(clock.now))
	return m, store, clock
}

func TestRandomCode(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := RandomCode()
		require.NoError(t, err)
		require.Len(t, code, domain.OTPLength)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, codeMin)
		assert.LessOrEqual(t, n, codeMax)
	}
}

func TestIssue(t *testing.T) {
	ctx := context.Background()
	m, store, clock := newManager("123456")
	user := uuid.New()

	rec, err := m.Issue(ctx, user, domain.OTPLogin)
	require.NoError(t, err)
	assert.Equal(t, "123456", rec.Code)
	assert.Equal(t, 0, rec.Attempts)
	assert.Equal(t, clock.t.Add(5*time.Minute), rec.ExpiresAt)

	stored, _ := store.Get(ctx, user, domain.OTPLogin)
	require.NotNil(t, stored)
	assert.Equal(t, rec.Code, stored.Code)

	_, err = m.Issue(ctx, user, domain.OTPPurpose("reset"))
	assert.True(t, domain.HasCode(err, domain.CodeValidation))
}

func TestReissueSupersedesOldCode(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newManager("111111", "222222")
	user := uuid.New()

	_, err := m.Issue(ctx, user, domain.OTPLogin)
	require.NoError(t, err)
	_, err = m.Resend(ctx, user, domain.OTPLogin)
	require.NoError(t, err)

	err = m.Verify(ctx, user, domain.OTPLogin, "111111")
	assert.True(t, domain.HasCode(err, domain.CodeOTPInvalid))

	assert.NoError(t, m.Verify(ctx, user, domain.OTPLogin, "222222"))
}

func TestVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("no pending record", func(t *testing.T) {
		m, _, _ := newManager("123456")
		err := m.Verify(ctx, uuid.New(), domain.OTPLogin, "123456")
		assert.True(t, domain.HasCode(err, domain.CodeNoPendingOTP))
	})

	t.Run("purpose is part of the key", func(t *testing.T) {
		m, _, _ := newManager("123456")
		user := uuid.New()
		_, _ = m.Issue(ctx, user, domain.OTPRegistration)
		err := m.Verify(ctx, user, domain.OTPLogin, "123456")
		assert.True(t, domain.HasCode(err, domain.CodeNoPendingOTP))
	})

	t.Run("match deletes the record", func(t *testing.T) {
		m, store, _ := newManager("123456")
		user := uuid.New()
		_, _ = m.Issue(ctx, user, domain.OTPLogin)

		require.NoError(t, m.Verify(ctx, user, domain.OTPLogin, "123456"))
		rec, _ := store.Get(ctx, user, domain.OTPLogin)
		assert.Nil(t, rec)

		err := m.Verify(ctx, user, domain.OTPLogin, "123456")
		assert.True(t, domain.HasCode(err, domain.CodeNoPendingOTP))
	})

	t.Run("mismatch increments attempts", func(t *testing.T) {
		m, store, _ := newManager("123456")
		user := uuid.New()
		_, _ = m.Issue(ctx, user, domain.OTPLogin)

		err := m.Verify(ctx, user, domain.OTPLogin, "000000")
		assert.True(t, domain.HasCode(err, domain.CodeOTPInvalid))
		rec, _ := store.Get(ctx, user, domain.OTPLogin)
		assert.Equal(t, 1, rec.Attempts)
	})

	t.Run("expired regardless of code", func(t *testing.T) {
		m, store, clock := newManager("123456")
		user := uuid.New()
		_, _ = m.Issue(ctx, user, domain.OTPLogin)
		clock.advance(5*time.Minute + time.Second)

		err := m.Verify(ctx, user, domain.OTPLogin, "123456")
		assert.True(t, domain.HasCode(err, domain.CodeOTPExpired))
		rec, _ := store.Get(ctx, user, domain.OTPLogin)
		assert.Nil(t, rec)
	})

	t.Run("exactly at expiry still verifies", func(t *testing.T) {
		m, _, clock := newManager("123456")
		user := uuid.New()
		_, _ = m.Issue(ctx, user, domain.OTPLogin)
		clock.advance(5 * time.Minute)

		assert.NoError(t, m.Verify(ctx, user, domain.OTPLogin, "123456"))
	})

	t.Run("attempt limit checked before code", func(t *testing.T) {
		m, store, clock := newManager("123456")
		user := uuid.New()
		require.NoError(t, store.Put(ctx, &domain.OTPRecord{
			UserID: user, Purpose: domain.OTPLogin, Code: "123456",
			Attempts: domain.OTPMaxAttempts, ExpiresAt: clock.t.Add(time.Minute),
		}))

		err := m.Verify(ctx, user, domain.OTPLogin, "123456")
		assert.True(t, domain.HasCode(err, domain.CodeOTPTooManyAttempts))
		rec, _ := store.Get(ctx, user, domain.OTPLogin)
		assert.Nil(t, rec)
	})
}

func TestVerify_FiveWrongCodesThenNoPending(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newManager("123456")
	user := uuid.New()
	_, err := m.Issue(ctx, user, domain.OTPLogin)
	require.NoError(t, err)

	for i := 1; i <= 4; i++ {
		err := m.Verify(ctx, user, domain.OTPLogin, "999999")
		assert.True(t, domain.HasCode(err, domain.CodeOTPInvalid), "attempt %d", i)
	}

	err = m.Verify(ctx, user, domain.OTPLogin, "999999")
	assert.True(t, domain.HasCode(err, domain.CodeOTPTooManyAttempts))

	err = m.Verify(ctx, user, domain.OTPLogin, "123456")
	assert.True(t, domain.HasCode(err, domain.CodeNoPendingOTP))
}

func TestPending(t *testing.T) {
	ctx := context.Background()
	m, _, clock := newManager("123456")
	user := uuid.New()

	ok, err := m.Pending(ctx, user, domain.OTPLogin)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = m.Issue(ctx, user, domain.OTPLogin)
	require.NoError(t, err)
	ok, _ = m.Pending(ctx, user, domain.OTPLogin)
	assert.True(t, ok)
	ok, _ = m.Pending(ctx, user, domain.OTPRegistration)
	assert.False(t, ok)

	clock.advance(10 * time.Minute)
	ok, _ = m.Pending(ctx, user, domain.OTPLogin)
	assert.True(t, ok, "an expired record can still be superseded")

	require.Error(t, m.Verify(ctx, user, domain.OTPLogin, "123456"))
	ok, _ = m.Pending(ctx, user, domain.OTPLogin)
	assert.False(t, ok)
}
