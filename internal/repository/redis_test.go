package repository

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerotrust/platform/internal/domain"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisOTPRepository(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniredis(t)
	repo := NewRedisOTPRepository(client, "")
	user := uuid.New()

	rec := &domain.OTPRecord{
		UserID:    user,
		Code:      "482913",
		Purpose:   domain.OTPLogin,
		ExpiresAt: time.Now().Add(domain.OTPTTL).UTC(),
		Attempts:  2,
	}
	require.NoError(t, repo.Put(ctx, rec))

	key := "zt:otp:" + user.String() + ":login"
	assert.True(t, mr.Exists(key))
	assert.Greater(t, mr.TTL(key), domain.OTPTTL, "ttl includes grace period")

	got, err := repo.Get(ctx, user, domain.OTPLogin)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "482913", got.Code)
	assert.Equal(t, 2, got.Attempts)
	assert.True(t, rec.ExpiresAt.Equal(got.ExpiresAt))

	missing, err := repo.Get(ctx, user, domain.OTPRegistration)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.Delete(ctx, user, domain.OTPLogin))
	assert.False(t, mr.Exists(key))
}

func TestRedisOTPRepository_ExpiresWithTTL(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniredis(t)
	repo := NewRedisOTPRepository(client, "test:")
	user := uuid.New()

	require.NoError(t, repo.Put(ctx, &domain.OTPRecord{UserID: user, Purpose: domain.OTPLogin, ExpiresAt: time.Now().Add(time.Second)}))
	mr.FastForward(5 * time.Minute)

	got, err := repo.Get(ctx, user, domain.OTPLogin)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisSessionRepository(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniredis(t)
	repo := NewRedisSessionRepository(client, "")

	s := &domain.Session{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		DeviceID:  uuid.New(),
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().Add(time.Hour).UTC(),
		LastPolicy: domain.PolicyResult{
			Decision:  domain.DecisionStepUpMFA,
			RiskScore: 45,
			Reasons:   []string{"Device not approved"},
		},
	}
	require.NoError(t, repo.Put(ctx, s))

	got, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s.UserID, got.UserID)
	assert.Equal(t, domain.DecisionStepUpMFA, got.LastPolicy.Decision)
	assert.Equal(t, []string{"Device not approved"}, got.LastPolicy.Reasons)

	mr.FastForward(2 * time.Hour)
	got, err = repo.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	err = repo.Put(ctx, &domain.Session{ID: uuid.New(), ExpiresAt: time.Now().Add(-time.Second)})
	assert.Error(t, err)
}

func TestRedisSessionRepository_Delete(t *testing.T) {
	ctx := context.Background()
	_, client := newMiniredis(t)
	repo := NewRedisSessionRepository(client, "")

	s := &domain.Session{ID: uuid.New(), ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Put(ctx, s))
	require.NoError(t, repo.Delete(ctx, s.ID))

	got, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
