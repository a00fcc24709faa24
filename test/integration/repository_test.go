//go:build integration

package integration

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerotrust/platform/internal/domain"
	"github.com/zerotrust/platform/internal/repository"
	"github.com/zerotrust/platform/test/integration/testutil"
)

func TestPgUserRepository_DuplicateEmail(t *testing.T) {
	env := testutil.NewTestEnv(t)
	repo := repository.NewPgUserRepository(env.Pool)

	u := &domain.User{
		ID: uuid.New(), FullName: "Dana", Email: "dana@test.com", Mobile: "+15550009999",
		PasswordHash: "x", Role: domain.RoleUser, Status: domain.StatusActive,
	}
	require.NoError(t, repo.Create(t.Context(), u))
	assert.False(t, u.CreatedAt.IsZero())

	clash := *u
	clash.ID = uuid.New()
	assert.ErrorIs(t, repo.Create(t.Context(), &clash), repository.ErrDuplicate)

	got, err := repo.FindByEmail(t.Context(), "DANA@test.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)

	missing, err := repo.FindByID(t.Context(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPgDeviceRepository_UniqueFingerprintPerUser(t *testing.T) {
	env := testutil.NewTestEnv(t)
	user, err := env.Stores.Users.FindByEmail(t.Context(), "user@demo.com")
	require.NoError(t, err)
	repo := repository.NewPgDeviceRepository(env.Pool)

	d := &domain.Device{
		ID: uuid.New(), UserID: user.ID, UserAgent: "ua", OS: "Linux", Browser: "Chrome",
		Fingerprint: "dev_abcdef1234", RequestedAt: time.Now().UTC(),
		Posture: domain.Posture{OSUpToDate: true, DiskEncrypted: true},
	}
	require.NoError(t, repo.Insert(t.Context(), d))

	dup := *d
	dup.ID = uuid.New()
	assert.ErrorIs(t, repo.Insert(t.Context(), &dup), repository.ErrDuplicate)

	got, err := repo.FindByFingerprint(t.Context(), user.ID, "dev_abcdef1234")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, d.Posture, got.Posture)

	now := time.Now().UTC()
	got.Approved = true
	got.ApprovedBy = &user.ID
	got.ApprovedAt = &now
	got.Posture = domain.HealthyPosture()
	require.NoError(t, repo.Update(t.Context(), got))

	reread, err := repo.FindByID(t.Context(), d.ID)
	require.NoError(t, err)
	assert.True(t, reread.Approved)
	assert.Equal(t, d.Posture, reread.Posture, "posture is fixed at registration")
}
