package device

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerotrust/platform/internal/domain"
	"github.com/zerotrust/platform/internal/repository"
	"github.com/zerotrust/platform/internal/signal"
)

const chromeOnWindows = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

type countingPosture struct {
	mu sync.Mutex
	n  int
}

func (p *countingPosture) Sample() domain.Posture {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++
	return domain.Posture{AntivirusPresent: true}
}

func newRegistry() (*Registry, *repository.MemoryDeviceRepository) {
	repo := repository.NewMemoryDeviceRepository()
	return NewRegistry(repo, signal.StaticPosture(domain.HealthyPosture())), repo
}

func TestResolve_CreatesUnapprovedDevice(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry()
	user := uuid.New()

	d, created, err := reg.Resolve(ctx, user, "dev_abc", chromeOnWindows)
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, d.Approved)
	assert.Equal(t, "Windows", d.OS)
	assert.Equal(t, "Chrome", d.Browser)
	assert.Equal(t, "Chrome on Windows", d.Label())
	assert.Equal(t, domain.HealthyPosture(), d.Posture)
	assert.Nil(t, d.ApprovedBy)
}

func TestResolve_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryDeviceRepository()
	posture := &countingPosture{}
	reg := NewRegistry(repo, posture)
	user := uuid.New()

	first, created, err := reg.Resolve(ctx, user, "dev_abc", chromeOnWindows)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := reg.Resolve(ctx, user, "dev_abc", "some other agent")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, posture.n, "posture is sampled once per device")

	all, _ := repo.List(ctx)
	assert.Len(t, all, 1)
}

func TestResolve_FingerprintScopedPerUser(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry()

	a, _, err := reg.Resolve(ctx, uuid.New(), "dev_shared", chromeOnWindows)
	require.NoError(t, err)
	b, _, err := reg.Resolve(ctx, uuid.New(), "dev_shared", chromeOnWindows)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestResolve_Concurrent(t *testing.T) {
	ctx := context.Background()
	reg, repo := newRegistry()
	user := uuid.New()

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, _, err := reg.Resolve(ctx, user, "dev_race", chromeOnWindows)
			if assert.NoError(t, err) {
				ids[i] = d.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	all, _ := repo.ListByUser(ctx, user)
	assert.Len(t, all, 1)
}

func TestResolve_RequiresFingerprint(t *testing.T) {
	reg, _ := newRegistry()
	_, _, err := reg.Resolve(context.Background(), uuid.New(), "", chromeOnWindows)
	assert.True(t, domain.HasCode(err, domain.CodeValidation))
}

func TestApprove(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry()
	d, _, _ := reg.Resolve(ctx, uuid.New(), "dev_abc", chromeOnWindows)
	admin, other := uuid.New(), uuid.New()

	approved, err := reg.Approve(ctx, d.ID, admin)
	require.NoError(t, err)
	assert.True(t, approved.Approved)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, admin, *approved.ApprovedBy)
	assert.NotNil(t, approved.ApprovedAt)

	again, err := reg.Approve(ctx, d.ID, other)
	require.NoError(t, err)
	assert.Equal(t, admin, *again.ApprovedBy)

	resolved, created, _ := reg.Resolve(ctx, d.UserID, "dev_abc", chromeOnWindows)
	assert.False(t, created)
	assert.True(t, resolved.Approved)

	_, err = reg.Approve(ctx, uuid.New(), admin)
	assert.True(t, domain.HasCode(err, domain.CodeNotFound))
}

func TestDeny_DeletesDevice(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry()
	d, _, _ := reg.Resolve(ctx, uuid.New(), "dev_abc", chromeOnWindows)

	denied, err := reg.Deny(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, denied.ID)

	_, err = reg.Get(ctx, d.ID)
	assert.True(t, domain.HasCode(err, domain.CodeNotFound))

	fresh, created, err := reg.Resolve(ctx, d.UserID, "dev_abc", chromeOnWindows)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, d.ID, fresh.ID)
	assert.False(t, fresh.Approved)
}
