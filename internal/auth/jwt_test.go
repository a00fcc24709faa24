package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerotrust/platform/internal/domain"
)

func newTestJWTManager() *JWTManager {
	return NewJWTManager("test-secret-key", time.Hour)
}

func testSession(user *domain.User, decision domain.Decision, ttl time.Duration) *domain.Session {
	now := time.Now()
	return &domain.Session{
		ID:         uuid.New(),
		UserID:     user.ID,
		DeviceID:   uuid.New(),
		LastPolicy: domain.PolicyResult{Decision: decision},
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
}

func testUser(role domain.Role) *domain.User {
	return &domain.User{ID: uuid.New(), Email: "test@test.com", Role: role, Status: domain.StatusActive}
}

func TestGenerateAndValidateToken(t *testing.T) {
	mgr := newTestJWTManager()
	user := testUser(domain.RoleIT)
	s := testSession(user, domain.DecisionAllow, time.Hour)

	token, err := mgr.GenerateToken(s, user)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := mgr.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Equal(t, "test@test.com", claims.Email)
	assert.Equal(t, domain.RoleIT, claims.Role)
	assert.Equal(t, domain.DecisionAllow, claims.Decision)

	sid, err := claims.SessionID()
	require.NoError(t, err)
	assert.Equal(t, s.ID, sid)

	uid, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, user.ID, uid)
}

func TestInvalidSecretRejected(t *testing.T) {
	mgr1 := NewJWTManager("secret-1", time.Hour)
	mgr2 := NewJWTManager("secret-2", time.Hour)
	user := testUser(domain.RoleUser)

	token, err := mgr1.GenerateToken(testSession(user, domain.DecisionAllow, time.Hour), user)
	require.NoError(t, err)

	_, err = mgr2.ValidateToken(token)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	mgr := newTestJWTManager()
	user := testUser(domain.RoleUser)

	token, err := mgr.GenerateToken(testSession(user, domain.DecisionAllow, -time.Minute), user)
	require.NoError(t, err)

	_, err = mgr.ValidateToken(token)
	assert.Error(t, err)
}

func TestGarbageTokenRejected(t *testing.T) {
	_, err := newTestJWTManager().ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestHasRole(t *testing.T) {
	tests := []struct {
		name    string
		role    domain.Role
		allowed []domain.Role
		want    bool
	}{
		{"superadmin passes user admin", domain.RoleSuperAdmin, UserAdminRoles, true},
		{"superadmin passes audit", domain.RoleSuperAdmin, AuditRoles, true},
		{"superadmin passes empty list", domain.RoleSuperAdmin, nil, true},
		{"admin manages devices", domain.RoleAdmin, DeviceAdminRoles, true},
		{"it manages devices", domain.RoleIT, DeviceAdminRoles, true},
		{"admin cannot read audit", domain.RoleAdmin, AuditRoles, false},
		{"it cannot manage users", domain.RoleIT, UserAdminRoles, false},
		{"user has no admin surface", domain.RoleUser, DeviceAdminRoles, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasRole(tt.role, tt.allowed...))
		})
	}
}
