package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerotrust/platform/internal/domain"
	"github.com/zerotrust/platform/internal/repository"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	if SessionFromContext(r.Context()) == nil {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func issue(t *testing.T, mgr *JWTManager, sessions *repository.MemorySessionRepository, role domain.Role, decision domain.Decision) (string, *domain.Session) {
	t.Helper()
	user := testUser(role)
	s := testSession(user, decision, time.Hour)
	require.NoError(t, sessions.Put(context.Background(), s))
	token, err := mgr.GenerateToken(s, user)
	require.NoError(t, err)
	return token, s
}

func TestAuthenticate(t *testing.T) {
	mgr := newTestJWTManager()
	sessions := repository.NewMemorySessionRepository()
	h := Authenticate(mgr, sessions)(http.HandlerFunc(okHandler))
	token, s := issue(t, mgr, sessions, domain.RoleUser, domain.DecisionAllow)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	t.Run("revoked session", func(t *testing.T) {
		require.NoError(t, sessions.Delete(context.Background(), s.ID))
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "revoked")
	})
}

func TestRequireRoleAndAllow(t *testing.T) {
	mgr := newTestJWTManager()
	sessions := repository.NewMemorySessionRepository()
	chain := func(roles ...domain.Role) http.Handler {
		return Authenticate(mgr, sessions)(RequireAllow(RequireRole(roles...)(http.HandlerFunc(okHandler))))
	}

	tests := []struct {
		name     string
		role     domain.Role
		decision domain.Decision
		roles    []domain.Role
		want     int
	}{
		{"it reads audit", domain.RoleIT, domain.DecisionAllow, AuditRoles, http.StatusOK},
		{"superadmin reads audit", domain.RoleSuperAdmin, domain.DecisionAllow, AuditRoles, http.StatusOK},
		{"admin denied audit", domain.RoleAdmin, domain.DecisionAllow, AuditRoles, http.StatusForbidden},
		{"step-up session denied", domain.RoleIT, domain.DecisionStepUpMFA, AuditRoles, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, _ := issue(t, mgr, sessions, tt.role, tt.decision)
			req := httptest.NewRequest(http.MethodGet, "/admin/audit", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			chain(tt.roles...).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequireRole_NoContext(t *testing.T) {
	rec := httptest.NewRecorder()
	RequireRole(domain.RoleIT)(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestLoadAccount(t *testing.T) {
	ctx := context.Background()
	mgr := newTestJWTManager()
	sessions := repository.NewMemorySessionRepository()
	users := repository.NewMemoryUserRepository()

	user := testUser(domain.RoleSuperAdmin)
	require.NoError(t, users.Create(ctx, user))
	s := testSession(user, domain.DecisionAllow, time.Hour)
	require.NoError(t, sessions.Put(ctx, s))
	token, err := mgr.GenerateToken(s, user)
	require.NoError(t, err)

	h := Authenticate(mgr, sessions)(LoadAccount(users)(RequireRole(UserAdminRoles...)(http.HandlerFunc(okHandler))))
	call := func() int {
		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, call())

	user.Role = domain.RoleUser
	require.NoError(t, users.Update(ctx, user))
	assert.Equal(t, http.StatusForbidden, call(), "demotion applies to an existing token")

	user.Role = domain.RoleSuperAdmin
	user.Status = domain.StatusDisabled
	require.NoError(t, users.Update(ctx, user))
	assert.Equal(t, http.StatusForbidden, call(), "disabled account")

	require.NoError(t, users.Delete(ctx, user.ID))
	assert.Equal(t, http.StatusUnauthorized, call(), "deleted account")
}
