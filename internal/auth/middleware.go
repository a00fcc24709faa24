package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/zerotrust/platform/internal/domain"
	"github.com/zerotrust/platform/internal/repository"
)

type contextKey string

const (
	claimsKey       contextKey = "auth_claims"
	sessionKey      contextKey = "auth_session"
	serviceTokenKey contextKey = "auth_service_token"
)

// ClaimsFromContext extracts JWT claims from request context.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey).(*Claims)
	return claims
}

// SessionFromContext extracts the live session from request context.
func SessionFromContext(ctx context.Context) *domain.Session {
	s, _ := ctx.Value(sessionKey).(*domain.Session)
	return s
}

// ServiceTokenFromContext extracts the validated service token.
func ServiceTokenFromContext(ctx context.Context) *domain.ServiceToken {
	t, _ := ctx.Value(serviceTokenKey).(*domain.ServiceToken)
	return t
}

// WithSession returns a context carrying claims and session, as Authenticate does.
func WithSession(ctx context.Context, claims *Claims, s *domain.Session) context.Context {
	ctx = context.WithValue(ctx, claimsKey, claims)
	return context.WithValue(ctx, sessionKey, s)
}

// Authenticate validates the bearer token and requires its session to still
// exist. Logging out deletes the session, which revokes the token.
func Authenticate(jwtMgr *JWTManager, sessions repository.SessionRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := extractAndValidate(r, jwtMgr)
			if err != nil {
				deny(w, domain.ErrUnauthorized(err.Error()))
				return
			}

			sessionID, err := claims.SessionID()
			if err != nil {
				deny(w, domain.ErrUnauthorized("malformed session id"))
				return
			}
			s, err := sessions.Get(r.Context(), sessionID)
			if err != nil {
				deny(w, domain.ErrInternal("session lookup failed", err))
				return
			}
			if s == nil || s.UserID.String() != claims.Subject {
				deny(w, domain.ErrUnauthorized("session expired or revoked"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), claims, s)))
		})
	}
}

// LoadAccount re-reads the session's user on every request. Missing or
// inactive accounts are refused, and the claims carry the stored role and
// email so a demotion takes effect without waiting for the token to expire.
// It must run after Authenticate.
func LoadAccount(users repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			s := SessionFromContext(r.Context())
			if claims == nil || s == nil {
				deny(w, domain.ErrUnauthorized("no auth context"))
				return
			}

			user, err := users.FindByID(r.Context(), s.UserID)
			if err != nil {
				deny(w, domain.ErrInternal("user lookup failed", err))
				return
			}
			if user == nil {
				deny(w, domain.ErrUnauthorized("account no longer exists"))
				return
			}
			switch user.Status {
			case domain.StatusActive:
			case domain.StatusDisabled:
				deny(w, domain.ErrAccountDisabled())
				return
			default:
				deny(w, domain.ErrAccountUnverified())
				return
			}

			current := *claims
			current.Role = user.Role
			current.Email = user.Email
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), &current, s)))
		})
	}
}

// RequireServiceScope authenticates an internal service by its bearer
// service token and requires scope. User session tokens are not accepted.
func RequireServiceScope(mgr *ServiceTokenManager, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r)
			if err != nil {
				deny(w, domain.ErrUnauthorized(err.Error()))
				return
			}
			token, err := mgr.Validate(raw)
			if err != nil {
				deny(w, domain.ErrUnauthorized(err.Error()))
				return
			}
			if !token.HasScope(scope) {
				deny(w, domain.ErrForbidden("missing scope "+scope))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), serviceTokenKey, token)))
		})
	}
}

// RequireRole returns middleware that checks the caller's role.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				deny(w, domain.ErrUnauthorized("no auth context"))
				return
			}
			if !HasRole(claims.Role, roles...) {
				deny(w, domain.ErrForbidden("insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAllow restricts a route to sessions whose policy decision was allow.
// Step-up sessions only reach self-service routes.
func RequireAllow(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := SessionFromContext(r.Context())
		if s == nil {
			deny(w, domain.ErrUnauthorized("no auth context"))
			return
		}
		if s.LastPolicy.Decision != domain.DecisionAllow {
			deny(w, domain.ErrForbidden("session requires additional verification"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func deny(w http.ResponseWriter, appErr *domain.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status)
	_ = json.NewEncoder(w).Encode(appErr)
}

func extractAndValidate(r *http.Request, jwtMgr *JWTManager) (*Claims, error) {
	token, err := bearerToken(r)
	if err != nil {
		return nil, err
	}
	return jwtMgr.ValidateToken(token)
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("missing Authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("invalid Authorization format")
	}
	return parts[1], nil
}
