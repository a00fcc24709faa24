package domain

import (
	"slices"
	"time"
)

// Scopes granted to service tokens.
const (
	ScopeAuditRead = "audit:read"
)

// ServiceTokenTTL is the default lifetime of a minted service token.
const ServiceTokenTTL = time.Hour

// ServiceToken is the payload of a machine credential used by internal
// services such as log shippers.
type ServiceToken struct {
	Sub    string   `json:"sub"`
	Scopes []string `json:"scopes"`
	Exp    int64    `json:"exp"`
	Iat    int64    `json:"iat"`
	Jti    string   `json:"jti"`
}

// HasScope reports whether the token grants scope.
func (t *ServiceToken) HasScope(scope string) bool {
	return slices.Contains(t.Scopes, scope)
}
