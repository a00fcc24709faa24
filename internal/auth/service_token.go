package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zerotrust/platform/internal/domain"
)

// ServiceTokenManager issues HMAC-SHA256 scoped tokens for internal services.
// Format: base64(payload).base64(signature)
type ServiceTokenManager struct {
	secret []byte
	now    func() time.Time
}

// NewServiceTokenManager creates a service token manager.
func NewServiceTokenManager(secret string) *ServiceTokenManager {
	return &ServiceTokenManager{secret: []byte(secret), now: time.Now}
}

// Generate mints a token for subject with the given scopes. A non-positive
// ttl uses domain.ServiceTokenTTL.
func (m *ServiceTokenManager) Generate(subject string, scopes []string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("service token subject is required")
	}
	if ttl <= 0 {
		ttl = domain.ServiceTokenTTL
	}
	now := m.now()

	token := domain.ServiceToken{
		Sub:    subject,
		Scopes: scopes,
		Exp:    now.Add(ttl).Unix(),
		Iat:    now.Unix(),
		Jti:    uuid.New().String(),
	}

	payloadJSON, err := json.Marshal(token)
	if err != nil {
		return "", fmt.Errorf("marshal service token: %w", err)
	}

	payloadB64 := base64.RawURLEncoding.EncodeToString(payloadJSON)
	sigB64 := base64.RawURLEncoding.EncodeToString(m.sign(payloadB64))
	return payloadB64 + "." + sigB64, nil
}

// Validate verifies the signature and expiry and decodes the payload.
func (m *ServiceTokenManager) Validate(tokenString string) (*domain.ServiceToken, error) {
	i := strings.LastIndexByte(tokenString, '.')
	if i < 0 {
		return nil, fmt.Errorf("invalid service token format")
	}
	payloadB64, sigB64 := tokenString[:i], tokenString[i+1:]

	actualSig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}
	if !hmac.Equal(m.sign(payloadB64), actualSig) {
		return nil, fmt.Errorf("invalid signature")
	}

	payloadJSON, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	var token domain.ServiceToken
	if err := json.Unmarshal(payloadJSON, &token); err != nil {
		return nil, fmt.Errorf("unmarshal token: %w", err)
	}

	if m.now().Unix() > token.Exp {
		return nil, fmt.Errorf("token expired")
	}
	return &token, nil
}

func (m *ServiceTokenManager) sign(data string) []byte {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}
