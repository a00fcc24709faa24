package infra

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		StoreDriver:    StoreMemory,
		JWTSecret:      "0123456789abcdef0123456789abcdef",
		SessionTTL:     time.Hour,
		AuthRateLimit:  10,
		AuthRateWindow: time.Minute,
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, 8*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 3100, cfg.APIPort)
	assert.Equal(t, "zerotrust.audit", cfg.AuditTopic)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.False(t, cfg.ExposeOTP)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("EXPOSE_OTP", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers())
	assert.True(t, cfg.ExposeOTP)
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	t.Setenv("SESSION_TTL", "forever")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"unknown driver", func(c *Config) { c.StoreDriver = "sqlite" }, "STORE_DRIVER"},
		{"zero session ttl", func(c *Config) { c.SessionTTL = 0 }, "SESSION_TTL"},
		{"zero rate limit", func(c *Config) { c.AuthRateLimit = 0 }, "AUTH_RATE_LIMIT"},
		{"bad trusted proxy", func(c *Config) { c.TrustedProxies = "10.0.0.0/8, not-an-ip" }, "TRUSTED_PROXIES"},
		{"kafka without postgres", func(c *Config) { c.KafkaEnabled = true }, "KAFKA_ENABLED"},
		{"default secret", func(c *Config) { c.JWTSecret = insecureJWTSecret }, "insecure default"},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, "too short"},
		{"short service secret", func(c *Config) { c.ServiceTokenSecret = "short" }, "SERVICE_TOKEN_SECRET"},
		{"service secret reuses jwt secret", func(c *Config) { c.ServiceTokenSecret = c.JWTSecret }, "must differ"},
		{"expose otp", func(c *Config) { c.ExposeOTP = true }, "EXPOSE_OTP"},
		{"insecure allowed", func(c *Config) {
			c.JWTSecret = insecureJWTSecret
			c.ExposeOTP = true
			c.AllowInsecureDefaults = true
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTrustedProxyPrefixes(t *testing.T) {
	cfg := &Config{TrustedProxies: " 10.0.0.0/8 , 192.168.1.7,,fd00::/8"}
	prefixes, err := cfg.TrustedProxyPrefixes()
	require.NoError(t, err)
	require.Len(t, prefixes, 3)
	assert.Equal(t, "10.0.0.0/8", prefixes[0].String())
	assert.Equal(t, "192.168.1.7/32", prefixes[1].String())
	assert.Equal(t, "fd00::/8", prefixes[2].String())

	empty, err := (&Config{}).TrustedProxyPrefixes()
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDSN(t *testing.T) {
	cfg := &Config{PGUser: "u", PGPassword: "p", PGHost: "db", PGPort: 5432, PGDatabase: "zt"}
	assert.Equal(t, "postgres://u:p@db:5432/zt?sslmode=disable", cfg.DSN())

	cfg.DatabaseURL = "postgres://override"
	assert.Equal(t, "postgres://override", cfg.DSN())
}
