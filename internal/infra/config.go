package infra

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	insecureJWTSecret = "change-me-in-production"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Storage
	StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"`

	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5432"`
	PGUser      string `env:"PGUSER" envDefault:"zerotrust"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"zerotrust"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"zerotrust"`

	// Redis
	RedisURL     string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	RedisEnabled bool   `env:"REDIS_ENABLED" envDefault:"false"`

	// Sessions
	JWTSecret  string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"8h"`

	// Server
	APIPort int `env:"API_PORT" envDefault:"3100"`

	// Kafka
	KafkaBrokers  string        `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled  bool          `env:"KAFKA_ENABLED" envDefault:"false"`
	AuditTopic    string        `env:"AUDIT_TOPIC" envDefault:"zerotrust.audit"`
	RelayInterval time.Duration `env:"AUDIT_RELAY_INTERVAL" envDefault:"2s"`
	RelayBatch    int           `env:"AUDIT_RELAY_BATCH" envDefault:"100"`

	// CORS
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Proxies whose X-Forwarded-For is honoured (IPs or CIDRs, comma separated)
	TrustedProxies string `env:"TRUSTED_PROXIES"`

	// Origin lookup
	OriginLookupEnabled  bool          `env:"ORIGIN_LOOKUP_ENABLED" envDefault:"false"`
	OriginLookupURL      string        `env:"ORIGIN_LOOKUP_URL" envDefault:"http://ip-api.com/json"`
	OriginLookupTimeout  time.Duration `env:"ORIGIN_LOOKUP_TIMEOUT" envDefault:"2s"`
	OriginLookupCacheTTL time.Duration `env:"ORIGIN_LOOKUP_CACHE_TTL" envDefault:"10m"`

	// Policy
	PolicyFile string `env:"POLICY_FILE"`

	// Rate limiting on /auth
	AuthRateLimit  int           `env:"AUTH_RATE_LIMIT" envDefault:"20"`
	AuthRateWindow time.Duration `env:"AUTH_RATE_WINDOW" envDefault:"1m"`

	// Idempotency-Key retention for POST /auth/register and POST /admin/users
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	// Service tokens for internal callers; empty disables /service routes
	ServiceTokenSecret string `env:"SERVICE_TOKEN_SECRET"`

	// Dev
	ExposeOTP             bool `env:"EXPOSE_OTP" envDefault:"false"`
	SeedDemoUsers         bool `env:"SEED_DEMO_USERS" envDefault:"false"`
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// LoadConfig reads an optional .env file, then parses environment variables
// into a Config struct. Variables already set in the environment win.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks for configuration that cannot work, and for insecure
// configuration that must not run in production.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass the secret checks (local dev only).
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory, StorePostgres:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreMemory, StorePostgres, c.StoreDriver)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.AuthRateLimit <= 0 || c.AuthRateWindow <= 0 {
		return fmt.Errorf("AUTH_RATE_LIMIT and AUTH_RATE_WINDOW must be positive")
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}
	if c.KafkaEnabled && c.StoreDriver != StorePostgres {
		return fmt.Errorf("KAFKA_ENABLED requires STORE_DRIVER=postgres; the audit relay reads from audit_log")
	}

	if c.AllowInsecureDefaults {
		return nil
	}
	if c.JWTSecret == insecureJWTSecret {
		return fmt.Errorf("JWT_SECRET is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET is too short (%d chars); minimum 32 characters required", len(c.JWTSecret))
	}
	if c.ServiceTokenSecret != "" && len(c.ServiceTokenSecret) < 32 {
		return fmt.Errorf("SERVICE_TOKEN_SECRET is too short (%d chars); minimum 32 characters required", len(c.ServiceTokenSecret))
	}
	if c.ServiceTokenSecret != "" && c.ServiceTokenSecret == c.JWTSecret {
		return fmt.Errorf("SERVICE_TOKEN_SECRET must differ from JWT_SECRET")
	}
	if c.ExposeOTP {
		return fmt.Errorf("EXPOSE_OTP returns one-time codes in API responses; only allowed with ALLOW_INSECURE_DEFAULTS=true")
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// Brokers splits KAFKA_BROKERS into addresses.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// TrustedProxyPrefixes parses TRUSTED_PROXIES. A bare IP becomes a single-host prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range strings.Split(c.TrustedProxies, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		out = append(out, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return out, nil
}
