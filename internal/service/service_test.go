package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zerotrust/platform/internal/audit"
	"github.com/zerotrust/platform/internal/auth"
	"github.com/zerotrust/platform/internal/device"
	"github.com/zerotrust/platform/internal/domain"
	"github.com/zerotrust/platform/internal/guard"
	"github.com/zerotrust/platform/internal/otp"
	"github.com/zerotrust/platform/internal/policy"
	"github.com/zerotrust/platform/internal/repository"
	"github.com/zerotrust/platform/internal/signal"
)

const testUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

var (
	berlin = domain.Origin{IP: "203.0.113.42", Country: "Germany", City: "Berlin", Timezone: "Europe/Berlin"}
	moscow = domain.Origin{IP: "198.51.100.7", Country: "Russia", City: "Moscow", Timezone: "Europe/Moscow"}

	afternoonUTC = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	lateNightUTC = time.Date(2025, 6, 2, 23, 30, 0, 0, time.UTC)
)

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	auth     *AuthService
	admin    *AdminService
	users    *repository.MemoryUserRepository
	devices  *device.Registry
	sessions *repository.MemorySessionRepository
	audit    *repository.MemoryAuditRepository
	failures *guard.MemoryFailureCounter
}

type harnessOpts struct {
	origin  domain.Origin
	posture domain.Posture
	clock   time.Time
}

func newHarness(t *testing.T, opts harnessOpts) *harness {
	t.Helper()
	if opts.origin.Country == "" {
		opts.origin = berlin
	}
	if opts.posture == (domain.Posture{}) {
		opts.posture = domain.HealthyPosture()
	}
	if opts.clock.IsZero() {
		opts.clock = afternoonUTC
	}

	logger := noopLogger()
	users := repository.NewMemoryUserRepository()
	sessions := repository.NewMemorySessionRepository()
	auditRepo := repository.NewMemoryAuditRepository()
	failures := guard.NewMemoryFailureCounter()
	registry := device.NewRegistry(repository.NewMemoryDeviceRepository(), signal.StaticPosture(opts.posture))
	collector := signal.NewCollector(signal.StaticResolver{Origin: opts.origin}, signal.RandomPosture{}, logger,
		signal.WithClock(func() time.Time { return opts.clock }))
	auditLog := audit.NewLog(auditRepo, logger)

	svc := NewAuthService(AuthDeps{
		Users:     users,
		Sessions:  sessions,
		OTPs:      otp.NewManager(repository.NewMemoryOTPRepository()),
		Devices:   registry,
		Collector: collector,
		Evaluator: policy.NewEvaluator(nil),
		Failures:  failures,
		Audit:     auditLog,
		JWT:       auth.NewJWTManager("test-secret", time.Hour),
		Logger:    logger,
		ExposeOTP: true,
	})

	return &harness{
		auth:     svc,
		admin:    NewAdminService(users, registry, auditLog, collector, logger),
		users:    users,
		devices:  registry,
		sessions: sessions,
		audit:    auditRepo,
		failures: failures,
	}
}

func client(fingerprint string) ClientContext {
	return ClientContext{IP: "203.0.113.42", UserAgent: testUA, Fingerprint: fingerprint}
}

func registerInput(email string) RegisterInput {
	return RegisterInput{FullName: "Test User", Email: email, Mobile: "+15551234567", Password: "s3cret-pass"}
}

// registerVerified registers email and completes the registration OTP.
func (h *harness) registerVerified(t *testing.T, email, fingerprint string) *LoginResult {
	t.Helper()
	ctx := context.Background()
	ch, err := h.auth.Register(ctx, client(fingerprint), registerInput(email))
	require.NoError(t, err)
	res, err := h.auth.VerifyOTP(ctx, client(fingerprint), VerifyInput{Email: email, Purpose: domain.OTPRegistration, Code: ch.OTP})
	require.NoError(t, err)
	return res
}

func (h *harness) actions(t *testing.T) []domain.AuditAction {
	t.Helper()
	entries, err := h.audit.List(context.Background(), 0)
	require.NoError(t, err)
	out := make([]domain.AuditAction, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i].Action)
	}
	return out
}

func (h *harness) auditMentions(t *testing.T, needle string) bool {
	t.Helper()
	entries, err := h.audit.List(context.Background(), 0)
	require.NoError(t, err)
	for _, e := range entries {
		if strings.Contains(e.Details, needle) {
			return true
		}
	}
	return false
}
