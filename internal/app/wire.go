package app

import (
	"log/slog"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/zerotrust/platform/internal/audit"
	"github.com/zerotrust/platform/internal/auth"
	"github.com/zerotrust/platform/internal/device"
	"github.com/zerotrust/platform/internal/domain"
	"github.com/zerotrust/platform/internal/guard"
	"github.com/zerotrust/platform/internal/handler"
	adminhandler "github.com/zerotrust/platform/internal/handler/admin"
	"github.com/zerotrust/platform/internal/otp"
	"github.com/zerotrust/platform/internal/policy"
	"github.com/zerotrust/platform/internal/repository"
	"github.com/zerotrust/platform/internal/service"
	"github.com/zerotrust/platform/internal/signal"
)

// Stores groups the persistence backends the services run on.
type Stores struct {
	Users    repository.UserRepository
	Devices  repository.DeviceRepository
	OTPs     repository.OTPRepository
	Sessions repository.SessionRepository
	Audit    repository.AuditRepository
	Failures guard.FailureCounter
}

// NewMemoryStores keeps everything in process memory.
func NewMemoryStores() Stores {
	return Stores{
		Users:    repository.NewMemoryUserRepository(),
		Devices:  repository.NewMemoryDeviceRepository(),
		OTPs:     repository.NewMemoryOTPRepository(),
		Sessions: repository.NewMemorySessionRepository(),
		Audit:    repository.NewMemoryAuditRepository(),
		Failures: guard.NewMemoryFailureCounter(),
	}
}

// NewPostgresStores keeps users, devices, audit and login attempts in
// Postgres. OTPs and sessions go to Redis when rdb is set, memory otherwise.
func NewPostgresStores(pool *pgxpool.Pool, rdb *redis.Client) Stores {
	s := Stores{
		Users:    repository.NewPgUserRepository(pool),
		Devices:  repository.NewPgDeviceRepository(pool),
		OTPs:     repository.NewMemoryOTPRepository(),
		Sessions: repository.NewMemorySessionRepository(),
		Audit:    repository.NewPgAuditRepository(pool),
		Failures: guard.NewPgFailureCounter(pool),
	}
	s.UseRedis(rdb)
	return s
}

// UseRedis moves OTPs and sessions to Redis under the default "zt:" prefix.
// A nil client leaves the stores unchanged.
func (s *Stores) UseRedis(rdb *redis.Client) {
	if rdb == nil {
		return
	}
	s.OTPs = repository.NewRedisOTPRepository(rdb, "")
	s.Sessions = repository.NewRedisSessionRepository(rdb, "")
}

// RouterDeps holds everything NewRouter needs besides the stores.
type RouterDeps struct {
	Logger     *slog.Logger
	JWTSecret  string
	SessionTTL time.Duration
	Evaluator  *policy.Evaluator

	// Origins resolves client IPs. Nil uses the simulated origin table.
	Origins signal.OriginResolver
	// DevicePosture supplies the posture of newly registered devices.
	DevicePosture signal.PostureSource
	// Clock overrides the collector's login time. Nil uses time.Now.
	Clock func() time.Time

	CORSOrigins string
	// TrustedProxies may set X-Forwarded-For. Empty means the peer address is the client.
	TrustedProxies []netip.Prefix
	AuthRateLimit  int
	AuthRateWindow time.Duration
	// IdempotencyTTL is how long Idempotency-Key values are remembered.
	IdempotencyTTL time.Duration
	// ServiceTokenSecret enables the /service routes for internal callers.
	ServiceTokenSecret string
	ExposeOTP          bool
	HealthChecks       map[string]handler.HealthCheck
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(stores Stores, deps RouterDeps) chi.Router {
	logger := deps.Logger

	if deps.Origins == nil {
		deps.Origins = signal.SimulatedResolver{}
	}
	if deps.DevicePosture == nil {
		deps.DevicePosture = signal.RandomPosture{}
	}
	if deps.Evaluator == nil {
		deps.Evaluator = policy.NewEvaluator(nil)
	}
	if deps.CORSOrigins == "" {
		deps.CORSOrigins = "*"
	}

	collectorOpts := []signal.Option{}
	if deps.Clock != nil {
		collectorOpts = append(collectorOpts, signal.WithClock(deps.Clock))
	}
	collector := signal.NewCollector(deps.Origins, deps.DevicePosture, logger, collectorOpts...)

	jwtMgr := auth.NewJWTManager(deps.JWTSecret, deps.SessionTTL)
	registry := device.NewRegistry(stores.Devices, deps.DevicePosture)
	auditLog := audit.NewLog(stores.Audit, logger)

	// Services
	authSvc := service.NewAuthService(service.AuthDeps{
		Users:     stores.Users,
		Sessions:  stores.Sessions,
		OTPs:      otp.NewManager(stores.OTPs),
		Devices:   registry,
		Collector: collector,
		Evaluator: deps.Evaluator,
		Failures:  stores.Failures,
		Audit:     auditLog,
		JWT:       jwtMgr,
		Logger:    logger,
		ExposeOTP: deps.ExposeOTP,
	})
	adminSvc := service.NewAdminService(stores.Users, registry, auditLog, collector, logger)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	userAdmin := adminhandler.NewUserAdminHandler(adminSvc)
	deviceAdmin := adminhandler.NewDeviceAdminHandler(adminSvc)
	auditAdmin := adminhandler.NewAuditAdminHandler(adminSvc)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RealIP(deps.TrustedProxies))
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORSWithOrigins(deps.CORSOrigins))
	r.Use(handler.JSONContentType)

	// Health (no auth)
	r.Get("/health", handler.HealthHandler(deps.HealthChecks))

	// Auth routes (no auth, rate limited per client IP)
	limiter := guard.NewRateLimiter(deps.AuthRateLimit, deps.AuthRateWindow)
	idempotent := handler.Idempotent(guard.NewIdempotencyGuard(deps.IdempotencyTTL))
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(handler.RateLimit(limiter))
			r.With(idempotent).Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/otp/verify", authHandler.VerifyOTP)
			r.Post("/otp/resend", authHandler.ResendOTP)
		})

		r.With(auth.Authenticate(jwtMgr, stores.Sessions)).Post("/logout", authHandler.Logout)
	})

	// Session-authenticated self-service routes; step-up sessions allowed
	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate(jwtMgr, stores.Sessions))
		r.Use(auth.LoadAccount(stores.Users))

		r.Get("/me", authHandler.Me)
		r.Post("/devices/me/approval-request", authHandler.RequestDeviceApproval)
	})

	// Admin routes: allow decision plus role
	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.Authenticate(jwtMgr, stores.Sessions))
		r.Use(auth.LoadAccount(stores.Users))
		r.Use(auth.RequireAllow)

		r.Route("/users", func(r chi.Router) {
			r.Use(auth.RequireRole(auth.UserAdminRoles...))
			r.Get("/", userAdmin.List)
			r.With(idempotent).Post("/", userAdmin.Create)
			r.Patch("/{id}", userAdmin.Update)
			r.Delete("/{id}", userAdmin.Delete)
			r.Patch("/{id}/role", userAdmin.ChangeRole)
			r.Post("/{id}/toggle-status", userAdmin.ToggleStatus)
		})

		r.Route("/devices", func(r chi.Router) {
			r.Use(auth.RequireRole(auth.DeviceAdminRoles...))
			r.Get("/", deviceAdmin.List)
			r.Post("/{id}/approve", deviceAdmin.Approve)
			r.Post("/{id}/deny", deviceAdmin.Deny)
		})

		r.Route("/audit", func(r chi.Router) {
			r.Use(auth.RequireRole(auth.AuditRoles...))
			r.Get("/", auditAdmin.List)
		})
	})

	// Internal service routes: scoped service tokens, no user session
	if deps.ServiceTokenSecret != "" {
		serviceTokens := auth.NewServiceTokenManager(deps.ServiceTokenSecret)
		r.Route("/service", func(r chi.Router) {
			r.With(auth.RequireServiceScope(serviceTokens, domain.ScopeAuditRead)).Get("/audit", auditAdmin.List)
		})
	}

	return r
}
