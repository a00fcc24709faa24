package signal

import (
	"context"
	"log/slog"
	"time"

	"github.com/zerotrust/platform/internal/domain"
)

// DefaultLookupTimeout bounds the live origin lookup inside Collect.
const DefaultLookupTimeout = 2 * time.Second

// Collector gathers the inputs of a policy decision.
type Collector struct {
	origins  OriginResolver
	fallback OriginResolver
	posture  PostureSource
	timeout  time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithFallback replaces the simulated fallback resolver.
func WithFallback(r OriginResolver) Option {
	return func(c *Collector) { c.fallback = r }
}

// WithTimeout sets the live lookup timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Collector) { c.timeout = d }
}

// WithClock sets the clock used for login timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// NewCollector creates a collector. A nil origins resolver goes straight to
// the fallback.
func NewCollector(origins OriginResolver, posture PostureSource, logger *slog.Logger, opts ...Option) *Collector {
	c := &Collector{
		origins:  origins,
		fallback: SimulatedResolver{},
		posture:  posture,
		timeout:  DefaultLookupTimeout,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request is the per-decision input to Collect.
type Request struct {
	IP             string
	UserAgent      string
	FailedAttempts int
	DeviceApproved bool
	Posture        *domain.Posture // nil samples a fresh snapshot
}

// Collect builds a complete signal bundle. It never fails: origin lookup
// errors and timeouts fall back silently.
func (c *Collector) Collect(ctx context.Context, req Request) domain.SignalBundle {
	origin := c.Origin(ctx, req.IP)

	var posture domain.Posture
	if req.Posture != nil {
		posture = *req.Posture
	} else {
		posture = c.posture.Sample()
	}

	return domain.SignalBundle{
		Origin:         origin,
		UserAgent:      req.UserAgent,
		OS:             DetectOS(req.UserAgent),
		Browser:        DetectBrowser(req.UserAgent),
		LoginTime:      localTime(c.now(), origin.Timezone),
		FailedAttempts: max(0, req.FailedAttempts),
		DeviceApproved: req.DeviceApproved,
		Posture:        posture,
	}
}

// Origin resolves ip with the live resolver under the collector timeout and
// falls back when it fails.
func (c *Collector) Origin(ctx context.Context, ip string) domain.Origin {
	if c.origins != nil {
		lookupCtx, cancel := context.WithTimeout(ctx, c.timeout)
		origin, err := c.origins.Resolve(lookupCtx, ip)
		cancel()
		if err == nil {
			return origin
		}
		c.logger.Warn("origin resolution unavailable, using fallback", "ip", ip, "error", err)
	}

	origin, err := c.fallback.Resolve(ctx, ip)
	if err != nil {
		c.logger.Error("fallback origin resolver failed", "error", err)
		return SimulatedOrigins[0]
	}
	return origin
}

// localTime expresses t in the origin's timezone when it is a known IANA name.
func localTime(t time.Time, tz string) time.Time {
	if tz == "" {
		return t
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return t
	}
	return t.In(loc)
}
