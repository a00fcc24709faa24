package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/zerotrust/platform/internal/domain"
	"github.com/zerotrust/platform/internal/guard"
	"golang.org/x/sync/singleflight"
)

// OriginResolver resolves the network origin of a client IP.
type OriginResolver interface {
	Resolve(ctx context.Context, ip string) (domain.Origin, error)
}

// SimulatedOrigins is the fallback list used when no live lookup is available.
var SimulatedOrigins = []domain.Origin{
	{IP: "192.168.1.100", Country: "United States", City: "New York", Region: "New York", Timezone: "America/New_York", Lat: 40.7128, Lon: -74.0060, Simulated: true},
	{IP: "10.0.0.55", Country: "United States", City: "San Francisco", Region: "California", Timezone: "America/Los_Angeles", Lat: 37.7749, Lon: -122.4194, Simulated: true},
	{IP: "203.0.113.42", Country: "Germany", City: "Berlin", Region: "Berlin", Timezone: "Europe/Berlin", Lat: 52.5200, Lon: 13.4050, Simulated: true},
	{IP: "198.51.100.7", Country: "Russia", City: "Moscow", Region: "Moscow", Timezone: "Europe/Moscow", Lat: 55.7558, Lon: 37.6173, Simulated: true},
}

// SimulatedResolver picks a random entry from SimulatedOrigins. It never fails.
type SimulatedResolver struct{}

// Resolve returns a simulated origin.
func (SimulatedResolver) Resolve(_ context.Context, _ string) (domain.Origin, error) {
	return SimulatedOrigins[rand.IntN(len(SimulatedOrigins))], nil
}

// StaticResolver always returns the same origin, or Err when set.
type StaticResolver struct {
	Origin domain.Origin
	Err    error
}

// Resolve returns the fixed origin.
func (r StaticResolver) Resolve(_ context.Context, _ string) (domain.Origin, error) {
	if r.Err != nil {
		return domain.Origin{}, r.Err
	}
	return r.Origin, nil
}

const (
	lookupBreakerKey = "origin_lookup"

	defaultOriginCacheSize = 4096
)

// LookupResolver queries an ip-api.com compatible JSON endpoint. Results are
// cached per IP and concurrent lookups for one IP share a single request.
type LookupResolver struct {
	baseURL  string
	client   *http.Client
	breaker  *guard.CircuitBreaker
	logger   *slog.Logger
	cacheTTL time.Duration
	group    singleflight.Group

	mu         sync.Mutex
	cache      map[string]cachedOrigin
	maxEntries int
}

type cachedOrigin struct {
	origin    domain.Origin
	expiresAt time.Time
}

// NewLookupResolver creates a live origin resolver against baseURL
// (for example "http://ip-api.com/json").
func NewLookupResolver(baseURL string, timeout, cacheTTL time.Duration, logger *slog.Logger) *LookupResolver {
	return &LookupResolver{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: timeout},
		breaker:    guard.NewCircuitBreaker(3, 30*time.Second),
		logger:     logger,
		cacheTTL:   cacheTTL,
		cache:      make(map[string]cachedOrigin),
		maxEntries: defaultOriginCacheSize,
	}
}

// Resolve looks up ip. Any failure is reported as ErrOriginUnavailable.
func (r *LookupResolver) Resolve(ctx context.Context, ip string) (domain.Origin, error) {
	if o, ok := r.cached(ip); ok {
		return o, nil
	}

	if res := r.breaker.Check(ctx, lookupBreakerKey); !res.Allowed {
		return domain.Origin{}, domain.ErrOriginUnavailable(errors.New(res.Reason))
	}

	v, err, _ := r.group.Do(ip, func() (interface{}, error) {
		return r.fetch(ctx, ip)
	})
	if err != nil {
		r.breaker.RecordFailure(lookupBreakerKey)
		r.logger.Debug("origin lookup failed", "ip", ip, "error", err)
		return domain.Origin{}, domain.ErrOriginUnavailable(err)
	}
	r.breaker.RecordSuccess(lookupBreakerKey)

	origin := v.(domain.Origin)
	r.store(ip, origin)
	return origin, nil
}

func (r *LookupResolver) fetch(ctx context.Context, ip string) (domain.Origin, error) {
	url := r.baseURL
	if ip != "" {
		url += "/" + ip
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Origin{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return domain.Origin{}, fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Origin{}, fmt.Errorf("api returned %d", resp.StatusCode)
	}

	var body struct {
		Status     string  `json:"status"`
		Message    string  `json:"message"`
		Query      string  `json:"query"`
		Country    string  `json:"country"`
		City       string  `json:"city"`
		RegionName string  `json:"regionName"`
		ISP        string  `json:"isp"`
		Timezone   string  `json:"timezone"`
		Lat        float64 `json:"lat"`
		Lon        float64 `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Origin{}, fmt.Errorf("decode response: %w", err)
	}
	if body.Status != "" && body.Status != "success" {
		return domain.Origin{}, fmt.Errorf("lookup failed: %s", body.Message)
	}

	resolved := body.Query
	if resolved == "" {
		resolved = ip
	}
	return domain.Origin{
		IP:       resolved,
		Country:  body.Country,
		City:     body.City,
		Region:   body.RegionName,
		ISP:      body.ISP,
		Timezone: body.Timezone,
		Lat:      body.Lat,
		Lon:      body.Lon,
	}, nil
}

func (r *LookupResolver) cached(ip string) (domain.Origin, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cache[ip]
	if !ok {
		return domain.Origin{}, false
	}
	if time.Now().After(c.expiresAt) {
		delete(r.cache, ip)
		return domain.Origin{}, false
	}
	return c.origin, true
}

func (r *LookupResolver) store(ip string, o domain.Origin) {
	if r.cacheTTL <= 0 {
		return
	}
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cache[ip]; !ok && len(r.cache) >= r.maxEntries {
		r.evict(now)
	}
	r.cache[ip] = cachedOrigin{origin: o, expiresAt: now.Add(r.cacheTTL)}
}

// evict drops expired entries, then the soonest-expiring one if the cache is
// still full. Caller holds mu.
func (r *LookupResolver) evict(now time.Time) {
	var (
		oldestIP string
		oldest   time.Time
	)
	for ip, c := range r.cache {
		if now.After(c.expiresAt) {
			delete(r.cache, ip)
			continue
		}
		if oldestIP == "" || c.expiresAt.Before(oldest) {
			oldestIP, oldest = ip, c.expiresAt
		}
	}
	if len(r.cache) >= r.maxEntries && oldestIP != "" {
		delete(r.cache, oldestIP)
	}
}
