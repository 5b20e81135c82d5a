package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteScope/pkg/errors"
)

// RateLimitConfig holds the per-tenant token bucket parameters.
type RateLimitConfig struct {
	// RequestsPerSecond is the bucket refill rate.
	RequestsPerSecond float64
	// Burst is the bucket capacity.
	Burst int
}

// DefaultRateLimitConfig allows 50 req/s with a burst of 100 per tenant.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RequestsPerSecond: 50, Burst: 100}
}

// RateLimitMiddleware applies a token bucket per tenant.  Requests without a
// resolved scope fall into a shared anonymous bucket, so the health and
// metrics mounts should sit outside this middleware.
type RateLimitMiddleware struct {
	cfg     RateLimitConfig
	logger  logging.Logger
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

func NewRateLimitMiddleware(cfg RateLimitConfig, logger logging.Logger) *RateLimitMiddleware {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRateLimitConfig().RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultRateLimitConfig().Burst
	}
	return &RateLimitMiddleware{
		cfg:     cfg,
		logger:  logger,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "anonymous"
		if scope, ok := ScopeFromContext(r.Context()); ok {
			key = string(scope.TenantID)
		}

		allowed, remaining := m.take(key)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.cfg.Burst))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			m.logger.Warn("rate limit exceeded",
				logging.String("tenant", key),
				logging.String("path", r.URL.Path))
			w.Header().Set("Retry-After", "1")
			writeScopeError(w, http.StatusTooManyRequests, errors.ErrCodeTooManyRequests,
				"rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) take(key string) (bool, int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(m.cfg.Burst), last: now}
		m.buckets[key] = b
	}

	b.tokens += now.Sub(b.last).Seconds() * m.cfg.RequestsPerSecond
	if b.tokens > float64(m.cfg.Burst) {
		b.tokens = float64(m.cfg.Burst)
	}
	b.last = now

	if b.tokens < 1 {
		return false, 0
	}
	b.tokens--
	return true, int(b.tokens)
}

//Personal.AI order the ending
