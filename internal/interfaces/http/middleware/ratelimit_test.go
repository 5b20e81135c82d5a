package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func scopedRequest(tenant string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/citation/jobs", nil)
	if tenant != "" {
		ctx := WithScope(req.Context(), common.Scope{TenantID: common.TenantID(tenant), ProjectID: "p1"})
		req = req.WithContext(ctx)
	}
	return req
}

func TestRateLimitExhaustsBurst(t *testing.T) {
	m := NewRateLimitMiddleware(RateLimitConfig{RequestsPerSecond: 1, Burst: 2}, logging.NewNopLogger())
	frozen := time.Now()
	m.now = func() time.Time { return frozen }
	h := m.Handler(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, scopedRequest("t1"))
		assert.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, scopedRequest("t1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimitRefillsOverTime(t *testing.T) {
	m := NewRateLimitMiddleware(RateLimitConfig{RequestsPerSecond: 1, Burst: 1}, logging.NewNopLogger())
	now := time.Now()
	m.now = func() time.Time { return now }
	h := m.Handler(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, scopedRequest("t1"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, scopedRequest("t1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	now = now.Add(1500 * time.Millisecond)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, scopedRequest("t1"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitBucketsAreTenantScoped(t *testing.T) {
	m := NewRateLimitMiddleware(RateLimitConfig{RequestsPerSecond: 1, Burst: 1}, logging.NewNopLogger())
	frozen := time.Now()
	m.now = func() time.Time { return frozen }
	h := m.Handler(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, scopedRequest("t1"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, scopedRequest("t1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A second tenant has its own bucket.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, scopedRequest("t2"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitAnonymousBucket(t *testing.T) {
	m := NewRateLimitMiddleware(RateLimitConfig{RequestsPerSecond: 1, Burst: 1}, logging.NewNopLogger())
	frozen := time.Now()
	m.now = func() time.Time { return frozen }
	h := m.Handler(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, scopedRequest(""))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, scopedRequest(""))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimitConfigDefaults(t *testing.T) {
	m := NewRateLimitMiddleware(RateLimitConfig{}, logging.NewNopLogger())
	assert.Equal(t, float64(50), m.cfg.RequestsPerSecond)
	assert.Equal(t, 100, m.cfg.Burst)
}

//Personal.AI order the ending
