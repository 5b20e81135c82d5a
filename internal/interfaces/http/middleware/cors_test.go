package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORSWildcardSimpleRequest(t *testing.T) {
	m := NewCORSMiddleware(DefaultCORSConfig())
	h := m.Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/citation/jobs", nil)
	req.Header.Set("Origin", "https://workspace.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Values("Vary"), "Origin")
}

func TestCORSPreflight(t *testing.T) {
	m := NewCORSMiddleware(DefaultCORSConfig())
	h := m.Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("preflight must not reach the handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/citation/jobs", nil)
	req.Header.Set("Origin", "https://workspace.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), HeaderTenantID)
	assert.Equal(t, "300", rec.Header().Get("Access-Control-Max-Age"))
}

func TestCORSDisallowedOriginGetsNoHeaders(t *testing.T) {
	m := NewCORSMiddleware(CORSConfig{
		AllowedOrigins: []string{"https://allowed.example.com"},
		AllowedMethods: []string{http.MethodGet},
	})
	h := m.Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/citation/jobs", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSCredentialsEchoOrigin(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowCredentials = true
	m := NewCORSMiddleware(cfg)
	h := m.Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/citation/jobs", nil)
	req.Header.Set("Origin", "https://workspace.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://workspace.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSNoOriginPassesThrough(t *testing.T) {
	m := NewCORSMiddleware(DefaultCORSConfig())
	h := m.Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/citation/jobs", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

//Personal.AI order the ending
