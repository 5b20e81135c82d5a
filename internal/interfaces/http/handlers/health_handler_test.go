package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CiteScope/internal/interfaces/http/handlers"
	"github.com/turtacn/CiteScope/pkg/errors"
)

type stubChecker struct {
	name string
	err  error
}

func (c stubChecker) Name() string                { return c.name }
func (c stubChecker) Check(context.Context) error { return c.err }

func TestLivenessReportsVersion(t *testing.T) {
	h := handlers.NewHealthHandler("1.2.3")

	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alive", body["status"])
	assert.Equal(t, "1.2.3", body["version"])
}

func TestReadinessAllHealthy(t *testing.T) {
	h := handlers.NewHealthHandler("test",
		stubChecker{name: "postgres"},
		stubChecker{name: "redis"},
	)

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status     string                             `json:"status"`
		Components map[string]handlers.ComponentCheck `json:"components"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body.Status)
	assert.Len(t, body.Components, 2)
	assert.Equal(t, "healthy", body.Components["postgres"].Status)
}

func TestReadinessUnhealthyDependency(t *testing.T) {
	h := handlers.NewHealthHandler("test",
		stubChecker{name: "postgres"},
		stubChecker{name: "kafka", err: errors.New(errors.ErrCodeInternal, "broker unreachable")},
	)

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body struct {
		Status     string                             `json:"status"`
		Components map[string]handlers.ComponentCheck `json:"components"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, "unhealthy", body.Components["kafka"].Status)
	assert.Contains(t, body.Components["kafka"].Error, "broker unreachable")
}

//Personal.AI order the ending
