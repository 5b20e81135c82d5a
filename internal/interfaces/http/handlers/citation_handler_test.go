package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcitation "github.com/turtacn/CiteScope/internal/application/citation"
	"github.com/turtacn/CiteScope/internal/config"
	"github.com/turtacn/CiteScope/internal/domain/claim"
	"github.com/turtacn/CiteScope/internal/domain/reference"
	"github.com/turtacn/CiteScope/internal/infrastructure/analysis"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
	httpiface "github.com/turtacn/CiteScope/internal/interfaces/http"
	"github.com/turtacn/CiteScope/internal/interfaces/http/handlers"
	"github.com/turtacn/CiteScope/internal/interfaces/http/middleware"
	"github.com/turtacn/CiteScope/internal/testutil"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

type staticClaimSource struct{ claim *claim.Claim }

func (s *staticClaimSource) GetClaim(context.Context, common.Scope, common.SearchHistoryID) (*claim.Claim, error) {
	return s.claim, nil
}

type staticRefSource struct{ docs map[string]*reference.Document }

func (s *staticRefSource) GetDocument(_ context.Context, _ common.Scope, number string) (*reference.Document, error) {
	doc, ok := s.docs[number]
	if !ok {
		return nil, reference.Unavailable(number, nil)
	}
	return doc, nil
}

type staticProvider struct{ score float64 }

func (p *staticProvider) ScoreMatch(context.Context, analysis.ScoreRequest) (*analysis.ScoreResult, error) {
	return &analysis.ScoreResult{Score: p.score, Reasoning: "static"}, nil
}

func (p *staticProvider) AnalyzeReference(_ context.Context, req analysis.DeepRequest) (*analysis.DeepResult, error) {
	elems := make([]analysis.DeepElementResult, 0, len(req.Elements))
	for _, e := range req.Elements {
		elems = append(elems, analysis.DeepElementResult{ElementID: e.ID, Relevance: 0.75})
	}
	return &analysis.DeepResult{Elements: elems}, nil
}

// apiFixture spins up the real route tree over in-memory repositories so the
// handler tests exercise the same wiring the server does.
type apiFixture struct {
	handler    http.Handler
	controller *appcitation.JobController
	escalator  *appcitation.Escalator
	matches    *testutil.MemMatchRepo
	claim      *claim.Claim
}

var apiScope = common.Scope{TenantID: "t1", ProjectID: "p1", UserID: "u1"}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	log := logging.NewNopLogger()
	cfg := config.PipelineConfig{
		JobTimeout:         5 * time.Second,
		MatchConcurrency:   2,
		EscalationLimit:    3,
		MinEscalationScore: 0.5,
		TopMatchesCacheTTL: time.Minute,
		CombinedCacheTTL:   time.Minute,
		AwaitPollInterval:  5 * time.Millisecond,
	}

	jobs := testutil.NewMemJobRepo()
	matches := testutil.NewMemMatchRepo()
	combined := testutil.NewMemCombinedRepo()
	cache := testutil.NewMemCache()
	inv := appcitation.NewInvalidator(cache, log)

	cl := &claim.Claim{
		ID:     "c1",
		Number: 1,
		Text:   "1. A widget comprising a frame.",
		Elements: []claim.Element{
			{ID: "e1", Ordinal: 0, Text: "a frame"},
		},
	}
	refs := &staticRefSource{docs: map[string]*reference.Document{
		"US111A": {Number: "US111A", Sections: []reference.Section{
			{Name: "description", Text: "a rigid frame"},
		}},
	}}
	provider := &staticProvider{score: 0.8}

	matcher := appcitation.NewMatcher(refs, nil, provider, log)
	controller := appcitation.NewJobController(jobs, matches, matcher,
		&staticClaimSource{claim: cl}, nil, inv, nil, cfg, log)
	escalator := appcitation.NewEscalator(provider, refs, matches, inv, cfg, log)
	aggregator := appcitation.NewAggregator(combined, matches, inv, nil, log)
	reader := appcitation.NewReader(jobs, matches, combined, cache, cfg, log)

	router := httpiface.NewRouter(httpiface.RouterConfig{
		CitationHandler:  handlers.NewCitationHandler(controller, aggregator, reader, log),
		WorkspaceHandler: handlers.NewWorkspaceHandler(inv, log),
		HealthHandler:    handlers.NewHealthHandler("test"),
		ScopeMiddleware:  middleware.NewScopeMiddleware(middleware.ScopeConfig{RequireProject: true}, log),
	})

	return &apiFixture{
		handler:    router,
		controller: controller,
		escalator:  escalator,
		matches:    matches,
		claim:      cl,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderTenantID, "t1")
	req.Header.Set(middleware.HeaderProjectID, "p1")
	req.Header.Set(middleware.HeaderUserID, "u1")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

// runJob enqueues and processes one job the way the worker would.
func (f *apiFixture) runJob(t *testing.T, searchID, ref string) string {
	t.Helper()
	job, err := f.controller.Enqueue(context.Background(), apiScope,
		common.SearchHistoryID(searchID), ref, nil)
	require.NoError(t, err)
	require.NoError(t, f.controller.Run(context.Background(), job))
	return string(job.ID)
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data)
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Error.Code
}

func TestEnqueueJobAccepted(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/citation/jobs", handlers.EnqueueJobRequest{
		SearchHistoryID: "sh-1",
		ReferenceNumber: "US111A",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var job struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeData(t, rec, &job)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "pending", job.Status)
}

func TestEnqueueJobDuplicateConflict(t *testing.T) {
	f := newAPIFixture(t)
	body := handlers.EnqueueJobRequest{SearchHistoryID: "sh-1", ReferenceNumber: "US111A"}

	require.Equal(t, http.StatusAccepted,
		f.do(t, http.MethodPost, "/api/v1/citation/jobs", body).Code)

	rec := f.do(t, http.MethodPost, "/api/v1/citation/jobs", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CIT_005", errorCode(t, rec))
}

func TestEnqueueJobMalformedBody(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/citation/jobs",
		bytes.NewBufferString(`{"search_history_id": "sh-1", "bogus": true}`))
	req.Header.Set(middleware.HeaderTenantID, "t1")
	req.Header.Set(middleware.HeaderProjectID, "p1")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "COMMON_010", errorCode(t, rec))
}

func TestEnqueueJobMissingScope(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/citation/jobs",
		bytes.NewBufferString("{}"))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnqueueJobAwaitElapsesToAccepted(t *testing.T) {
	f := newAPIFixture(t)

	// No worker consumes the job here, so the short await elapses and the
	// pending job comes back with 202 for polling.
	rec := f.do(t, http.MethodPost, "/api/v1/citation/jobs", handlers.EnqueueJobRequest{
		SearchHistoryID: "sh-1",
		ReferenceNumber: "US111A",
		AwaitMillis:     30,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var job struct {
		Status string `json:"status"`
	}
	decodeData(t, rec, &job)
	assert.Equal(t, "pending", job.Status)
}

func TestGetJobAndList(t *testing.T) {
	f := newAPIFixture(t)
	jobID := f.runJob(t, "sh-1", "US111A")

	rec := f.do(t, http.MethodGet, "/api/v1/citation/jobs/"+jobID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var job struct {
		Status string `json:"status"`
		Result *struct {
			Matches []json.RawMessage `json:"matches"`
		} `json:"result"`
	}
	decodeData(t, rec, &job)
	assert.Equal(t, "completed", job.Status)
	require.NotNil(t, job.Result)
	assert.Len(t, job.Result.Matches, 1)

	rec = f.do(t, http.MethodGet, "/api/v1/citation/jobs?search_history_id=sh-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Jobs []json.RawMessage `json:"jobs"`
	}
	decodeData(t, rec, &list)
	assert.Len(t, list.Jobs, 1)
}

func TestGetJobNotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/citation/jobs/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CIT_007", errorCode(t, rec))
}

func TestListJobsRequiresSearchID(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/citation/jobs", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTopMatches(t *testing.T) {
	f := newAPIFixture(t)
	f.runJob(t, "sh-1", "US111A")

	rec := f.do(t, http.MethodGet,
		"/api/v1/citation/matches?search_history_id=sh-1&reference=US111A", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Matches []struct {
			ElementID string   `json:"element_id"`
			Score     *float64 `json:"score"`
		} `json:"matches"`
	}
	decodeData(t, rec, &body)
	require.Len(t, body.Matches, 1)
	assert.Equal(t, "e1", body.Matches[0].ElementID)
	require.NotNil(t, body.Matches[0].Score)
	assert.Equal(t, 0.8, *body.Matches[0].Score)
}

func TestTopMatchesRequiresQueryParams(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/citation/matches?reference=US111A", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCombineFlow(t *testing.T) {
	f := newAPIFixture(t)
	f.runJob(t, "sh-1", "US111A")

	// Combining before deep analysis is a precondition failure.
	rec := f.do(t, http.MethodPost, "/api/v1/citation/combined", handlers.CombineRequest{
		SearchHistoryID:  "sh-1",
		Claim1Text:       "1. A widget.",
		ReferenceNumbers: []string{"US111A"},
	})
	require.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Equal(t, "CIT_004", errorCode(t, rec))

	// After escalation the combine succeeds with 201.
	ctx := context.Background()
	top, err := f.matches.TopByReference(ctx, apiScope, "sh-1", "US111A", 0)
	require.NoError(t, err)
	_, err = f.escalator.Escalate(ctx, apiScope, f.claim, "US111A", top, 0)
	require.NoError(t, err)

	rec = f.do(t, http.MethodPost, "/api/v1/citation/combined", handlers.CombineRequest{
		SearchHistoryID:  "sh-1",
		Claim1Text:       "1. A widget.",
		ReferenceNumbers: []string{"US111A"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var record struct {
		ID string `json:"id"`
	}
	decodeData(t, rec, &record)
	require.NotEmpty(t, record.ID)

	// The list endpoint envelopes records under data.analyses.
	rec = f.do(t, http.MethodGet, "/api/v1/citation/combined?search_history_id=sh-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Analyses []struct {
			ID string `json:"id"`
		} `json:"analyses"`
	}
	decodeData(t, rec, &list)
	require.Len(t, list.Analyses, 1)
	assert.Equal(t, record.ID, list.Analyses[0].ID)

	rec = f.do(t, http.MethodGet, "/api/v1/citation/combined/"+record.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCombineRejectsEmptyReferences(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/citation/combined", handlers.CombineRequest{
		SearchHistoryID: "sh-1",
		Claim1Text:      "1. A widget.",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestWorkspaceInvalidate(t *testing.T) {
	f := newAPIFixture(t)
	f.runJob(t, "sh-1", "US111A")

	// Warm the match cache, then invalidate the whole project.
	rec := f.do(t, http.MethodGet,
		"/api/v1/citation/matches?search_history_id=sh-1&reference=US111A", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/workspace/p1/invalidate", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestWorkspaceInvalidateWrongProject(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/workspace/other/invalidate", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "CIT_012", errorCode(t, rec))
}

func TestHealthEndpointsArePublic(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

//Personal.AI order the ending
