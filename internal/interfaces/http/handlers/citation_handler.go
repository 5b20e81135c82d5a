package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	appcitation "github.com/turtacn/CiteScope/internal/application/citation"
	"github.com/turtacn/CiteScope/internal/domain/citation"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteScope/pkg/errors"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

// maxAwait caps the synchronous wait a single enqueue request may ask for.
const maxAwait = 30 * time.Second

// CitationHandler serves the citation pipeline's HTTP surface: job enqueue
// and polling, top matches, and combined analyses.
type CitationHandler struct {
	controller *appcitation.JobController
	aggregator *appcitation.Aggregator
	reader     *appcitation.Reader
	logger     logging.Logger
}

func NewCitationHandler(
	controller *appcitation.JobController,
	aggregator *appcitation.Aggregator,
	reader *appcitation.Reader,
	logger logging.Logger,
) *CitationHandler {
	return &CitationHandler{
		controller: controller,
		aggregator: aggregator,
		reader:     reader,
		logger:     logger,
	}
}

// EnqueueJobRequest is the body of POST /citation/jobs.
type EnqueueJobRequest struct {
	SearchHistoryID string   `json:"search_history_id"`
	ReferenceNumber string   `json:"reference_number"`
	ElementIDs      []string `json:"element_ids,omitempty"`
	// AwaitMillis, when positive, holds the request open until the job
	// reaches a terminal state or the wait elapses.
	AwaitMillis int `json:"await_ms,omitempty"`
}

// EnqueueJob handles POST /citation/jobs.  The accepted job is returned with
// 202; with await_ms the terminal job is returned with 200.
func (h *CitationHandler) EnqueueJob(w http.ResponseWriter, r *http.Request) {
	scope, err := requestScope(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req EnqueueJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	job, err := h.controller.Enqueue(r.Context(), scope,
		common.SearchHistoryID(req.SearchHistoryID), req.ReferenceNumber, req.ElementIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	if req.AwaitMillis > 0 {
		wait := time.Duration(req.AwaitMillis) * time.Millisecond
		if wait > maxAwait {
			wait = maxAwait
		}
		done, err := h.controller.Await(r.Context(), scope, job.ID, wait)
		if err != nil {
			if errors.IsCode(err, errors.ErrCodeTimeout) {
				// Still running; hand the pending job back for polling.
				writeData(w, http.StatusAccepted, job)
				return
			}
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, done)
		return
	}

	writeData(w, http.StatusAccepted, job)
}

// GetJob handles GET /citation/jobs/{jobID}.
func (h *CitationHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	scope, err := requestScope(r)
	if err != nil {
		writeError(w, err)
		return
	}

	job, err := h.reader.JobStatus(r.Context(), scope, common.ID(chi.URLParam(r, "jobID")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, job)
}

// ListJobs handles GET /citation/jobs?search_history_id=.
func (h *CitationHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	scope, err := requestScope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	searchID := r.URL.Query().Get("search_history_id")
	if searchID == "" {
		writeError(w, errors.New(errors.ErrCodeValidation, "search_history_id is required"))
		return
	}

	jobs, err := h.reader.ListJobs(r.Context(), scope, common.SearchHistoryID(searchID))
	if err != nil {
		writeError(w, err)
		return
	}
	if jobs == nil {
		jobs = []*citation.Job{}
	}
	writeData(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}

// TopMatches handles GET /citation/matches?search_history_id=&reference=&limit=.
func (h *CitationHandler) TopMatches(w http.ResponseWriter, r *http.Request) {
	scope, err := requestScope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	searchID, ref := q.Get("search_history_id"), q.Get("reference")
	if searchID == "" || ref == "" {
		writeError(w, errors.New(errors.ErrCodeValidation,
			"search_history_id and reference are required"))
		return
	}

	matches, err := h.reader.TopMatches(r.Context(), scope,
		common.SearchHistoryID(searchID), ref, queryInt(r, "limit", 100))
	if err != nil {
		writeError(w, err)
		return
	}
	if matches == nil {
		matches = []*citation.Match{}
	}
	writeData(w, http.StatusOK, map[string]interface{}{"matches": matches})
}

// CombineRequest is the body of POST /citation/combined.
type CombineRequest struct {
	SearchHistoryID  string   `json:"search_history_id"`
	Claim1Text       string   `json:"claim1_text"`
	ReferenceNumbers []string `json:"reference_numbers"`
}

// Combine handles POST /citation/combined.
func (h *CitationHandler) Combine(w http.ResponseWriter, r *http.Request) {
	scope, err := requestScope(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req CombineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.SearchHistoryID == "" {
		writeError(w, errors.New(errors.ErrCodeValidation, "search_history_id is required"))
		return
	}

	record, err := h.aggregator.Combine(r.Context(), scope,
		common.SearchHistoryID(req.SearchHistoryID), req.Claim1Text, req.ReferenceNumbers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, record)
}

// ListCombined handles GET /citation/combined?search_history_id=.
func (h *CitationHandler) ListCombined(w http.ResponseWriter, r *http.Request) {
	scope, err := requestScope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	searchID := r.URL.Query().Get("search_history_id")
	if searchID == "" {
		writeError(w, errors.New(errors.ErrCodeValidation, "search_history_id is required"))
		return
	}

	records, err := h.reader.ListCombinedAnalyses(r.Context(), scope, common.SearchHistoryID(searchID))
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []*citation.CombinedRecord{}
	}
	writeData(w, http.StatusOK, map[string]interface{}{"analyses": records})
}

// GetCombined handles GET /citation/combined/{combinedID}.
func (h *CitationHandler) GetCombined(w http.ResponseWriter, r *http.Request) {
	scope, err := requestScope(r)
	if err != nil {
		writeError(w, err)
		return
	}

	record, err := h.reader.GetCombinedAnalysis(r.Context(), scope,
		common.ID(chi.URLParam(r, "combinedID")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, record)
}

//Personal.AI order the ending
