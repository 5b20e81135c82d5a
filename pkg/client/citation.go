package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// CitationClient exposes the citation analysis pipeline APIs.
type CitationClient struct {
	client *Client
}

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// Job statuses as reported by the API.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// EnqueueJobRequest starts a citation analysis job for one reference.
type EnqueueJobRequest struct {
	SearchHistoryID string   `json:"search_history_id"`
	ReferenceNumber string   `json:"reference_number"`
	ElementIDs      []string `json:"element_ids,omitempty"`
	// AwaitMillis, when positive, holds the request open until the job
	// reaches a terminal state or the wait elapses.
	AwaitMillis int `json:"await_ms,omitempty"`
}

// LocationEntry is one place in a reference where an element was found.
type LocationEntry struct {
	Section string `json:"section"`
	Text    string `json:"text"`
	Context string `json:"context,omitempty"`
}

// Location groups the location entries of a match.
type Location struct {
	Reference string          `json:"reference"`
	ElementID string          `json:"element_id"`
	Entries   []LocationEntry `json:"entries"`
}

// ElementAnalysis is the deep verdict for one claim element.
type ElementAnalysis struct {
	ElementID       string   `json:"element_id"`
	Relevance       float64  `json:"relevance"`
	Explanation     string   `json:"explanation"`
	MatchedConcepts []string `json:"matched_concepts,omitempty"`
}

// DeepAnalysisResult is the reference-level deep analysis of a match.
type DeepAnalysisResult struct {
	OverallRelevance float64           `json:"overall_relevance"`
	ElementAnalyses  []ElementAnalysis `json:"element_analyses"`
	KeyFindings      []string          `json:"key_findings,omitempty"`
	Recommendations  []string          `json:"recommendations,omitempty"`
	AnalyzedAt       time.Time         `json:"analyzed_at"`
}

// Match is one element-to-reference shallow match.
type Match struct {
	ID                string              `json:"id"`
	SearchHistoryID   string              `json:"search_history_id"`
	Reference         string              `json:"reference"`
	ElementID         string              `json:"element_id"`
	ElementOrdinal    int                 `json:"element_ordinal"`
	ElementText       string              `json:"element_text"`
	ParsedElementText string              `json:"parsed_element_text,omitempty"`
	MatchingText      string              `json:"matching_text,omitempty"`
	Score             *float64            `json:"score,omitempty"`
	Reasoning         string              `json:"reasoning"`
	Location          *Location           `json:"location,omitempty"`
	DeepAnalysis      *DeepAnalysisResult `json:"deep_analysis,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// ElementFailure records one element whose matching failed inside a job.
type ElementFailure struct {
	ElementID string `json:"element_id"`
	Error     string `json:"error"`
}

// JobResult is the payload of a completed job.
type JobResult struct {
	Matches  []Match          `json:"matches"`
	Failures []ElementFailure `json:"failures,omitempty"`
}

// Job is one citation analysis job.
type Job struct {
	ID              string     `json:"id"`
	SearchHistoryID string     `json:"search_history_id"`
	Reference       string     `json:"reference"`
	Status          string     `json:"status"`
	ElementIDs      []string   `json:"element_ids,omitempty"`
	Result          *JobResult `json:"result,omitempty"`
	Error           string     `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsTerminal reports whether the job has finished, successfully or not.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// ReferenceCell is one reference's relevance for one element row.
type ReferenceCell struct {
	Reference   string  `json:"reference"`
	Relevance   float64 `json:"relevance"`
	Explanation string  `json:"explanation,omitempty"`
}

// ElementRow is one row of the combined cross-reference table.
type ElementRow struct {
	ElementID   string          `json:"element_id"`
	ElementText string          `json:"element_text,omitempty"`
	Cells       []ReferenceCell `json:"cells"`
}

// ReferenceRank is one entry of the combined ranking.
type ReferenceRank struct {
	Reference        string  `json:"reference"`
	OverallRelevance float64 `json:"overall_relevance"`
}

// CombinedAnalysis is the cross-reference table plus the ranking.
type CombinedAnalysis struct {
	ElementRows []ElementRow    `json:"element_rows"`
	Ranking     []ReferenceRank `json:"ranking"`
	KeyFindings []string        `json:"key_findings,omitempty"`
}

// CombinedRecord is one immutable combined analysis.
type CombinedRecord struct {
	ID               string           `json:"id"`
	SearchHistoryID  string           `json:"search_history_id"`
	ReferenceNumbers []string         `json:"reference_numbers"`
	Claim1Text       string           `json:"claim1_text"`
	Analysis         CombinedAnalysis `json:"analysis"`
	CreatedAt        time.Time        `json:"created_at"`
}

// CombineRequest builds a combined analysis across references.
type CombineRequest struct {
	SearchHistoryID  string   `json:"search_history_id"`
	Claim1Text       string   `json:"claim1_text"`
	ReferenceNumbers []string `json:"reference_numbers"`
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// EnqueueJob starts a citation analysis job.  With AwaitMillis set the
// returned job may already be terminal.
func (cc *CitationClient) EnqueueJob(ctx context.Context, req EnqueueJobRequest) (*Job, error) {
	var job Job
	if err := cc.client.post(ctx, "/api/v1/citation/jobs", req, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJob fetches one job by id.
func (cc *CitationClient) GetJob(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	if err := cc.client.get(ctx, "/api/v1/citation/jobs/"+url.PathEscape(jobID), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs lists the jobs of one search session, newest first.
func (cc *CitationClient) ListJobs(ctx context.Context, searchHistoryID string) ([]Job, error) {
	var out struct {
		Jobs []Job `json:"jobs"`
	}
	path := "/api/v1/citation/jobs?search_history_id=" + url.QueryEscape(searchHistoryID)
	if err := cc.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// PollJob polls a job until it reaches a terminal state or ctx expires.
func (cc *CitationClient) PollJob(ctx context.Context, jobID string, interval time.Duration) (*Job, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		job, err := cc.GetJob(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if job.IsTerminal() {
			return job, nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// TopMatches fetches the ranked matches of one reference in a search.  A
// non-positive limit returns the server's default page.
func (cc *CitationClient) TopMatches(ctx context.Context, searchHistoryID, reference string, limit int) ([]Match, error) {
	q := url.Values{}
	q.Set("search_history_id", searchHistoryID)
	q.Set("reference", reference)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Matches []Match `json:"matches"`
	}
	if err := cc.client.get(ctx, "/api/v1/citation/matches?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Matches, nil
}

// Combine builds and stores a combined analysis across references.
func (cc *CitationClient) Combine(ctx context.Context, req CombineRequest) (*CombinedRecord, error) {
	var record CombinedRecord
	if err := cc.client.post(ctx, "/api/v1/citation/combined", req, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListCombined lists the combined analyses of one search session, newest
// first.
func (cc *CitationClient) ListCombined(ctx context.Context, searchHistoryID string) ([]CombinedRecord, error) {
	var out struct {
		Analyses []CombinedRecord `json:"analyses"`
	}
	path := "/api/v1/citation/combined?search_history_id=" + url.QueryEscape(searchHistoryID)
	if err := cc.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Analyses, nil
}

// GetCombined fetches one combined analysis by id.
func (cc *CitationClient) GetCombined(ctx context.Context, combinedID string) (*CombinedRecord, error) {
	var record CombinedRecord
	if err := cc.client.get(ctx, "/api/v1/citation/combined/"+url.PathEscape(combinedID), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// InvalidateWorkspace drops every cached citation result under the project.
// Call it after workspace edits that change claim text or the reference set.
func (cc *CitationClient) InvalidateWorkspace(ctx context.Context, projectID string) error {
	path := fmt.Sprintf("/api/v1/workspace/%s/invalidate", url.PathEscape(projectID))
	return cc.client.post(ctx, path, nil, nil)
}

//Personal.AI order the ending
