package testutil

import (
	"context"
	"sync"

	"github.com/turtacn/CiteScope/internal/domain/citation"
	"github.com/turtacn/CiteScope/pkg/errors"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

func sameScope(a, b common.Scope) bool {
	return a.TenantID == b.TenantID && a.ProjectID == b.ProjectID
}

// MemJobRepo is an in-memory citation.JobRepository.  It enforces the same
// invariants as the postgres implementation: scope isolation, at most one
// non-terminal job per (search, reference), and guarded transitions.
type MemJobRepo struct {
	mu   sync.Mutex
	jobs []*citation.Job
}

func NewMemJobRepo() *MemJobRepo { return &MemJobRepo{} }

func (r *MemJobRepo) CreateUnique(_ context.Context, job *citation.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if sameScope(j.Scope, job.Scope) &&
			j.SearchHistoryID == job.SearchHistoryID &&
			j.Reference == job.Reference &&
			!j.Status.Terminal() {
			return errors.New(errors.ErrCodeDuplicateJob, "a job for this reference is already in flight")
		}
	}
	clone := *job
	r.jobs = append(r.jobs, &clone)
	return nil
}

func (r *MemJobRepo) GetByID(_ context.Context, scope common.Scope, id common.ID) (*citation.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.ID == id && sameScope(j.Scope, scope) {
			clone := *j
			return &clone, nil
		}
	}
	return nil, errors.New(errors.ErrCodeJobNotFound, "citation job not found")
}

func (r *MemJobRepo) GetActive(_ context.Context, scope common.Scope, searchID common.SearchHistoryID, ref string) (*citation.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if sameScope(j.Scope, scope) && j.SearchHistoryID == searchID && j.Reference == ref && !j.Status.Terminal() {
			clone := *j
			return &clone, nil
		}
	}
	return nil, errors.New(errors.ErrCodeJobNotFound, "no active citation job")
}

func (r *MemJobRepo) ListBySearch(_ context.Context, scope common.Scope, searchID common.SearchHistoryID) ([]*citation.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*citation.Job
	for i := len(r.jobs) - 1; i >= 0; i-- {
		j := r.jobs[i]
		if sameScope(j.Scope, scope) && j.SearchHistoryID == searchID {
			clone := *j
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *MemJobRepo) MarkProcessing(_ context.Context, scope common.Scope, id common.ID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.ID == id && sameScope(j.Scope, scope) {
			if j.Status != citation.JobPending {
				return false, nil
			}
			j.Status = citation.JobProcessing
			return true, nil
		}
	}
	return false, nil
}

func (r *MemJobRepo) CompleteFromProcessing(_ context.Context, scope common.Scope, id common.ID, result *citation.JobResult) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.ID == id && sameScope(j.Scope, scope) {
			if j.Status != citation.JobProcessing {
				return false, nil
			}
			j.Status = citation.JobCompleted
			j.Result = result
			j.Error = ""
			return true, nil
		}
	}
	return false, nil
}

func (r *MemJobRepo) FailFromActive(_ context.Context, scope common.Scope, id common.ID, message string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.ID == id && sameScope(j.Scope, scope) {
			if j.Status.Terminal() {
				return false, nil
			}
			j.Status = citation.JobFailed
			j.Error = message
			j.Result = nil
			return true, nil
		}
	}
	return false, nil
}

// ForceStatus sets a job's status directly, bypassing the guards.  Tests use
// it to simulate a concurrent timeout or force-failure.
func (r *MemJobRepo) ForceStatus(id common.ID, status citation.JobStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.ID == id {
			j.Status = status
			return
		}
	}
}

// MemMatchRepo is an in-memory citation.MatchRepository.
type MemMatchRepo struct {
	mu      sync.Mutex
	scopes  map[common.ID]common.Scope
	matches []*citation.Match
}

func NewMemMatchRepo() *MemMatchRepo {
	return &MemMatchRepo{scopes: make(map[common.ID]common.Scope)}
}

func (r *MemMatchRepo) SaveAll(_ context.Context, scope common.Scope, matches []*citation.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range matches {
		clone := *m
		r.matches = append(r.matches, &clone)
		r.scopes[m.ID] = scope
	}
	return nil
}

func (r *MemMatchRepo) TopByReference(_ context.Context, scope common.Scope, searchID common.SearchHistoryID, ref string, limit int) ([]*citation.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*citation.Match
	for _, m := range r.matches {
		if sameScope(r.scopes[m.ID], scope) && m.SearchHistoryID == searchID && m.Reference == ref {
			clone := *m
			out = append(out, &clone)
		}
	}
	citation.Rank(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemMatchRepo) AttachDeepAnalysis(_ context.Context, scope common.Scope, matchID common.ID, result *citation.DeepAnalysisResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.matches {
		if m.ID == matchID && sameScope(r.scopes[m.ID], scope) {
			m.DeepAnalysis = result
			return nil
		}
	}
	return errors.New(errors.ErrCodeMatchNotFound, "citation match not found")
}

func (r *MemMatchRepo) DeepAnalyzed(_ context.Context, scope common.Scope, searchID common.SearchHistoryID, references []string) (map[string]*citation.DeepAnalysisResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[string]bool, len(references))
	for _, ref := range references {
		wanted[ref] = true
	}
	out := make(map[string]*citation.DeepAnalysisResult)
	for _, m := range r.matches {
		if !sameScope(r.scopes[m.ID], scope) || m.SearchHistoryID != searchID {
			continue
		}
		if !wanted[m.Reference] || m.DeepAnalysis == nil {
			continue
		}
		if best, ok := out[m.Reference]; !ok || m.DeepAnalysis.OverallRelevance > best.OverallRelevance {
			out[m.Reference] = m.DeepAnalysis
		}
	}
	return out, nil
}

// MemCombinedRepo is an in-memory citation.CombinedRepository.
type MemCombinedRepo struct {
	mu      sync.Mutex
	records []*citation.CombinedRecord
}

func NewMemCombinedRepo() *MemCombinedRepo { return &MemCombinedRepo{} }

func (r *MemCombinedRepo) Insert(_ context.Context, record *citation.CombinedRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *record
	r.records = append(r.records, &clone)
	return nil
}

func (r *MemCombinedRepo) ListBySearch(_ context.Context, scope common.Scope, searchID common.SearchHistoryID) ([]*citation.CombinedRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*citation.CombinedRecord
	for i := len(r.records) - 1; i >= 0; i-- {
		rec := r.records[i]
		if sameScope(rec.Scope, scope) && rec.SearchHistoryID == searchID {
			clone := *rec
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *MemCombinedRepo) GetByID(_ context.Context, scope common.Scope, id common.ID) (*citation.CombinedRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id && sameScope(rec.Scope, scope) {
			clone := *rec
			return &clone, nil
		}
	}
	return nil, errors.New(errors.ErrCodeCombinedAnalysisNotFound, "combined analysis not found")
}

//Personal.AI order the ending
