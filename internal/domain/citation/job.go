package citation

import (
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/CiteScope/pkg/errors"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

// JobStatus is the lifecycle state of a citation-search job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Valid reports whether s is a known status value.
func (s JobStatus) Valid() bool {
	switch s {
	case JobPending, JobProcessing, JobCompleted, JobFailed:
		return true
	}
	return false
}

// Terminal reports whether s is a terminal state.  No transition ever leaves
// a terminal state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// ElementFailure records a single element whose match attempt failed inside
// an otherwise usable job.  Failures live inside the result, not in the
// job-level error field.
type ElementFailure struct {
	ElementID string `json:"element_id"`
	Error     string `json:"error"`
}

// JobResult is the payload of a completed job: the ranked match sequence
// plus any per-element failures absorbed under the partial-failure policy.
type JobResult struct {
	Matches  []*Match         `json:"matches"`
	Failures []ElementFailure `json:"failures,omitempty"`
}

// Job is the unit-of-work record for one citation search against one
// reference.  Lifecycle: pending → processing → completed | failed.
type Job struct {
	ID              common.ID              `json:"id"`
	Scope           common.Scope           `json:"scope"`
	SearchHistoryID common.SearchHistoryID `json:"search_history_id"`
	Reference       string                 `json:"reference"`
	Status          JobStatus              `json:"status"`
	ElementIDs      []string               `json:"element_ids,omitempty"`
	Result          *JobResult             `json:"result,omitempty"`
	Error           string                 `json:"error,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// NewJob constructs a pending job for the given search/reference pair.
func NewJob(scope common.Scope, searchID common.SearchHistoryID, ref string, elementIDs []string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:              common.ID(uuid.NewString()),
		Scope:           scope,
		SearchHistoryID: searchID,
		Reference:       ref,
		Status:          JobPending,
		ElementIDs:      elementIDs,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Start transitions the job from pending to processing.
func (j *Job) Start() error {
	if j.Status != JobPending {
		return errors.New(errors.ErrCodeJobStateInvalid, "job is not pending").
			WithDetail("job=" + string(j.ID) + " status=" + string(j.Status))
	}
	j.Status = JobProcessing
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// Complete transitions the job from processing to completed with the given
// result.  Completing a terminal or never-started job is rejected; this is
// the in-memory half of the write guard that keeps late workers from
// resurrecting a timed-out job.
func (j *Job) Complete(result *JobResult) error {
	if j.Status != JobProcessing {
		return errors.New(errors.ErrCodeJobStateInvalid, "job is not processing").
			WithDetail("job=" + string(j.ID) + " status=" + string(j.Status))
	}
	if result == nil || len(result.Matches) == 0 {
		return errors.New(errors.ErrCodeJobStateInvalid, "completed job requires a non-empty result")
	}
	j.Status = JobCompleted
	j.Result = result
	j.Error = ""
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail transitions the job to failed with the given error message.  Allowed
// from pending (rejected before any work) and processing; never from a
// terminal state.
func (j *Job) Fail(message string) error {
	if j.Status.Terminal() {
		return errors.New(errors.ErrCodeJobStateInvalid, "job is already terminal").
			WithDetail("job=" + string(j.ID) + " status=" + string(j.Status))
	}
	j.Status = JobFailed
	j.Error = message
	j.Result = nil
	j.UpdatedAt = time.Now().UTC()
	return nil
}

//Personal.AI order the ending
