package citation

import (
	"context"

	"github.com/turtacn/CiteScope/pkg/types/common"
)

// JobRepository persists citation jobs.  Implementations must scope every
// read and write by the tenant/project in the supplied Scope, and must make
// CreateUnique atomic with respect to the at-most-one-in-flight invariant:
// two concurrent creates for the same (search, reference) key yield exactly
// one stored job, the loser receiving ErrCodeDuplicateJob.
type JobRepository interface {
	// CreateUnique inserts a pending job.  It fails with ErrCodeDuplicateJob
	// when a non-terminal job already exists for the same
	// (searchHistoryID, reference) pair.
	CreateUnique(ctx context.Context, job *Job) error

	// GetByID loads a job by id within the scope.
	GetByID(ctx context.Context, scope common.Scope, id common.ID) (*Job, error)

	// GetActive returns the non-terminal job for the (search, reference)
	// key, or ErrCodeJobNotFound when none is in flight.  The loser of an
	// enqueue race uses this to observe the winner's job.
	GetActive(ctx context.Context, scope common.Scope, searchID common.SearchHistoryID, reference string) (*Job, error)

	// ListBySearch returns all jobs of a search session, newest first.
	ListBySearch(ctx context.Context, scope common.Scope, searchID common.SearchHistoryID) ([]*Job, error)

	// MarkProcessing performs the guarded pending → processing transition.
	// It reports false when the job was not pending (already claimed, or
	// already terminal).
	MarkProcessing(ctx context.Context, scope common.Scope, id common.ID) (bool, error)

	// CompleteFromProcessing performs the guarded processing → completed
	// transition, storing the result.  It reports false when the job is no
	// longer processing; the write guard that keeps a late worker from
	// resurrecting a timed-out job.
	CompleteFromProcessing(ctx context.Context, scope common.Scope, id common.ID, result *JobResult) (bool, error)

	// FailFromActive transitions any non-terminal job to failed with the
	// given message.  It reports false when the job was already terminal.
	FailFromActive(ctx context.Context, scope common.Scope, id common.ID, message string) (bool, error)
}

// MatchRepository persists citation matches and their deep-analysis
// refinements.  The matcher writes matches; only the escalator writes
// deep-analysis payloads; no two components mutate the same field.
type MatchRepository interface {
	// SaveAll inserts the matches produced by one job run.
	SaveAll(ctx context.Context, scope common.Scope, matches []*Match) error

	// TopByReference returns the ranked matches of one reference within a
	// search (score descending, element order tiebreak), limited to limit
	// when limit > 0.
	TopByReference(ctx context.Context, scope common.Scope, searchID common.SearchHistoryID, reference string, limit int) ([]*Match, error)

	// AttachDeepAnalysis writes the deep-analysis result onto an existing
	// match.  ErrCodeMatchNotFound when the match does not exist in scope.
	AttachDeepAnalysis(ctx context.Context, scope common.Scope, matchID common.ID, result *DeepAnalysisResult) error

	// DeepAnalyzed returns, per reference, the deep-analysis result with
	// the highest overall relevance recorded for that reference in the
	// search.  References without any deep analysis are absent from the
	// map; the aggregator's missing-reference check reads off this.
	DeepAnalyzed(ctx context.Context, scope common.Scope, searchID common.SearchHistoryID, references []string) (map[string]*DeepAnalysisResult, error)
}

// CombinedRepository persists immutable combined-analysis records.
type CombinedRepository interface {
	// Insert stores a new record.  Records are never updated in place.
	Insert(ctx context.Context, record *CombinedRecord) error

	// ListBySearch returns all records of a search session, newest first.
	ListBySearch(ctx context.Context, scope common.Scope, searchID common.SearchHistoryID) ([]*CombinedRecord, error)

	// GetByID loads one record within the scope.
	GetByID(ctx context.Context, scope common.Scope, id common.ID) (*CombinedRecord, error)
}

//Personal.AI order the ending
