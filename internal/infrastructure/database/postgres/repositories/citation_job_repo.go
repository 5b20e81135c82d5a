package repositories

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/CiteScope/internal/domain/citation"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteScope/pkg/errors"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

// CitationJobRepository is the PostgreSQL implementation of
// citation.JobRepository.  The at-most-one-in-flight invariant is enforced
// by a partial unique index on (search_history_id, reference_number) over
// non-terminal rows, so the check-and-create is a single atomic insert.
type CitationJobRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

func NewCitationJobRepository(pool *pgxpool.Pool, log logging.Logger) *CitationJobRepository {
	return &CitationJobRepository{pool: pool, logger: log}
}

const jobColumns = `
	id, tenant_id, project_id, user_id, search_history_id, reference_number,
	status, element_ids, result, error, created_at, updated_at`

func (r *CitationJobRepository) CreateUnique(ctx context.Context, job *citation.Job) error {
	var resultJSON []byte
	if job.Result != nil {
		var err error
		resultJSON, err = json.Marshal(job.Result)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode job result")
		}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO citation_jobs (
			id, tenant_id, project_id, user_id, search_history_id,
			reference_number, status, element_ids, result, error,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		job.ID, job.Scope.TenantID, job.Scope.ProjectID, job.Scope.UserID,
		job.SearchHistoryID, job.Reference, job.Status, job.ElementIDs,
		resultJSON, job.Error, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.New(errors.ErrCodeDuplicateJob,
				"citation job already in flight for this reference").
				WithDetail("search=" + string(job.SearchHistoryID) + " reference=" + job.Reference)
		}
		r.logger.Error("failed to insert citation job",
			logging.String("job_id", string(job.ID)), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert citation job")
	}
	return nil
}

func (r *CitationJobRepository) GetByID(ctx context.Context, scope common.Scope, id common.ID) (*citation.Job, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM citation_jobs
		WHERE id = $1 AND tenant_id = $2 AND project_id = $3`,
		id, scope.TenantID, scope.ProjectID,
	)
	job, err := scanJob(row)
	if err == pgx.ErrNoRows {
		return nil, errors.New(errors.ErrCodeJobNotFound, "citation job not found").
			WithDetail("job=" + string(id))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load citation job")
	}
	return job, nil
}

func (r *CitationJobRepository) GetActive(ctx context.Context, scope common.Scope, searchID common.SearchHistoryID, reference string) (*citation.Job, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM citation_jobs
		WHERE tenant_id = $1 AND project_id = $2
		  AND search_history_id = $3 AND reference_number = $4
		  AND status IN ('pending','processing')`,
		scope.TenantID, scope.ProjectID, searchID, reference,
	)
	job, err := scanJob(row)
	if err == pgx.ErrNoRows {
		return nil, errors.New(errors.ErrCodeJobNotFound, "no active citation job").
			WithDetail("search=" + string(searchID) + " reference=" + reference)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load active citation job")
	}
	return job, nil
}

func (r *CitationJobRepository) ListBySearch(ctx context.Context, scope common.Scope, searchID common.SearchHistoryID) ([]*citation.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM citation_jobs
		WHERE tenant_id = $1 AND project_id = $2 AND search_history_id = $3
		ORDER BY created_at DESC`,
		scope.TenantID, scope.ProjectID, searchID,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list citation jobs")
	}
	defer rows.Close()

	var jobs []*citation.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan citation job")
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *CitationJobRepository) MarkProcessing(ctx context.Context, scope common.Scope, id common.ID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE citation_jobs
		SET status = 'processing', updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND project_id = $3
		  AND status = 'pending'`,
		id, scope.TenantID, scope.ProjectID,
	)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to mark job processing")
	}
	return tag.RowsAffected() == 1, nil
}

// CompleteFromProcessing is the status-compared write: the update only
// lands when the row is still processing, so a worker that outlived the
// controller timeout cannot resurrect a job already failed.
func (r *CitationJobRepository) CompleteFromProcessing(ctx context.Context, scope common.Scope, id common.ID, result *citation.JobResult) (bool, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode job result")
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE citation_jobs
		SET status = 'completed', result = $4, error = '', updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND project_id = $3
		  AND status = 'processing'`,
		id, scope.TenantID, scope.ProjectID, resultJSON,
	)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to complete job")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *CitationJobRepository) FailFromActive(ctx context.Context, scope common.Scope, id common.ID, message string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE citation_jobs
		SET status = 'failed', error = $4, result = NULL, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND project_id = $3
		  AND status IN ('pending','processing')`,
		id, scope.TenantID, scope.ProjectID, message,
	)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to fail job")
	}
	return tag.RowsAffected() == 1, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*citation.Job, error) {
	var (
		job        citation.Job
		resultJSON []byte
	)
	err := row.Scan(
		&job.ID, &job.Scope.TenantID, &job.Scope.ProjectID, &job.Scope.UserID,
		&job.SearchHistoryID, &job.Reference, &job.Status, &job.ElementIDs,
		&resultJSON, &job.Error, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(resultJSON) > 0 {
		var result citation.JobResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, err
		}
		job.Result = &result
	}
	return &job, nil
}

//Personal.AI order the ending
