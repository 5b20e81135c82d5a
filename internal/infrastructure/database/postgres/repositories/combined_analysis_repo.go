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

// CombinedAnalysisRepository is the PostgreSQL implementation of
// citation.CombinedRepository.  Records are insert-only: there is no
// update path, matching the immutability of the merge artifact.
type CombinedAnalysisRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

func NewCombinedAnalysisRepository(pool *pgxpool.Pool, log logging.Logger) *CombinedAnalysisRepository {
	return &CombinedAnalysisRepository{pool: pool, logger: log}
}

func (r *CombinedAnalysisRepository) Insert(ctx context.Context, record *citation.CombinedRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	analysisJSON, err := json.Marshal(record.Analysis)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode combined analysis")
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO combined_analyses (
			id, tenant_id, project_id, user_id, search_history_id,
			reference_numbers, claim1_text, analysis, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		record.ID, record.Scope.TenantID, record.Scope.ProjectID, record.Scope.UserID,
		record.SearchHistoryID, record.ReferenceNumbers, record.Claim1Text,
		analysisJSON, record.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to insert combined analysis",
			logging.String("record_id", string(record.ID)), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert combined analysis")
	}
	return nil
}

const combinedColumns = `
	id, tenant_id, project_id, user_id, search_history_id,
	reference_numbers, claim1_text, analysis, created_at`

func (r *CombinedAnalysisRepository) ListBySearch(ctx context.Context, scope common.Scope, searchID common.SearchHistoryID) ([]*citation.CombinedRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+combinedColumns+`
		FROM combined_analyses
		WHERE tenant_id = $1 AND project_id = $2 AND search_history_id = $3
		ORDER BY created_at DESC`,
		scope.TenantID, scope.ProjectID, searchID,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list combined analyses")
	}
	defer rows.Close()

	var records []*citation.CombinedRecord
	for rows.Next() {
		record, err := scanCombined(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *CombinedAnalysisRepository) GetByID(ctx context.Context, scope common.Scope, id common.ID) (*citation.CombinedRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+combinedColumns+`
		FROM combined_analyses
		WHERE id = $1 AND tenant_id = $2 AND project_id = $3`,
		id, scope.TenantID, scope.ProjectID,
	)
	record, err := scanCombined(row)
	if err != nil {
		if errors.GetCode(err) == errors.ErrCodeSerialization {
			return nil, err
		}
		if err == pgx.ErrNoRows {
			return nil, errors.New(errors.ErrCodeCombinedAnalysisNotFound, "combined analysis not found").
				WithDetail("record=" + string(id))
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load combined analysis")
	}
	return record, nil
}

func scanCombined(row rowScanner) (*citation.CombinedRecord, error) {
	var (
		record       citation.CombinedRecord
		analysisJSON []byte
	)
	err := row.Scan(
		&record.ID, &record.Scope.TenantID, &record.Scope.ProjectID, &record.Scope.UserID,
		&record.SearchHistoryID, &record.ReferenceNumbers, &record.Claim1Text,
		&analysisJSON, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(analysisJSON, &record.Analysis); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode combined analysis")
	}
	return &record, nil
}

//Personal.AI order the ending
