package repositories

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/CiteScope/internal/domain/citation"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteScope/pkg/errors"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

// CitationMatchRepository is the PostgreSQL implementation of
// citation.MatchRepository.  The matcher inserts rows; the escalator only
// ever touches the deep_analysis column.
type CitationMatchRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

func NewCitationMatchRepository(pool *pgxpool.Pool, log logging.Logger) *CitationMatchRepository {
	return &CitationMatchRepository{pool: pool, logger: log}
}

func (r *CitationMatchRepository) SaveAll(ctx context.Context, scope common.Scope, matches []*citation.Match) error {
	if len(matches) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, m := range matches {
		locationJSON, err := marshalNullable(m.Location)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode match location")
		}
		deepJSON, err := marshalNullable(m.DeepAnalysis)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode deep analysis")
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO citation_matches (
				id, tenant_id, project_id, search_history_id, reference_number,
				element_id, element_ordinal, element_text, parsed_element_text,
				matching_text, score, reasoning, location, deep_analysis,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
			m.ID, scope.TenantID, scope.ProjectID, m.SearchHistoryID, m.Reference,
			m.ElementID, m.ElementOrdinal, m.ElementText, m.ParsedElementText,
			m.MatchingText, m.Score, m.Reasoning, locationJSON, deepJSON,
			m.CreatedAt, m.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("failed to insert citation match",
				logging.String("match_id", string(m.ID)), logging.Err(err))
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert citation match")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit match batch")
	}
	return nil
}

const matchColumns = `
	id, search_history_id, reference_number, element_id, element_ordinal,
	element_text, parsed_element_text, matching_text, score, reasoning,
	location, deep_analysis, created_at, updated_at`

func (r *CitationMatchRepository) TopByReference(ctx context.Context, scope common.Scope, searchID common.SearchHistoryID, reference string, limit int) ([]*citation.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM citation_matches
		WHERE tenant_id = $1 AND project_id = $2
		  AND search_history_id = $3 AND reference_number = $4
		ORDER BY score DESC NULLS LAST, element_ordinal ASC`
	args := []interface{}{scope.TenantID, scope.ProjectID, searchID, reference}
	if limit > 0 {
		query += ` LIMIT $5`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query citation matches")
	}
	defer rows.Close()

	var matches []*citation.Match
	for rows.Next() {
		var (
			m            citation.Match
			locationJSON []byte
			deepJSON     []byte
		)
		err := rows.Scan(
			&m.ID, &m.SearchHistoryID, &m.Reference, &m.ElementID, &m.ElementOrdinal,
			&m.ElementText, &m.ParsedElementText, &m.MatchingText, &m.Score, &m.Reasoning,
			&locationJSON, &deepJSON, &m.CreatedAt, &m.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan citation match")
		}
		if len(locationJSON) > 0 {
			if err := json.Unmarshal(locationJSON, &m.Location); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode match location")
			}
		}
		if len(deepJSON) > 0 {
			if err := json.Unmarshal(deepJSON, &m.DeepAnalysis); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode deep analysis")
			}
		}
		matches = append(matches, &m)
	}
	return matches, rows.Err()
}

func (r *CitationMatchRepository) AttachDeepAnalysis(ctx context.Context, scope common.Scope, matchID common.ID, result *citation.DeepAnalysisResult) error {
	deepJSON, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode deep analysis")
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE citation_matches
		SET deep_analysis = $4, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND project_id = $3`,
		matchID, scope.TenantID, scope.ProjectID, deepJSON,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to attach deep analysis")
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeMatchNotFound, "citation match not found").
			WithDetail("match=" + string(matchID))
	}
	return nil
}

// DeepAnalyzed returns, per reference, the deep-analysis result with the
// highest overall relevance recorded for that reference.  References with
// no deep analysis are simply absent from the map.
func (r *CitationMatchRepository) DeepAnalyzed(ctx context.Context, scope common.Scope, searchID common.SearchHistoryID, references []string) (map[string]*citation.DeepAnalysisResult, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT ON (reference_number) reference_number, deep_analysis
		FROM citation_matches
		WHERE tenant_id = $1 AND project_id = $2
		  AND search_history_id = $3 AND reference_number = ANY($4)
		  AND deep_analysis IS NOT NULL
		ORDER BY reference_number, (deep_analysis->>'overall_relevance')::float DESC`,
		scope.TenantID, scope.ProjectID, searchID, references,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query deep analyses")
	}
	defer rows.Close()

	results := make(map[string]*citation.DeepAnalysisResult)
	for rows.Next() {
		var (
			reference string
			deepJSON  []byte
		)
		if err := rows.Scan(&reference, &deepJSON); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan deep analysis")
		}
		var result citation.DeepAnalysisResult
		if err := json.Unmarshal(deepJSON, &result); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode deep analysis")
		}
		results[reference] = &result
	}
	return results, rows.Err()
}

func marshalNullable(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case *citation.Location:
		if t == nil {
			return nil, nil
		}
	case *citation.DeepAnalysisResult:
		if t == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

//Personal.AI order the ending
