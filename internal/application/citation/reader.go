package citation

import (
	"context"
	"time"

	"github.com/turtacn/CiteScope/internal/config"
	"github.com/turtacn/CiteScope/internal/domain/citation"
	redisinfra "github.com/turtacn/CiteScope/internal/infrastructure/database/redis"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

// Reader serves the pipeline's read paths.  Match lists and combined-
// analysis lists are cached under search-scoped keys with bounded TTLs;
// job status always reads through, because a poller acting on a stale
// status would re-enqueue or give up wrongly.
type Reader struct {
	jobs     citation.JobRepository
	matches  citation.MatchRepository
	combined citation.CombinedRepository
	cache    redisinfra.Cache
	cfg      config.PipelineConfig
	logger   logging.Logger
	metrics  *prometheus.PipelineMetrics
}

func NewReader(
	jobs citation.JobRepository,
	matches citation.MatchRepository,
	combined citation.CombinedRepository,
	cache redisinfra.Cache,
	cfg config.PipelineConfig,
	log logging.Logger,
) *Reader {
	return &Reader{
		jobs:     jobs,
		matches:  matches,
		combined: combined,
		cache:    cache,
		cfg:      cfg,
		logger:   log,
	}
}

// WithMetrics attaches pipeline metrics.
func (r *Reader) WithMetrics(metrics *prometheus.PipelineMetrics) *Reader {
	r.metrics = metrics
	return r
}

// TopMatches returns the ranked matches of one reference in a search.  The
// full ranked list is cached; the limit is applied after the cache so every
// limit shares one entry.
func (r *Reader) TopMatches(ctx context.Context, scope common.Scope, searchID common.SearchHistoryID, ref string, limit int) ([]*citation.Match, error) {
	ttl := r.cfg.TopMatchesCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	var matches []*citation.Match
	missed := false
	key := keyTopMatches(scope, searchID, ref)
	err := r.cache.GetOrSet(ctx, key, &matches, ttl, func(ctx context.Context) (interface{}, error) {
		missed = true
		return r.matches.TopByReference(ctx, scope, searchID, ref, 0)
	})
	if err != nil {
		return nil, err
	}
	r.countCache("matches", !missed)

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// ListCombinedAnalyses returns the combined records of a search session,
// newest first.
func (r *Reader) ListCombinedAnalyses(ctx context.Context, scope common.Scope, searchID common.SearchHistoryID) ([]*citation.CombinedRecord, error) {
	ttl := r.cfg.CombinedCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	var records []*citation.CombinedRecord
	missed := false
	key := keyCombinedList(scope, searchID)
	err := r.cache.GetOrSet(ctx, key, &records, ttl, func(ctx context.Context) (interface{}, error) {
		missed = true
		return r.combined.ListBySearch(ctx, scope, searchID)
	})
	if err != nil {
		return nil, err
	}
	r.countCache("combined", !missed)
	return records, nil
}

// GetCombinedAnalysis loads one combined record.  Individual records are
// immutable, so this reads through without caching complexity.
func (r *Reader) GetCombinedAnalysis(ctx context.Context, scope common.Scope, id common.ID) (*citation.CombinedRecord, error) {
	return r.combined.GetByID(ctx, scope, id)
}

// JobStatus reads a job directly from the repository.
func (r *Reader) JobStatus(ctx context.Context, scope common.Scope, id common.ID) (*citation.Job, error) {
	return r.jobs.GetByID(ctx, scope, id)
}

// ListJobs returns every job of a search session, newest first.
func (r *Reader) ListJobs(ctx context.Context, scope common.Scope, searchID common.SearchHistoryID) ([]*citation.Job, error) {
	return r.jobs.ListBySearch(ctx, scope, searchID)
}

func (r *Reader) countCache(kind string, hit bool) {
	if r.metrics != nil {
		prometheus.RecordCacheAccess(r.metrics, kind, hit)
	}
}

//Personal.AI order the ending
