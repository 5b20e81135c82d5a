// Package citation implements the pipeline's application services: the
// reference matcher, the job controller, the deep-analysis escalator, the
// combined-analysis aggregator, and the cached read paths.
package citation

import (
	"context"
	"strings"

	redisinfra "github.com/turtacn/CiteScope/internal/infrastructure/database/redis"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

// Cache keys follow {tenant}:{project}:{search}:{kind}[:{id}].  The shared
// layout is what makes prefix invalidation work: dropping everything under a
// search session or a project is a single DeleteByPrefix.

func searchKeyBase(scope common.Scope, searchID common.SearchHistoryID) string {
	var sb strings.Builder
	sb.WriteString(string(scope.TenantID))
	sb.WriteByte(':')
	sb.WriteString(string(scope.ProjectID))
	sb.WriteByte(':')
	sb.WriteString(string(searchID))
	return sb.String()
}

func keyTopMatches(scope common.Scope, searchID common.SearchHistoryID, reference string) string {
	return searchKeyBase(scope, searchID) + ":matches:" + reference
}

func keyCombinedList(scope common.Scope, searchID common.SearchHistoryID) string {
	return searchKeyBase(scope, searchID) + ":combined"
}

func searchPrefix(scope common.Scope, searchID common.SearchHistoryID) string {
	return searchKeyBase(scope, searchID) + ":"
}

func matchesPrefix(scope common.Scope, searchID common.SearchHistoryID) string {
	return searchKeyBase(scope, searchID) + ":matches:"
}

func projectPrefix(scope common.Scope) string {
	return string(scope.TenantID) + ":" + string(scope.ProjectID) + ":"
}

// Invalidator drops cached key ranges.  Writers call it synchronously before
// returning, so a reader that observes the write never sees the stale cache.
type Invalidator struct {
	cache  redisinfra.Cache
	logger logging.Logger
}

func NewInvalidator(cache redisinfra.Cache, log logging.Logger) *Invalidator {
	return &Invalidator{cache: cache, logger: log}
}

// InvalidateMatches drops the cached top-match lists of a search session.
func (i *Invalidator) InvalidateMatches(ctx context.Context, scope common.Scope, searchID common.SearchHistoryID) error {
	return i.deleteByPrefix(ctx, matchesPrefix(scope, searchID))
}

// InvalidateCombined drops the cached combined-analysis list of a search
// session.
func (i *Invalidator) InvalidateCombined(ctx context.Context, scope common.Scope, searchID common.SearchHistoryID) error {
	return i.cache.Delete(ctx, keyCombinedList(scope, searchID))
}

// InvalidateSearch drops every cached key of a search session.
func (i *Invalidator) InvalidateSearch(ctx context.Context, scope common.Scope, searchID common.SearchHistoryID) error {
	return i.deleteByPrefix(ctx, searchPrefix(scope, searchID))
}

// InvalidateProject drops every cached key under a project.  The workspace
// mutation hook calls this.
func (i *Invalidator) InvalidateProject(ctx context.Context, scope common.Scope) error {
	return i.deleteByPrefix(ctx, projectPrefix(scope))
}

func (i *Invalidator) deleteByPrefix(ctx context.Context, prefix string) error {
	n, err := i.cache.DeleteByPrefix(ctx, prefix)
	if err != nil {
		return err
	}
	if n > 0 {
		i.logger.Debug("cache range invalidated",
			logging.String("prefix", prefix),
			logging.Int64("keys", n))
	}
	return nil
}

//Personal.AI order the ending
