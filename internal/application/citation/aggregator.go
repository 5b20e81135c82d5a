package citation

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/CiteScope/internal/domain/citation"
	"github.com/turtacn/CiteScope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CiteScope/pkg/errors"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

// Aggregator merges per-reference deep analyses into immutable combined
// records: a per-element cross-reference table plus a relative ranking.
type Aggregator struct {
	combined    citation.CombinedRepository
	matches     citation.MatchRepository
	invalidator *Invalidator
	events      EventPublisher
	logger      logging.Logger
	metrics     *prometheus.PipelineMetrics
}

func NewAggregator(
	combined citation.CombinedRepository,
	matches citation.MatchRepository,
	invalidator *Invalidator,
	events EventPublisher,
	log logging.Logger,
) *Aggregator {
	return &Aggregator{
		combined:    combined,
		matches:     matches,
		invalidator: invalidator,
		events:      events,
		logger:      log,
	}
}

// WithMetrics attaches pipeline metrics.
func (a *Aggregator) WithMetrics(metrics *prometheus.PipelineMetrics) *Aggregator {
	a.metrics = metrics
	return a
}

// Combine builds and stores a point-in-time combined analysis across the
// given references.  Every reference must already carry a completed deep
// analysis; otherwise ErrCodeIncompleteAnalysis names the missing ones.
// Each successful call inserts a new record, never updating an old one.
func (a *Aggregator) Combine(ctx context.Context, scope common.Scope, searchID common.SearchHistoryID, claim1Text string, referenceNumbers []string) (*citation.CombinedRecord, error) {
	refs := dedupe(referenceNumbers)
	if len(refs) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "at least one reference is required")
	}

	deep, err := a.matches.DeepAnalyzed(ctx, scope, searchID, refs)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, ref := range refs {
		if _, ok := deep[ref]; !ok {
			missing = append(missing, ref)
		}
	}
	if len(missing) > 0 {
		return nil, errors.New(errors.ErrCodeIncompleteAnalysis,
			"references lack a completed deep analysis").
			WithDetail("missing=" + strings.Join(missing, ","))
	}

	record := &citation.CombinedRecord{
		ID:               common.ID(uuid.NewString()),
		Scope:            scope,
		SearchHistoryID:  searchID,
		ReferenceNumbers: refs,
		Claim1Text:       claim1Text,
		Analysis:         buildAnalysis(refs, deep),
		CreatedAt:        time.Now().UTC(),
	}
	if err := a.combined.Insert(ctx, record); err != nil {
		return nil, err
	}

	if a.metrics != nil {
		a.metrics.CombinedCreatedTotal.WithLabelValues().Inc()
	}
	if a.events != nil {
		payload := kafka.CombinedCreatedPayload{
			CombinedID:       string(record.ID),
			SearchHistoryID:  string(searchID),
			ReferenceNumbers: refs,
			CreatedAt:        record.CreatedAt,
		}
		if err := a.events.PublishEvent(ctx, kafka.TopicCombinedCreated, "combined.created", string(searchID), payload); err != nil {
			a.logger.Error("failed to publish combined creation", logging.Err(err))
		}
	}

	// Drop the cached list before returning so the caller's follow-up read
	// includes the new record.
	if err := a.invalidator.InvalidateCombined(ctx, scope, searchID); err != nil {
		a.logger.Error("cache invalidation failed after combine",
			logging.String("search", string(searchID)), logging.Err(err))
	}

	a.logger.Info("combined analysis created",
		logging.String("id", string(record.ID)),
		logging.String("search", string(searchID)),
		logging.Int("references", len(refs)))
	return record, nil
}

// buildAnalysis assembles the cross-reference table and the ranking.  Rows
// are ordered by first appearance of each element across the references in
// combination order; cells follow the combination order exactly.  References
// whose analysis does not cover an element get a zero-relevance cell.
func buildAnalysis(refs []string, deep map[string]*citation.DeepAnalysisResult) citation.CombinedAnalysis {
	var elementOrder []string
	seen := make(map[string]bool)
	for _, ref := range refs {
		for _, ea := range deep[ref].ElementAnalyses {
			if !seen[ea.ElementID] {
				seen[ea.ElementID] = true
				elementOrder = append(elementOrder, ea.ElementID)
			}
		}
	}

	rows := make([]citation.ElementRow, 0, len(elementOrder))
	for _, elementID := range elementOrder {
		row := citation.ElementRow{
			ElementID: elementID,
			Cells:     make([]citation.ReferenceCell, 0, len(refs)),
		}
		for _, ref := range refs {
			cell := citation.ReferenceCell{Reference: ref}
			for _, ea := range deep[ref].ElementAnalyses {
				if ea.ElementID == elementID {
					cell.Relevance = ea.Relevance
					cell.Explanation = ea.Explanation
					break
				}
			}
			row.Cells = append(row.Cells, cell)
		}
		rows = append(rows, row)
	}

	ranking := make([]citation.ReferenceRank, 0, len(refs))
	var findings []string
	for _, ref := range refs {
		ranking = append(ranking, citation.ReferenceRank{
			Reference:        ref,
			OverallRelevance: deep[ref].OverallRelevance,
		})
		findings = append(findings, deep[ref].KeyFindings...)
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].OverallRelevance > ranking[j].OverallRelevance
	})

	return citation.CombinedAnalysis{
		ElementRows: rows,
		Ranking:     ranking,
		KeyFindings: dedupe(findings),
	}
}

//Personal.AI order the ending
