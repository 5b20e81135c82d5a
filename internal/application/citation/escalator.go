package citation

import (
	"context"
	"time"

	"github.com/turtacn/CiteScope/internal/config"
	"github.com/turtacn/CiteScope/internal/domain/citation"
	"github.com/turtacn/CiteScope/internal/domain/claim"
	"github.com/turtacn/CiteScope/internal/domain/reference"
	"github.com/turtacn/CiteScope/internal/infrastructure/analysis"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CiteScope/pkg/errors"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

// Escalator promotes the strongest shallow matches of a reference to deep
// analysis.  The provider is consulted per element; the reference-level
// overall relevance is always computed here, never taken from the provider.
type Escalator struct {
	provider    analysis.Provider
	refs        reference.Source
	matches     citation.MatchRepository
	invalidator *Invalidator
	cfg         config.PipelineConfig
	logger      logging.Logger
	metrics     *prometheus.PipelineMetrics
}

func NewEscalator(
	provider analysis.Provider,
	refs reference.Source,
	matches citation.MatchRepository,
	invalidator *Invalidator,
	cfg config.PipelineConfig,
	log logging.Logger,
) *Escalator {
	return &Escalator{
		provider:    provider,
		refs:        refs,
		matches:     matches,
		invalidator: invalidator,
		cfg:         cfg,
		logger:      log,
	}
}

// WithMetrics attaches pipeline metrics.
func (e *Escalator) WithMetrics(metrics *prometheus.PipelineMetrics) *Escalator {
	e.metrics = metrics
	return e
}

// Escalate deep-analyzes the top matches of one reference.  Matches below
// the score floor are never escalated; when nothing qualifies the call is a
// no-op returning (nil, nil).  Individual element failures degrade to
// relevance 0 with an explanation; only a fully failed escalation surfaces
// ErrCodeAnalysisUnavailable.  The computed result is written back onto
// every escalated match.
func (e *Escalator) Escalate(ctx context.Context, scope common.Scope, cl *claim.Claim, ref string, topMatches []*citation.Match, limit int) (*citation.DeepAnalysisResult, error) {
	if limit <= 0 {
		limit = e.cfg.EscalationLimit
	}
	if limit <= 0 {
		limit = 3
	}

	selected := e.selectMatches(topMatches, limit)
	if len(selected) == 0 {
		e.countOutcome("skipped")
		e.logger.Debug("no match above the escalation floor",
			logging.String("reference", ref),
			logging.Float64("floor", e.cfg.MinEscalationScore))
		return nil, nil
	}

	doc, err := e.refs.GetDocument(ctx, scope, ref)
	if err != nil {
		e.countOutcome("reference_unavailable")
		return nil, err
	}

	start := time.Now()
	analyses := make([]citation.ElementAnalysis, 0, len(selected))
	var keyFindings, recommendations []string
	failed := 0

	for _, m := range selected {
		ea, findings, recs, ok := e.analyzeElement(ctx, cl, doc, m)
		if !ok {
			failed++
		}
		analyses = append(analyses, ea)
		keyFindings = append(keyFindings, findings...)
		recommendations = append(recommendations, recs...)
	}
	if e.metrics != nil {
		e.metrics.DeepAnalysisDuration.WithLabelValues().Observe(time.Since(start).Seconds())
	}

	if failed == len(selected) {
		e.countOutcome("failed")
		return nil, errors.New(errors.ErrCodeAnalysisUnavailable,
			"deep analysis failed for every escalated element").
			WithDetail("reference=" + ref)
	}

	result := &citation.DeepAnalysisResult{
		OverallRelevance: overallRelevance(selected, analyses),
		ElementAnalyses:  analyses,
		KeyFindings:      dedupe(keyFindings),
		Recommendations:  dedupe(recommendations),
		AnalyzedAt:       time.Now().UTC(),
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}

	for _, m := range selected {
		if err := e.matches.AttachDeepAnalysis(ctx, scope, m.ID, result); err != nil {
			return nil, err
		}
	}

	// Deep analysis changes the cached top-match payloads.
	if err := e.invalidator.InvalidateMatches(ctx, scope, selected[0].SearchHistoryID); err != nil {
		e.logger.Error("cache invalidation failed after escalation",
			logging.String("reference", ref), logging.Err(err))
	}

	e.countOutcome("escalated")
	e.logger.Info("reference escalated",
		logging.String("reference", ref),
		logging.Int("elements", len(selected)),
		logging.Int("failed", failed),
		logging.Float64("overall_relevance", result.OverallRelevance))
	return result, nil
}

// selectMatches returns the top matches above the score floor, strongest
// first, at most limit of them.
func (e *Escalator) selectMatches(matches []*citation.Match, limit int) []*citation.Match {
	ranked := make([]*citation.Match, len(matches))
	copy(ranked, matches)
	citation.Rank(ranked)

	selected := make([]*citation.Match, 0, limit)
	for _, m := range ranked {
		if m.ScoreValue() < e.cfg.MinEscalationScore || m.ScoreValue() == 0 {
			break
		}
		selected = append(selected, m)
		if len(selected) == limit {
			break
		}
	}
	return selected
}

func (e *Escalator) analyzeElement(ctx context.Context, cl *claim.Claim, doc *reference.Document, m *citation.Match) (citation.ElementAnalysis, []string, []string, bool) {
	elementText := m.ParsedElementText
	if elementText == "" {
		elementText = m.ElementText
	}

	start := time.Now()
	res, err := e.provider.AnalyzeReference(ctx, analysis.DeepRequest{
		Reference: m.Reference,
		ClaimText: cl.Text,
		Elements: []analysis.ElementInput{
			{ID: m.ElementID, Text: elementText},
		},
		DocumentText: doc.Text(),
	})
	if e.metrics != nil {
		prometheus.RecordProviderCall(e.metrics, "analyze", err == nil, time.Since(start))
	}
	if err != nil {
		e.logger.Warn("element deep analysis failed",
			logging.String("reference", m.Reference),
			logging.String("element", m.ElementID),
			logging.Err(err))
		return citation.ElementAnalysis{
			ElementID:   m.ElementID,
			Relevance:   0,
			Explanation: "deep analysis failed: " + err.Error(),
		}, nil, nil, false
	}

	ea := citation.ElementAnalysis{ElementID: m.ElementID}
	for _, er := range res.Elements {
		if er.ElementID == m.ElementID {
			ea.Relevance = er.Relevance
			ea.Explanation = er.Explanation
			ea.MatchedConcepts = er.MatchedConcepts
			break
		}
	}
	return ea, res.KeyFindings, res.Recommendations, true
}

// overallRelevance aggregates element relevances into the reference-level
// score: a shallow-score-weighted mean, falling back to the unweighted mean
// when every weight is zero.
func overallRelevance(selected []*citation.Match, analyses []citation.ElementAnalysis) float64 {
	if len(analyses) == 0 {
		return 0
	}

	var weightSum, weighted, plain float64
	for i, ea := range analyses {
		w := selected[i].ScoreValue()
		weightSum += w
		weighted += w * ea.Relevance
		plain += ea.Relevance
	}
	if weightSum == 0 {
		return plain / float64(len(analyses))
	}
	return weighted / weightSum
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func (e *Escalator) countOutcome(outcome string) {
	if e.metrics != nil {
		e.metrics.EscalationsTotal.WithLabelValues(outcome).Inc()
	}
}

//Personal.AI order the ending
