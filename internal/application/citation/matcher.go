package citation

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/turtacn/CiteScope/internal/domain/citation"
	"github.com/turtacn/CiteScope/internal/domain/claim"
	"github.com/turtacn/CiteScope/internal/domain/reference"
	"github.com/turtacn/CiteScope/internal/infrastructure/analysis"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CiteScope/internal/infrastructure/search/opensearch"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

// SectionSearcher retrieves candidate passages of a reference for an element
// query.  The OpenSearch section index implements it; the matcher falls back
// to an in-document scan when no index is wired or the index errors.
type SectionSearcher interface {
	Search(ctx context.Context, ref, query string, limit int) ([]opensearch.SectionHit, error)
}

const (
	defaultCandidateLimit = 5
	// candidateTextBudget caps the text handed to the scoring provider.
	candidateTextBudget = 8000
)

// Matcher produces one shallow match per (claim element, reference) pair.
// It has no side effects: persistence and ranking belong to the controller.
type Matcher struct {
	refs           reference.Source
	sections       SectionSearcher
	provider       analysis.Provider
	candidateLimit int
	logger         logging.Logger
	metrics        *prometheus.PipelineMetrics
}

func NewMatcher(refs reference.Source, sections SectionSearcher, provider analysis.Provider, log logging.Logger) *Matcher {
	return &Matcher{
		refs:           refs,
		sections:       sections,
		provider:       provider,
		candidateLimit: defaultCandidateLimit,
		logger:         log,
	}
}

// WithMetrics attaches pipeline metrics.  Optional; a nil-metrics matcher
// works identically.
func (m *Matcher) WithMetrics(metrics *prometheus.PipelineMetrics) *Matcher {
	m.metrics = metrics
	return m
}

// Match scores one claim element against one reference.  A reference that
// discloses nothing yields score 0 with the provider's reasoning, not an
// error; hard failures are ErrCodeInvalidElement and
// ErrCodeReferenceUnavailable.
func (m *Matcher) Match(ctx context.Context, scope common.Scope, searchID common.SearchHistoryID, element claim.Element, referenceNumber string) (*citation.Match, error) {
	if err := element.Validate(); err != nil {
		m.countOutcome("invalid_element")
		return nil, err
	}

	doc, err := m.refs.GetDocument(ctx, scope, referenceNumber)
	if err != nil {
		m.countOutcome("reference_unavailable")
		return nil, err
	}

	candidates := m.findCandidates(ctx, doc, element.MatchText())
	if m.metrics != nil {
		m.metrics.CandidateSections.WithLabelValues().Observe(float64(len(candidates)))
	}

	start := time.Now()
	scored, err := m.provider.ScoreMatch(ctx, analysis.ScoreRequest{
		Reference:     referenceNumber,
		ElementText:   element.MatchText(),
		CandidateText: joinCandidates(candidates),
	})
	if m.metrics != nil {
		prometheus.RecordProviderCall(m.metrics, "score", err == nil, time.Since(start))
	}
	if err != nil {
		m.countOutcome("provider_error")
		return nil, err
	}

	now := time.Now().UTC()
	match := &citation.Match{
		ID:                common.ID(uuid.NewString()),
		SearchHistoryID:   searchID,
		Reference:         referenceNumber,
		ElementID:         element.ID,
		ElementOrdinal:    element.Ordinal,
		ElementText:       element.Text,
		ParsedElementText: element.ParsedText,
		MatchingText:      scored.MatchingText,
		Score:             citation.ScoreOf(scored.Score),
		Reasoning:         scored.Reasoning,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if scored.Score > 0 {
		match.Location = buildLocation(doc, element.ID, candidates)
		m.countOutcome("matched")
	} else {
		m.countOutcome("no_match")
	}
	if m.metrics != nil {
		m.metrics.MatchScoreDistribution.WithLabelValues().Observe(scored.Score)
	}

	if err := match.Validate(); err != nil {
		return nil, err
	}
	return match, nil
}

type candidate struct {
	section string
	text    string
}

// findCandidates asks the section index for the best passages, falling back
// to the raw document when the index is absent, errors, or comes back empty
// (freshly ingested documents may not be indexed yet).
func (m *Matcher) findCandidates(ctx context.Context, doc *reference.Document, query string) []candidate {
	if m.sections != nil {
		hits, err := m.sections.Search(ctx, doc.Number, query, m.candidateLimit)
		if err != nil {
			m.logger.Warn("section index unavailable, scanning document",
				logging.String("reference", doc.Number), logging.Err(err))
		} else if len(hits) > 0 {
			out := make([]candidate, 0, len(hits))
			for _, h := range hits {
				out = append(out, candidate{section: h.Section, text: h.Text})
			}
			return out
		}
	}
	return candidatesFromDocument(doc, m.candidateLimit)
}

func candidatesFromDocument(doc *reference.Document, limit int) []candidate {
	out := make([]candidate, 0, limit)
	for _, s := range doc.Sections {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		out = append(out, candidate{section: s.Name, text: s.Text})
		if len(out) == limit {
			return out
		}
	}
	if len(out) == 0 && strings.TrimSpace(doc.FullText) != "" {
		out = append(out, candidate{section: "full_text", text: doc.FullText})
	}
	return out
}

func joinCandidates(candidates []candidate) string {
	var sb strings.Builder
	for _, c := range candidates {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		remaining := candidateTextBudget - sb.Len()
		if remaining <= 0 {
			break
		}
		sb.WriteString(truncate(c.text, remaining))
	}
	return sb.String()
}

// buildLocation records where the supporting text was found, in document
// order regardless of the retrieval order of the candidates.
func buildLocation(doc *reference.Document, elementID string, candidates []candidate) *citation.Location {
	bySection := make(map[string]candidate, len(candidates))
	for _, c := range candidates {
		if _, seen := bySection[c.section]; !seen {
			bySection[c.section] = c
		}
	}

	entries := make([]citation.LocationEntry, 0, len(candidates))
	for _, s := range doc.Sections {
		if c, ok := bySection[s.Name]; ok {
			entries = append(entries, citation.LocationEntry{
				Section: c.section,
				Text:    snippet(c.text),
			})
			delete(bySection, s.Name)
		}
	}
	// Candidates with no matching document section (e.g. the full-text
	// fallback) trail in retrieval order.
	for _, c := range candidates {
		if _, ok := bySection[c.section]; ok {
			entries = append(entries, citation.LocationEntry{
				Section: c.section,
				Text:    snippet(c.text),
			})
			delete(bySection, c.section)
		}
	}
	if len(entries) == 0 {
		return nil
	}
	return &citation.Location{
		Reference: doc.Number,
		ElementID: elementID,
		Entries:   entries,
	}
}

const snippetLimit = 500

func snippet(text string) string {
	return truncate(text, snippetLimit)
}

// truncate cuts text at limit bytes, backing off to the previous rune
// boundary so a multi-byte rune is never split.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit]
}

func (m *Matcher) countOutcome(outcome string) {
	if m.metrics != nil {
		m.metrics.ElementsMatchedTotal.WithLabelValues(outcome).Inc()
	}
}

//Personal.AI order the ending
