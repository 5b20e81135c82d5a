// Package citation defines the core entities of the citation-analysis
// pipeline: scored matches between claim elements and prior-art references,
// the job records that track their production, deep-analysis refinements,
// and the immutable combined-analysis artifacts built from them.
package citation

import (
	"sort"
	"time"

	"github.com/turtacn/CiteScope/pkg/errors"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

// LocationEntry is one piece of positional evidence inside a reference, in
// document order.
type LocationEntry struct {
	Section string `json:"section"`
	Text    string `json:"text"`
	Context string `json:"context,omitempty"`
}

// Location is the positional evidence attached to a match: where in the
// reference the supporting text was found.  Entries follow document order,
// not relevance order.
type Location struct {
	Reference string          `json:"reference"`
	ElementID string          `json:"element_id"`
	Entries   []LocationEntry `json:"entries"`
}

// Validate enforces the location invariant: when present, the entry sequence
// is non-empty.
func (l *Location) Validate() error {
	if l == nil {
		return nil
	}
	if len(l.Entries) == 0 {
		return errors.New(errors.ErrCodeValidation, "citation location has no entries").
			WithDetail("reference=" + l.Reference + " element=" + l.ElementID)
	}
	return nil
}

// ElementAnalysis is the deep-analysis verdict for one claim element against
// one reference.
type ElementAnalysis struct {
	ElementID       string   `json:"element_id"`
	Relevance       float64  `json:"relevance"`
	Explanation     string   `json:"explanation"`
	MatchedConcepts []string `json:"matched_concepts,omitempty"`
}

// DeepAnalysisResult is the escalated analysis of one reference against one
// claim.  OverallRelevance is always the deterministic aggregate of the
// per-element relevances (see Escalator), never independently assigned.
type DeepAnalysisResult struct {
	OverallRelevance float64           `json:"overall_relevance"`
	ElementAnalyses  []ElementAnalysis `json:"element_analyses"`
	KeyFindings      []string          `json:"key_findings,omitempty"`
	Recommendations  []string          `json:"recommendations,omitempty"`
	AnalyzedAt       time.Time         `json:"analyzed_at"`
}

// Validate checks relevance bounds on the result and its element analyses.
func (d *DeepAnalysisResult) Validate() error {
	if d == nil {
		return nil
	}
	if d.OverallRelevance < 0 || d.OverallRelevance > 1 {
		return errors.Newf(errors.ErrCodeValidation,
			"overall relevance %.4f is out of range [0, 1]", d.OverallRelevance)
	}
	for _, ea := range d.ElementAnalyses {
		if ea.Relevance < 0 || ea.Relevance > 1 {
			return errors.Newf(errors.ErrCodeValidation,
				"element %s relevance %.4f is out of range [0, 1]", ea.ElementID, ea.Relevance)
		}
	}
	return nil
}

// Match is one scored association between a claim element and a location in
// a reference document.  Score, when set, lies in [0, 1]; a match carrying a
// DeepAnalysis must have Score populated; deep analysis is strictly a
// refinement of a shallow match, never stand-alone.
type Match struct {
	ID              common.ID              `json:"id"`
	SearchHistoryID common.SearchHistoryID `json:"search_history_id"`
	Reference       string                 `json:"reference"`
	ElementID       string                 `json:"element_id"`
	ElementOrdinal  int                    `json:"element_ordinal"`
	ElementText     string                 `json:"element_text"`
	ParsedElementText string               `json:"parsed_element_text,omitempty"`
	MatchingText    string                 `json:"matching_text,omitempty"`
	Score           *float64               `json:"score,omitempty"`
	Reasoning       string                 `json:"reasoning"`
	Location        *Location              `json:"location,omitempty"`
	DeepAnalysis    *DeepAnalysisResult    `json:"deep_analysis,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// ScoreValue returns the match score, treating an absent score as 0.
func (m *Match) ScoreValue() float64 {
	if m.Score == nil {
		return 0
	}
	return *m.Score
}

// Validate enforces the match invariants.
func (m *Match) Validate() error {
	if m.ElementID == "" {
		return errors.New(errors.ErrCodeValidation, "match has no element id")
	}
	if m.Reference == "" {
		return errors.New(errors.ErrCodeValidation, "match has no reference")
	}
	if m.Score != nil && (*m.Score < 0 || *m.Score > 1) {
		return errors.Newf(errors.ErrCodeValidation,
			"match score %.4f is out of range [0, 1]", *m.Score)
	}
	if m.DeepAnalysis != nil && m.Score == nil {
		return errors.New(errors.ErrCodeValidation,
			"match carries deep analysis without a shallow score").
			WithDetail("reference=" + m.Reference + " element=" + m.ElementID)
	}
	if err := m.Location.Validate(); err != nil {
		return err
	}
	return m.DeepAnalysis.Validate()
}

// Rank orders matches by descending score, breaking ties by original element
// order.  The sort is stable, so equal (score, ordinal) pairs keep their
// input order.  Rank sorts in place and returns its argument for chaining.
func Rank(matches []*Match) []*Match {
	sort.SliceStable(matches, func(i, j int) bool {
		si, sj := matches[i].ScoreValue(), matches[j].ScoreValue()
		if si != sj {
			return si > sj
		}
		return matches[i].ElementOrdinal < matches[j].ElementOrdinal
	})
	return matches
}

// ScoreOf is a convenience for constructing the optional score field.
func ScoreOf(v float64) *float64 { return &v }

//Personal.AI order the ending
