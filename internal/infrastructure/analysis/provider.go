// Package analysis provides the client for the external analysis provider,
// the service that scores claim-element/reference matches and produces
// element-by-element deep analyses.
package analysis

import (
	"context"
	"time"
)

// ScoreRequest asks the provider to score one claim element against one
// candidate passage of a reference document.
type ScoreRequest struct {
	Reference     string `json:"reference"`
	ElementText   string `json:"element_text"`
	CandidateText string `json:"candidate_text"`
}

// ScoreResult is the provider's shallow verdict.  Score lies in [0, 1];
// a "no match" is score 0 with reasoning, not an error.
type ScoreResult struct {
	Score        float64 `json:"score"`
	Reasoning    string  `json:"reasoning"`
	MatchingText string  `json:"matching_text,omitempty"`
}

// ElementInput is one claim element handed to deep analysis.
type ElementInput struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// DeepRequest asks the provider for a full element-by-element analysis of
// one reference against a claim.
type DeepRequest struct {
	Reference    string         `json:"reference"`
	ClaimText    string         `json:"claim_text"`
	Elements     []ElementInput `json:"elements"`
	DocumentText string         `json:"document_text"`
}

// DeepElementResult is the provider's verdict for one element.
type DeepElementResult struct {
	ElementID       string   `json:"element_id"`
	Relevance       float64  `json:"relevance"`
	Explanation     string   `json:"explanation"`
	MatchedConcepts []string `json:"matched_concepts,omitempty"`
}

// DeepResult carries the per-element verdicts plus free-form findings.  It
// deliberately has no overall-relevance field: that aggregate is computed
// deterministically by the escalator, never trusted from the provider.
type DeepResult struct {
	Elements        []DeepElementResult `json:"elements"`
	KeyFindings     []string            `json:"key_findings,omitempty"`
	Recommendations []string            `json:"recommendations,omitempty"`
	AnalyzedAt      time.Time           `json:"analyzed_at"`
}

// Provider is the analysis-provider port consumed by the matcher and the
// escalator.
type Provider interface {
	ScoreMatch(ctx context.Context, req ScoreRequest) (*ScoreResult, error)
	AnalyzeReference(ctx context.Context, req DeepRequest) (*DeepResult, error)
}

//Personal.AI order the ending
