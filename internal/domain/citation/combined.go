package citation

import (
	"time"

	"github.com/turtacn/CiteScope/pkg/errors"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

// ReferenceCell is one reference's deep-analysis verdict for one claim
// element inside the combined cross-reference table.
type ReferenceCell struct {
	Reference   string  `json:"reference"`
	Relevance   float64 `json:"relevance"`
	Explanation string  `json:"explanation,omitempty"`
}

// ElementRow cross-references one claim element against every reference in
// the combination.  Cells follow the record's ReferenceNumbers order.
type ElementRow struct {
	ElementID   string          `json:"element_id"`
	ElementText string          `json:"element_text,omitempty"`
	Cells       []ReferenceCell `json:"cells"`
}

// ReferenceRank is one entry of the relative ranking of references by
// overall relevance, strongest first.
type ReferenceRank struct {
	Reference        string  `json:"reference"`
	OverallRelevance float64 `json:"overall_relevance"`
}

// CombinedAnalysis is the structured comparison merged from per-reference
// deep analyses: a per-element cross-reference table plus a relative ranking.
type CombinedAnalysis struct {
	ElementRows []ElementRow    `json:"element_rows"`
	Ranking     []ReferenceRank `json:"ranking"`
	KeyFindings []string        `json:"key_findings,omitempty"`
}

// CombinedRecord is the persisted merge artifact.  Records are immutable:
// every successful aggregation inserts a new record, preserving an audit
// trail of what was compared when.
type CombinedRecord struct {
	ID               common.ID              `json:"id"`
	Scope            common.Scope           `json:"scope"`
	SearchHistoryID  common.SearchHistoryID `json:"search_history_id"`
	ReferenceNumbers []string               `json:"reference_numbers"`
	Claim1Text       string                 `json:"claim1_text"`
	Analysis         CombinedAnalysis       `json:"analysis"`
	CreatedAt        time.Time              `json:"created_at"`
}

// Validate enforces the combined-record invariants: ReferenceNumbers is
// non-empty and every reference appearing inside Analysis is a member of it.
func (r *CombinedRecord) Validate() error {
	if len(r.ReferenceNumbers) == 0 {
		return errors.New(errors.ErrCodeValidation, "combined record has no references")
	}
	members := make(map[string]bool, len(r.ReferenceNumbers))
	for _, ref := range r.ReferenceNumbers {
		members[ref] = true
	}
	for _, row := range r.Analysis.ElementRows {
		for _, cell := range row.Cells {
			if !members[cell.Reference] {
				return errors.New(errors.ErrCodeValidation,
					"analysis references a document outside the combination").
					WithDetail("reference=" + cell.Reference)
			}
		}
	}
	for _, rank := range r.Analysis.Ranking {
		if !members[rank.Reference] {
			return errors.New(errors.ErrCodeValidation,
				"ranking references a document outside the combination").
				WithDetail("reference=" + rank.Reference)
		}
	}
	return nil
}

//Personal.AI order the ending
