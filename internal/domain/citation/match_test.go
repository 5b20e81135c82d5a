package citation

import (
	"testing"

	"github.com/turtacn/CiteScope/pkg/errors"
)

func TestMatchValidate(t *testing.T) {
	base := func() *Match {
		return &Match{
			ID: "m1", SearchHistoryID: "s1", Reference: "US111A",
			ElementID: "e1", ElementText: "a frame",
			Score: ScoreOf(0.8), Reasoning: "frame disclosed in fig. 2",
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("valid match rejected: %v", err)
	}

	m := base()
	m.Score = ScoreOf(1.2)
	if err := m.Validate(); !errors.IsCode(err, errors.ErrCodeValidation) {
		t.Errorf("out-of-range score accepted: %v", err)
	}

	m = base()
	m.Score = nil
	m.DeepAnalysis = &DeepAnalysisResult{OverallRelevance: 0.5}
	if err := m.Validate(); !errors.IsCode(err, errors.ErrCodeValidation) {
		t.Errorf("deep analysis without score accepted: %v", err)
	}

	m = base()
	m.Location = &Location{Reference: "US111A", ElementID: "e1"}
	if err := m.Validate(); !errors.IsCode(err, errors.ErrCodeValidation) {
		t.Errorf("empty location accepted: %v", err)
	}

	m = base()
	m.Location = &Location{Reference: "US111A", ElementID: "e1",
		Entries: []LocationEntry{{Section: "claims", Text: "a frame"}}}
	if err := m.Validate(); err != nil {
		t.Errorf("valid location rejected: %v", err)
	}
}

func TestScoreValueTreatsNilAsZero(t *testing.T) {
	m := &Match{}
	if m.ScoreValue() != 0 {
		t.Error("nil score should read as 0")
	}
	m.Score = ScoreOf(0.42)
	if m.ScoreValue() != 0.42 {
		t.Error("score value should round-trip")
	}
}

func TestRankOrdersByScoreDescending(t *testing.T) {
	matches := []*Match{
		{ElementID: "e1", ElementOrdinal: 0, Score: ScoreOf(0.3)},
		{ElementID: "e2", ElementOrdinal: 1, Score: ScoreOf(0.9)},
		{ElementID: "e3", ElementOrdinal: 2, Score: ScoreOf(0.6)},
	}
	Rank(matches)
	got := []string{matches[0].ElementID, matches[1].ElementID, matches[2].ElementID}
	want := []string{"e2", "e3", "e1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rank order = %v, want %v", got, want)
		}
	}
}

func TestRankBreaksTiesByElementOrder(t *testing.T) {
	matches := []*Match{
		{ElementID: "e3", ElementOrdinal: 2, Score: ScoreOf(0.5)},
		{ElementID: "e1", ElementOrdinal: 0, Score: ScoreOf(0.5)},
		{ElementID: "e2", ElementOrdinal: 1, Score: ScoreOf(0.5)},
	}
	Rank(matches)
	if matches[0].ElementID != "e1" || matches[1].ElementID != "e2" || matches[2].ElementID != "e3" {
		t.Errorf("tie order = %s,%s,%s; want element order",
			matches[0].ElementID, matches[1].ElementID, matches[2].ElementID)
	}
}

func TestRankTreatsAbsentScoreAsZero(t *testing.T) {
	matches := []*Match{
		{ElementID: "e1", ElementOrdinal: 0},
		{ElementID: "e2", ElementOrdinal: 1, Score: ScoreOf(0.1)},
	}
	Rank(matches)
	if matches[0].ElementID != "e2" {
		t.Error("scored match should outrank unscored match")
	}
}

func TestDeepAnalysisValidate(t *testing.T) {
	d := &DeepAnalysisResult{
		OverallRelevance: 0.7,
		ElementAnalyses: []ElementAnalysis{
			{ElementID: "e1", Relevance: 0.9, Explanation: "explicit disclosure"},
		},
	}
	if err := d.Validate(); err != nil {
		t.Errorf("valid result rejected: %v", err)
	}

	d.OverallRelevance = -0.1
	if d.Validate() == nil {
		t.Error("negative overall relevance accepted")
	}

	d.OverallRelevance = 0.7
	d.ElementAnalyses[0].Relevance = 1.01
	if d.Validate() == nil {
		t.Error("out-of-range element relevance accepted")
	}
}

//Personal.AI order the ending
