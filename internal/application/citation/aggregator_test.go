package citation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CiteScope/internal/domain/citation"
	"github.com/turtacn/CiteScope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CiteScope/internal/testutil"
	"github.com/turtacn/CiteScope/pkg/errors"
)

type aggregatorFixture struct {
	combined  *testutil.MemCombinedRepo
	matches   *testutil.MemMatchRepo
	cache     *testutil.MemCache
	publisher *recordingPublisher
	agg       *Aggregator
}

func newAggregatorFixture(t *testing.T) *aggregatorFixture {
	t.Helper()
	f := &aggregatorFixture{
		combined:  testutil.NewMemCombinedRepo(),
		matches:   testutil.NewMemMatchRepo(),
		cache:     testutil.NewMemCache(),
		publisher: &recordingPublisher{},
	}
	f.agg = NewAggregator(f.combined, f.matches,
		NewInvalidator(f.cache, nopLog()), f.publisher, nopLog())
	return f
}

// seedDeepAnalyzed stores a match for ref carrying the given deep analysis.
func (f *aggregatorFixture) seedDeepAnalyzed(t *testing.T, ref string, deep *citation.DeepAnalysisResult) {
	t.Helper()
	m := shallowMatch("seed-"+ref, 0, ref, 0.9)
	require.NoError(t, f.matches.SaveAll(context.Background(), testScope, []*citation.Match{m}))
	require.NoError(t, f.matches.AttachDeepAnalysis(context.Background(), testScope, m.ID, deep))
}

func deepResult(overall float64, findings []string, analyses ...citation.ElementAnalysis) *citation.DeepAnalysisResult {
	return &citation.DeepAnalysisResult{
		OverallRelevance: overall,
		ElementAnalyses:  analyses,
		KeyFindings:      findings,
		AnalyzedAt:       time.Now().UTC(),
	}
}

func TestCombineBuildsTableAndRanking(t *testing.T) {
	f := newAggregatorFixture(t)
	f.seedDeepAnalyzed(t, "US111A", deepResult(0.7, []string{"fa"},
		citation.ElementAnalysis{ElementID: "e1", Relevance: 0.9, Explanation: "frame disclosed"},
		citation.ElementAnalysis{ElementID: "e2", Relevance: 0.5, Explanation: "fastener implied"},
	))
	f.seedDeepAnalyzed(t, "US222B", deepResult(0.85, []string{"fb", "fa"},
		citation.ElementAnalysis{ElementID: "e2", Relevance: 0.8, Explanation: "fastener disclosed"},
		citation.ElementAnalysis{ElementID: "e3", Relevance: 0.6, Explanation: "base disclosed"},
	))

	record, err := f.agg.Combine(context.Background(), testScope, testSearchID,
		"1. A widget.", []string{"US111A", "US222B"})
	require.NoError(t, err)

	assert.Equal(t, []string{"US111A", "US222B"}, record.ReferenceNumbers)
	assert.Equal(t, "1. A widget.", record.Claim1Text)
	assert.False(t, record.CreatedAt.IsZero())

	// Rows follow first appearance across the combination order; cells
	// follow the combination order, zero-filled where uncovered.
	rows := record.Analysis.ElementRows
	require.Len(t, rows, 3)
	assert.Equal(t, "e1", rows[0].ElementID)
	assert.Equal(t, "e2", rows[1].ElementID)
	assert.Equal(t, "e3", rows[2].ElementID)

	require.Len(t, rows[0].Cells, 2)
	assert.Equal(t, "US111A", rows[0].Cells[0].Reference)
	assert.Equal(t, 0.9, rows[0].Cells[0].Relevance)
	assert.Equal(t, "US222B", rows[0].Cells[1].Reference)
	assert.Zero(t, rows[0].Cells[1].Relevance)

	assert.Equal(t, 0.5, rows[1].Cells[0].Relevance)
	assert.Equal(t, 0.8, rows[1].Cells[1].Relevance)
	assert.Zero(t, rows[2].Cells[0].Relevance)
	assert.Equal(t, 0.6, rows[2].Cells[1].Relevance)

	// Ranking is strongest first.
	ranking := record.Analysis.Ranking
	require.Len(t, ranking, 2)
	assert.Equal(t, "US222B", ranking[0].Reference)
	assert.Equal(t, 0.85, ranking[0].OverallRelevance)
	assert.Equal(t, "US111A", ranking[1].Reference)

	assert.Equal(t, []string{"fa", "fb"}, record.Analysis.KeyFindings)

	// Persisted and announced.
	stored, err := f.combined.GetByID(context.Background(), testScope, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, stored.ID)

	events := f.publisher.published()
	require.Len(t, events, 1)
	assert.Equal(t, kafka.TopicCombinedCreated, events[0].Topic)
	payload, ok := events[0].Payload.(kafka.CombinedCreatedPayload)
	require.True(t, ok)
	assert.Equal(t, string(record.ID), payload.CombinedID)
}

func TestCombineDeduplicatesReferences(t *testing.T) {
	f := newAggregatorFixture(t)
	f.seedDeepAnalyzed(t, "US111A", deepResult(0.7, nil,
		citation.ElementAnalysis{ElementID: "e1", Relevance: 0.9}))

	record, err := f.agg.Combine(context.Background(), testScope, testSearchID,
		"claim", []string{"US111A", "US111A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"US111A"}, record.ReferenceNumbers)
	require.Len(t, record.Analysis.ElementRows[0].Cells, 1)
}

func TestCombineRejectsEmptyReferences(t *testing.T) {
	f := newAggregatorFixture(t)

	_, err := f.agg.Combine(context.Background(), testScope, testSearchID, "claim", nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestCombineNamesMissingAnalyses(t *testing.T) {
	f := newAggregatorFixture(t)
	f.seedDeepAnalyzed(t, "US111A", deepResult(0.7, nil,
		citation.ElementAnalysis{ElementID: "e1", Relevance: 0.9}))

	// US222B has a shallow match but no deep analysis; US333C has nothing.
	m := shallowMatch("e1", 0, "US222B", 0.8)
	require.NoError(t, f.matches.SaveAll(context.Background(), testScope, []*citation.Match{m}))

	_, err := f.agg.Combine(context.Background(), testScope, testSearchID,
		"claim", []string{"US111A", "US222B", "US333C"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeIncompleteAnalysis))
	assert.Contains(t, err.Error(), "US222B")
	assert.Contains(t, err.Error(), "US333C")
	assert.NotContains(t, err.Error(), "US111A")

	// Nothing was persisted or announced.
	records, listErr := f.combined.ListBySearch(context.Background(), testScope, testSearchID)
	require.NoError(t, listErr)
	assert.Empty(t, records)
	assert.Empty(t, f.publisher.published())
}

func TestCombineIsImmutable(t *testing.T) {
	f := newAggregatorFixture(t)
	f.seedDeepAnalyzed(t, "US111A", deepResult(0.7, nil,
		citation.ElementAnalysis{ElementID: "e1", Relevance: 0.9}))

	first, err := f.agg.Combine(context.Background(), testScope, testSearchID, "claim", []string{"US111A"})
	require.NoError(t, err)
	second, err := f.agg.Combine(context.Background(), testScope, testSearchID, "claim", []string{"US111A"})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	records, err := f.combined.ListBySearch(context.Background(), testScope, testSearchID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Newest first.
	assert.Equal(t, second.ID, records[0].ID)
}

func TestCombineInvalidatesCachedList(t *testing.T) {
	f := newAggregatorFixture(t)
	f.seedDeepAnalyzed(t, "US111A", deepResult(0.7, nil,
		citation.ElementAnalysis{ElementID: "e1", Relevance: 0.9}))

	key := keyCombinedList(testScope, testSearchID)
	require.NoError(t, f.cache.Set(context.Background(), key, []string{"stale"}, time.Minute))

	_, err := f.agg.Combine(context.Background(), testScope, testSearchID, "claim", []string{"US111A"})
	require.NoError(t, err)

	_, ok := f.cache.TTLOf(key)
	assert.False(t, ok, "combine must invalidate the cached combined list")
}

//Personal.AI order the ending
