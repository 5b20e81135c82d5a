package citation

import (
	"context"
	"sync"
	"time"

	"github.com/turtacn/CiteScope/internal/config"
	"github.com/turtacn/CiteScope/internal/domain/claim"
	"github.com/turtacn/CiteScope/internal/domain/reference"
	"github.com/turtacn/CiteScope/internal/infrastructure/analysis"
	redisinfra "github.com/turtacn/CiteScope/internal/infrastructure/database/redis"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteScope/internal/infrastructure/search/opensearch"
	"github.com/turtacn/CiteScope/pkg/errors"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

var testScope = common.Scope{TenantID: "t1", ProjectID: "p1", UserID: "u1"}

const testSearchID = common.SearchHistoryID("sh-1")

func testPipelineCfg() config.PipelineConfig {
	return config.PipelineConfig{
		JobTimeout:         5 * time.Second,
		MatchConcurrency:   2,
		EscalationLimit:    2,
		MinEscalationScore: 0.5,
		TopMatchesCacheTTL: time.Minute,
		CombinedCacheTTL:   time.Minute,
		AwaitPollInterval:  5 * time.Millisecond,
	}
}

func testClaim() *claim.Claim {
	return &claim.Claim{
		ID:     "c1",
		Number: 1,
		Text:   "1. A widget comprising a frame and a fastener.",
		Elements: []claim.Element{
			{ID: "e1", Ordinal: 0, Text: "a frame"},
			{ID: "e2", Ordinal: 1, Text: "a fastener", ParsedText: "a fastener coupling the frame"},
		},
	}
}

func testDocument() *reference.Document {
	return &reference.Document{
		Number: "US111A",
		Title:  "Widget assembly",
		Sections: []reference.Section{
			{Name: "abstract", Text: "A widget with a rigid frame."},
			{Name: "claims", Text: "a frame mounted on a base"},
			{Name: "description", Text: "the fastener couples the frame to the base"},
		},
	}
}

type fakeClaimSource struct {
	claim *claim.Claim
	err   error
}

func (s *fakeClaimSource) GetClaim(_ context.Context, _ common.Scope, _ common.SearchHistoryID) (*claim.Claim, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.claim, nil
}

type fakeRefSource struct {
	docs map[string]*reference.Document
}

func newFakeRefSource(docs ...*reference.Document) *fakeRefSource {
	s := &fakeRefSource{docs: make(map[string]*reference.Document)}
	for _, d := range docs {
		s.docs[d.Number] = d
	}
	return s
}

func (s *fakeRefSource) GetDocument(_ context.Context, _ common.Scope, number string) (*reference.Document, error) {
	doc, ok := s.docs[number]
	if !ok {
		return nil, reference.Unavailable(number, nil)
	}
	return doc, nil
}

type fakeSections struct {
	hits []opensearch.SectionHit
	err  error
}

func (s *fakeSections) Search(_ context.Context, _ string, _ string, _ int) ([]opensearch.SectionHit, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}

type fakeProvider struct {
	mu         sync.Mutex
	scoreFn    func(analysis.ScoreRequest) (*analysis.ScoreResult, error)
	deepFn     func(analysis.DeepRequest) (*analysis.DeepResult, error)
	scoreCalls int
	deepCalls  int
}

func (p *fakeProvider) ScoreMatch(_ context.Context, req analysis.ScoreRequest) (*analysis.ScoreResult, error) {
	p.mu.Lock()
	p.scoreCalls++
	fn := p.scoreFn
	p.mu.Unlock()
	if fn == nil {
		return &analysis.ScoreResult{Score: 0.8, Reasoning: "disclosed"}, nil
	}
	return fn(req)
}

func (p *fakeProvider) AnalyzeReference(_ context.Context, req analysis.DeepRequest) (*analysis.DeepResult, error) {
	p.mu.Lock()
	p.deepCalls++
	fn := p.deepFn
	p.mu.Unlock()
	if fn == nil {
		elems := make([]analysis.DeepElementResult, 0, len(req.Elements))
		for _, e := range req.Elements {
			elems = append(elems, analysis.DeepElementResult{
				ElementID: e.ID,
				Relevance: 0.9,
			})
		}
		return &analysis.DeepResult{Elements: elems}, nil
	}
	return fn(req)
}

func (p *fakeProvider) calls() (score, deep int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scoreCalls, p.deepCalls
}

type publishedEvent struct {
	Topic     string
	EventType string
	Key       string
	Payload   interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic, eventType, key string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{Topic: topic, EventType: eventType, Key: key, Payload: payload})
	return nil
}

func (p *recordingPublisher) published() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publishedEvent, len(p.events))
	copy(out, p.events)
	return out
}

type fakeMutex struct {
	acquired bool
}

func (m *fakeMutex) Lock(_ context.Context) error {
	if !m.acquired {
		return errors.New(errors.ErrCodeConflict, "lock held elsewhere")
	}
	return nil
}
func (m *fakeMutex) TryLock(_ context.Context) (bool, error)                  { return m.acquired, nil }
func (m *fakeMutex) Unlock(_ context.Context) error                          { return nil }
func (m *fakeMutex) Extend(_ context.Context, _ time.Duration) (bool, error) { return m.acquired, nil }

type fakeLockFactory struct {
	acquired bool
}

func (f *fakeLockFactory) NewMutex(_ string, _ ...redisinfra.LockOption) redisinfra.DistributedLock {
	return &fakeMutex{acquired: f.acquired}
}

func nopLog() logging.Logger { return logging.NewNopLogger() }

//Personal.AI order the ending
