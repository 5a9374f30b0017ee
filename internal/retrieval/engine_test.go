package retrieval

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"dkb/internal/errors"
	"dkb/internal/logging"
)

// mockSource is a test double for the Source interface
type mockSource struct {
	name      SourceName
	available bool
	results   []Result
	err       error
	delay     time.Duration

	mu         sync.Mutex
	queryCalls int
	lastLimit  int
}

func newMockSource(name SourceName, results ...Result) *mockSource {
	return &mockSource{name: name, available: true, results: results}
}

func (m *mockSource) Name() SourceName { return m.name }

func (m *mockSource) IsAvailable() bool { return m.available }

func (m *mockSource) Query(ctx context.Context, text string, limit int) ([]Result, error) {
	m.mu.Lock()
	m.queryCalls++
	m.lastLimit = limit
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func hit(docID string, source SourceName) Result {
	return Result{DocID: docID, Content: "content " + docID, Source: source}
}

func newTestEngine(sources ...Source) *Engine {
	return NewEngine(DefaultConfig(), logging.Nop(), sources...)
}

func TestQueryFusesAllSources(t *testing.T) {
	semantic := newMockSource(SourceSemantic, hit("x", SourceSemantic), hit("y", SourceSemantic))
	lexical := newMockSource(SourceLexical, hit("y", SourceLexical), hit("z", SourceLexical))
	engine := newTestEngine(semantic, lexical)

	resp, err := engine.Query(context.Background(), "anything", Options{Limit: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if len(resp.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(resp.Results))
	}
	if resp.Results[0].DocID != "y" {
		t.Errorf("top doc = %s, want y (agreement boost)", resp.Results[0].DocID)
	}
	if len(resp.Reports) != 2 {
		t.Errorf("got %d reports, want 2", len(resp.Reports))
	}
}

func TestQueryOversamplesByFetchMultiplier(t *testing.T) {
	src := newMockSource(SourceLexical, hit("a", SourceLexical))
	engine := newTestEngine(src)

	if _, err := engine.Query(context.Background(), "q", Options{Limit: 5}); err != nil {
		t.Fatalf("Query: %v", err)
	}

	src.mu.Lock()
	defer src.mu.Unlock()
	if src.lastLimit != 10 {
		t.Errorf("source asked for %d, want limit*2 = 10", src.lastLimit)
	}
}

func TestQuerySourceFailureIsNotFatal(t *testing.T) {
	good := newMockSource(SourceSemantic, hit("a", SourceSemantic))
	bad := newMockSource(SourceLexical)
	bad.err = fmt.Errorf("index corrupted")
	engine := newTestEngine(good, bad)

	resp, err := engine.Query(context.Background(), "q", Options{Limit: 10})
	if err != nil {
		t.Fatalf("one failing source should not abort the query: %v", err)
	}

	if len(resp.Results) != 1 || resp.Results[0].DocID != "a" {
		t.Errorf("results = %+v", resp.Results)
	}

	var failed *SourceReport
	for i := range resp.Reports {
		if resp.Reports[i].Source == SourceLexical {
			failed = &resp.Reports[i]
		}
	}
	if failed == nil || failed.Status != StatusFailed || failed.Error == "" {
		t.Errorf("lexical report = %+v, want failed with error text", failed)
	}
}

func TestQueryUnavailableSourceSkipped(t *testing.T) {
	avail := newMockSource(SourceSemantic, hit("a", SourceSemantic))
	missing := newMockSource(SourcePersona)
	missing.available = false
	engine := newTestEngine(avail, missing)

	resp, err := engine.Query(context.Background(), "q", Options{Limit: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	missing.mu.Lock()
	calls := missing.queryCalls
	missing.mu.Unlock()
	if calls != 0 {
		t.Error("unavailable source should not be queried")
	}

	for _, r := range resp.Reports {
		if r.Source == SourcePersona && r.Status != StatusUnavailable {
			t.Errorf("persona status = %s, want unavailable", r.Status)
		}
	}
}

func TestQueryEmptyIsDistinctFromUnavailable(t *testing.T) {
	empty := newMockSource(SourceBelief) // available, returns nothing
	engine := newTestEngine(empty)

	resp, err := engine.Query(context.Background(), "q", Options{Limit: 10})
	if err != nil {
		t.Fatalf("an available-but-empty source is a successful query: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("results = %+v, want none", resp.Results)
	}
	if resp.Reports[0].Status != StatusEmpty {
		t.Errorf("status = %s, want empty", resp.Reports[0].Status)
	}
}

func TestQueryAllSourcesDownIsError(t *testing.T) {
	down := newMockSource(SourceSemantic)
	down.available = false
	broken := newMockSource(SourceLexical)
	broken.err = fmt.Errorf("db locked")
	engine := newTestEngine(down, broken)

	_, err := engine.Query(context.Background(), "q", Options{Limit: 10})
	if err == nil {
		t.Fatal("expected no-sources error")
	}
	if !errors.IsCode(err, errors.NoSourcesAvailable) {
		t.Errorf("error code = %s, want NO_SOURCES_AVAILABLE", errors.CodeOf(err))
	}
}

func TestQuerySourceFilterAblation(t *testing.T) {
	semantic := newMockSource(SourceSemantic, hit("a", SourceSemantic))
	lexical := newMockSource(SourceLexical, hit("b", SourceLexical))
	engine := newTestEngine(semantic, lexical)

	resp, err := engine.Query(context.Background(), "q", Options{
		Limit:        10,
		SourceFilter: []SourceName{SourceSemantic},
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	for _, r := range resp.Results {
		for _, s := range r.Sources {
			if s != SourceSemantic {
				t.Errorf("filtered query leaked source %s", s)
			}
		}
	}
	lexical.mu.Lock()
	defer lexical.mu.Unlock()
	if lexical.queryCalls != 0 {
		t.Error("filtered-out source should not be queried")
	}
}

func TestQueryFilterMatchingNothingIsError(t *testing.T) {
	engine := newTestEngine(newMockSource(SourceSemantic, hit("a", SourceSemantic)))

	_, err := engine.Query(context.Background(), "q", Options{
		Limit:        10,
		SourceFilter: []SourceName{SourceTemporal},
	})
	if !errors.IsCode(err, errors.NoSourcesAvailable) {
		t.Errorf("unmatched filter should yield NO_SOURCES_AVAILABLE, got %v", err)
	}
}

func TestQueryDeterministicAcrossCompletionOrder(t *testing.T) {
	// Slow source first, fast source second: completion order is reversed
	// on most runs, output must not change.
	slow := newMockSource(SourceSemantic, hit("x", SourceSemantic), hit("y", SourceSemantic))
	slow.delay = 20 * time.Millisecond
	fast := newMockSource(SourceLexical, hit("y", SourceLexical), hit("z", SourceLexical))
	engine := newTestEngine(slow, fast)

	var first []string
	for i := 0; i < 5; i++ {
		resp, err := engine.Query(context.Background(), "q", Options{Limit: 10})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		ids := make([]string, len(resp.Results))
		for j, r := range resp.Results {
			ids[j] = r.DocID
		}
		if first == nil {
			first = ids
			continue
		}
		for j := range ids {
			if ids[j] != first[j] {
				t.Fatalf("run %d order %v differs from %v", i, ids, first)
			}
		}
	}
}

func TestQueryPerSourceTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TimeoutPerSource = 10 * time.Millisecond

	hung := newMockSource(SourceSemantic, hit("never", SourceSemantic))
	hung.delay = 500 * time.Millisecond
	quick := newMockSource(SourceLexical, hit("b", SourceLexical))
	engine := NewEngine(cfg, logging.Nop(), hung, quick)

	start := time.Now()
	resp, err := engine.Query(context.Background(), "q", Options{Limit: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("timeout not applied, query took %v", elapsed)
	}

	if len(resp.Results) != 1 || resp.Results[0].DocID != "b" {
		t.Errorf("results = %+v, want only the quick source's doc", resp.Results)
	}
	for _, r := range resp.Reports {
		if r.Source == SourceSemantic && r.Status != StatusFailed {
			t.Errorf("timed-out source status = %s, want failed", r.Status)
		}
	}
}

func TestAvailableSources(t *testing.T) {
	up := newMockSource(SourceSemantic, hit("a", SourceSemantic))
	down := newMockSource(SourceTemporal)
	down.available = false
	engine := newTestEngine(up, down)

	avail := engine.AvailableSources()
	if len(avail) != 1 || avail[0] != SourceSemantic {
		t.Errorf("AvailableSources = %v", avail)
	}
	if names := engine.SourceNames(); len(names) != 2 {
		t.Errorf("SourceNames = %v", names)
	}
}

func TestConcurrentQueriesIndependent(t *testing.T) {
	engine := newTestEngine(
		newMockSource(SourceSemantic, hit("a", SourceSemantic)),
		newMockSource(SourceLexical, hit("b", SourceLexical)),
	)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := engine.Query(context.Background(), "q", Options{Limit: 10})
			if err != nil {
				t.Errorf("Query: %v", err)
				return
			}
			if len(resp.Results) != 2 {
				t.Errorf("got %d results", len(resp.Results))
			}
		}()
	}
	wg.Wait()
}
