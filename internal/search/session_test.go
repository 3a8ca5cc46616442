package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tokenfolio/dash/internal/domain"
)

const testDebounce = 40 * time.Millisecond

type fakeGateway struct {
	mu          sync.Mutex
	trending    []domain.SearchResult
	trendingErr error
	searches    []string
	searchErr   error
	resultsFor  map[string][]domain.SearchResult
	blockQuery  string
	blockGate   chan struct{}
}

func (g *fakeGateway) Trending(_ context.Context) ([]domain.SearchResult, error) {
	return g.trending, g.trendingErr
}

func (g *fakeGateway) Search(_ context.Context, query string) ([]domain.SearchResult, error) {
	g.mu.Lock()
	g.searches = append(g.searches, query)
	gate := g.blockGate
	block := g.blockQuery == query
	err := g.searchErr
	results := g.resultsFor[query]
	g.mu.Unlock()

	if block && gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (g *fakeGateway) MarketsByIDs(_ context.Context, ids []string) ([]domain.MarketSnapshot, error) {
	snaps := make([]domain.MarketSnapshot, len(ids))
	for i, id := range ids {
		snaps[i] = domain.MarketSnapshot{ID: id, Name: id, Symbol: id}
	}
	return snaps, nil
}

func (g *fakeGateway) searchCalls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.searches))
	copy(out, g.searches)
	return out
}

type fakeAdder struct {
	mu    sync.Mutex
	added []domain.WatchlistItem
	err   error
}

func (a *fakeAdder) AddItems(_ context.Context, items []domain.WatchlistItem) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.added = append(a.added, items...)
	return nil
}

func TestOpenSeedsTrending(t *testing.T) {
	gw := &fakeGateway{trending: []domain.SearchResult{
		{ID: "solana", Name: "Solana", Symbol: "SOL"},
	}}
	wf := NewWorkflow(gw, &fakeAdder{}, testDebounce)

	s := wf.Open(context.Background())
	defer s.Close()

	results := s.Results()
	if len(results) != 1 || results[0].ID != "solana" {
		t.Errorf("results = %+v, want trending list", results)
	}
	if len(s.Selected()) != 0 {
		t.Errorf("selection = %v, want empty on open", s.Selected())
	}
}

func TestOpenTrendingFailureLeavesSessionUsable(t *testing.T) {
	gw := &fakeGateway{trendingErr: errors.New("boom")}
	wf := NewWorkflow(gw, &fakeAdder{}, testDebounce)

	s := wf.Open(context.Background())
	defer s.Close()

	if s.Err() == "" {
		t.Error("expected a user-visible message after trending failure")
	}
	if len(s.Results()) != 0 {
		t.Errorf("results = %+v, want empty", s.Results())
	}

	s.Toggle("bitcoin")
	if got := s.Selected(); len(got) != 1 {
		t.Errorf("selection after failure = %v, want [bitcoin]", got)
	}
}

func TestDebounceCoalescesKeystrokes(t *testing.T) {
	gw := &fakeGateway{resultsFor: map[string][]domain.SearchResult{
		"ETH": {{ID: "ethereum", Name: "Ethereum", Symbol: "ETH"}},
	}}
	wf := NewWorkflow(gw, &fakeAdder{}, testDebounce)

	s := wf.Open(context.Background())
	defer s.Close()

	for _, q := range []string{"E", "ET", "ETH"} {
		s.SetQuery(q)
		time.Sleep(testDebounce / 4)
	}
	time.Sleep(3 * testDebounce)

	calls := gw.searchCalls()
	if len(calls) != 1 {
		t.Fatalf("search fired %d times (%v), want exactly once", len(calls), calls)
	}
	if calls[0] != "ETH" {
		t.Errorf("search query = %q, want ETH (the last keystroke)", calls[0])
	}

	results := s.Results()
	if len(results) != 1 || results[0].ID != "ethereum" {
		t.Errorf("results = %+v", results)
	}
}

func TestCloseBeforeDebounceCancelsPendingSearch(t *testing.T) {
	gw := &fakeGateway{}
	wf := NewWorkflow(gw, &fakeAdder{}, testDebounce)

	s := wf.Open(context.Background())
	s.SetQuery("ETH")
	s.Close()

	time.Sleep(3 * testDebounce)

	if calls := gw.searchCalls(); len(calls) != 0 {
		t.Errorf("search fired %d times after close, want 0", len(calls))
	}
}

func TestEmptyQueryAfterDebounceLeavesResults(t *testing.T) {
	gw := &fakeGateway{trending: []domain.SearchResult{{ID: "solana"}}}
	wf := NewWorkflow(gw, &fakeAdder{}, testDebounce)

	s := wf.Open(context.Background())
	defer s.Close()

	s.SetQuery("   ")
	time.Sleep(3 * testDebounce)

	if calls := gw.searchCalls(); len(calls) != 0 {
		t.Errorf("search fired %d times for whitespace query, want 0", len(calls))
	}
	if results := s.Results(); len(results) != 1 || results[0].ID != "solana" {
		t.Errorf("results = %+v, want prior trending list untouched", results)
	}
}

func TestSupersededInFlightResultDropped(t *testing.T) {
	gate := make(chan struct{})
	gw := &fakeGateway{
		blockQuery: "old",
		blockGate:  gate,
		resultsFor: map[string][]domain.SearchResult{
			"old": {{ID: "stale"}},
			"new": {{ID: "fresh"}},
		},
	}
	wf := NewWorkflow(gw, &fakeAdder{}, time.Millisecond)

	s := wf.Open(context.Background())
	defer s.Close()

	s.SetQuery("old")
	for len(gw.searchCalls()) == 0 {
		time.Sleep(time.Millisecond)
	}

	// Newer input supersedes the blocked fetch.
	s.SetQuery("new")
	for len(gw.searchCalls()) < 2 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)

	// The stale response resolves last; it must not be applied.
	close(gate)
	time.Sleep(10 * time.Millisecond)

	results := s.Results()
	if len(results) != 1 || results[0].ID != "fresh" {
		t.Errorf("results = %+v, want only the newer query's results", results)
	}
}

func TestToggle(t *testing.T) {
	wf := NewWorkflow(&fakeGateway{}, &fakeAdder{}, testDebounce)
	s := wf.Open(context.Background())
	defer s.Close()

	s.Toggle("bitcoin")
	s.Toggle("ethereum")
	s.Toggle("bitcoin")

	got := s.Selected()
	if len(got) != 1 || got[0] != "ethereum" {
		t.Errorf("selected = %v, want [ethereum]", got)
	}
}

func TestCommitAddsSelectionAndCloses(t *testing.T) {
	adder := &fakeAdder{}
	wf := NewWorkflow(&fakeGateway{}, adder, testDebounce)

	s := wf.Open(context.Background())
	s.Toggle("bitcoin")
	s.Toggle("ethereum")

	if err := s.Commit(context.Background()); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if len(adder.added) != 2 {
		t.Fatalf("added %d items, want 2", len(adder.added))
	}
	for _, it := range adder.added {
		if it.Holdings != 0 {
			t.Errorf("%s holdings = %v, want 0", it.ID, it.Holdings)
		}
	}

	// The session is closed; further operations are dead.
	if err := s.Commit(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("second Commit = %v, want ErrClosed", err)
	}
	s.Toggle("solana")
	if len(s.Selected()) != 0 {
		t.Error("toggle on closed session mutated selection")
	}
}

func TestCommitFailureKeepsSessionOpen(t *testing.T) {
	adder := &fakeAdder{err: errors.New("persist failed")}
	wf := NewWorkflow(&fakeGateway{}, adder, testDebounce)

	s := wf.Open(context.Background())
	defer s.Close()
	s.Toggle("bitcoin")

	if err := s.Commit(context.Background()); err == nil {
		t.Fatal("expected commit error")
	}

	if got := s.Selected(); len(got) != 1 {
		t.Errorf("selection = %v after failed commit, want preserved", got)
	}
	if s.Err() == "" {
		t.Error("expected a user-visible message after failed commit")
	}
}

func TestCancelDoesNotMutateStore(t *testing.T) {
	adder := &fakeAdder{}
	wf := NewWorkflow(&fakeGateway{}, adder, testDebounce)

	s := wf.Open(context.Background())
	s.Toggle("bitcoin")
	s.Close()

	if len(adder.added) != 0 {
		t.Errorf("added %d items on cancel, want 0", len(adder.added))
	}
}
