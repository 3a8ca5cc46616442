// Package search implements the search-and-add workflow: a modal session
// that discovers new tokens (trending by default, debounced text search) and
// commits a multi-selection into the watchlist.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/tokenfolio/dash/internal/domain"
)

// DefaultDebounce is the quiescence delay before a query change fires a
// search call.
const DefaultDebounce = 250 * time.Millisecond

// ErrClosed is returned for operations on a closed session.
var ErrClosed = errors.New("search session closed")

// Gateway is the provider surface the workflow consumes.
type Gateway interface {
	Trending(ctx context.Context) ([]domain.SearchResult, error)
	Search(ctx context.Context, query string) ([]domain.SearchResult, error)
	MarketsByIDs(ctx context.Context, ids []string) ([]domain.MarketSnapshot, error)
}

// Adder is the watchlist mutation the commit step needs.
type Adder interface {
	AddItems(ctx context.Context, items []domain.WatchlistItem) error
}

// Workflow opens search sessions against a gateway and a watchlist store.
type Workflow struct {
	gateway  Gateway
	store    Adder
	debounce time.Duration
}

// NewWorkflow creates a Workflow. A non-positive debounce falls back to
// DefaultDebounce.
func NewWorkflow(gateway Gateway, store Adder, debounce time.Duration) *Workflow {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Workflow{gateway: gateway, store: store, debounce: debounce}
}

// Session is one open search-and-add interaction. All debounce timers and
// in-flight fetches are scoped to it: closing the session, or a newer query,
// supersedes them, and superseded results are never applied.
type Session struct {
	wf     *Workflow
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	gen      uint64
	timer    *time.Timer
	query    string
	results  []domain.SearchResult
	selected map[string]struct{}
	errMsg   string
}

// Open starts a new session: selection reset, results seeded with the
// trending list. A trending failure leaves the results empty and records a
// message; the session stays usable.
func (w *Workflow) Open(ctx context.Context) *Session {
	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		wf:       w,
		ctx:      sctx,
		cancel:   cancel,
		selected: map[string]struct{}{},
	}

	trending, err := w.gateway.Trending(sctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s
	}
	if err != nil {
		s.errMsg = fmt.Sprintf("loading trending tokens: %v", err)
		return s
	}
	s.results = trending
	return s
}

// SetQuery records a query text change and schedules a debounced search. A
// further change within the debounce window supersedes the pending one; an
// empty or whitespace-only query schedules nothing and leaves the current
// results untouched.
func (s *Session) SetQuery(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.query = text
	s.gen++
	gen := s.gen

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return
	}

	s.timer = time.AfterFunc(s.wf.debounce, func() {
		s.runSearch(gen, trimmed)
	})
}

// runSearch fires the debounced search if gen is still current, and applies
// the result only if it is still current afterward.
func (s *Session) runSearch(gen uint64, query string) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	results, err := s.wf.gateway.Search(s.ctx, query)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen {
		// Superseded while in flight; drop the response.
		return
	}
	if err != nil {
		s.errMsg = fmt.Sprintf("searching tokens: %v", err)
		return
	}
	s.results = results
	s.errMsg = ""
}

// Toggle flips local selection membership for id. No network effect.
func (s *Session) Toggle(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
	} else {
		s.selected[id] = struct{}{}
	}
}

// Selected returns the selected ids in deterministic order.
func (s *Session) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := lo.Keys(s.selected)
	sort.Strings(ids)
	return ids
}

// Results returns the current result list.
func (s *Session) Results() []domain.SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SearchResult, len(s.results))
	copy(out, s.results)
	return out
}

// Err returns the session's current user-visible error message, if any.
func (s *Session) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Query returns the current query text.
func (s *Session) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Commit fetches full market data for the selected ids, adds them to the
// watchlist with zero holdings and closes the session. On fetch or store
// failure the session stays open with its state intact and a message set.
func (s *Session) Commit(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	ids := lo.Keys(s.selected)
	s.mu.Unlock()
	sort.Strings(ids)

	markets, err := s.wf.gateway.MarketsByIDs(ctx, ids)
	if err != nil {
		s.setErr(fmt.Sprintf("adding tokens: %v", err))
		return fmt.Errorf("fetching selected tokens: %w", err)
	}

	items := lo.Map(markets, func(m domain.MarketSnapshot, _ int) domain.WatchlistItem {
		return domain.WatchlistItem{
			ID:     m.ID,
			Name:   m.Name,
			Symbol: m.Symbol,
			Icon:   m.Icon,
		}
	})
	if err := s.wf.store.AddItems(ctx, items); err != nil {
		s.setErr(fmt.Sprintf("adding tokens: %v", err))
		return fmt.Errorf("adding selected tokens: %w", err)
	}

	s.Close()
	return nil
}

// Close cancels the session. Pending debounce timers are stopped, in-flight
// fetches are cancelled and all session state is cleared; any result that
// resolves afterward is dropped. Closing twice is harmless.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.cancel()
	s.query = ""
	s.results = nil
	s.selected = map[string]struct{}{}
	s.errMsg = ""
}

func (s *Session) setErr(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.errMsg = msg
	}
}
