package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/tokenfolio/dash/internal/domain"
	"github.com/tokenfolio/dash/internal/watchlist"
)

// pageSize is the fixed number of rows per watchlist page.
const pageSize = 10

// seedHoldings are the preset quantities used when seeding an empty
// watchlist with the top markets on first run.
var seedHoldings = []float64{0.05, 2.5, 2.5, 0.05, 2.5, 15000}

// Gateway is the market-data provider surface the dashboard consumes.
type Gateway interface {
	MarketsByIDs(ctx context.Context, ids []string) ([]domain.MarketSnapshot, error)
	TopMarkets(ctx context.Context, page, perPage int) ([]domain.MarketSnapshot, error)
}

// Service joins the watchlist against volatile market snapshots and owns all
// derived display state: rows, pagination window and allocation slices.
//
// Watchlist mutations re-derive rows synchronously from the last snapshot
// set and queue a market-data refresh; the refresh result re-derives again
// with fresh prices. Overlapping refreshes are sequenced by generation, only
// the newest started refresh may publish its snapshot set.
type Service struct {
	store   *watchlist.Store
	gateway Gateway

	mu          sync.Mutex
	snapshots   map[string]domain.MarketSnapshot
	rows        []domain.DisplayRow
	page        int
	inFlight    int
	lastErr     string
	lastUpdated time.Time
	startedGen  uint64
	appliedGen  uint64

	changed chan struct{}
}

// View is a consistent read of all derived display state.
type View struct {
	Rows        []domain.DisplayRow `json:"rows"`
	Slices      []domain.Slice      `json:"slices"`
	TotalValue  decimal.Decimal     `json:"totalValue"`
	Page        int                 `json:"page"`
	TotalPages  int                 `json:"totalPages"`
	WindowStart int                 `json:"windowStart"`
	WindowEnd   int                 `json:"windowEnd"`
	RowCount    int                 `json:"rowCount"`
	Loading     bool                `json:"loading"`
	Error       string              `json:"error,omitempty"`
	LastUpdated time.Time           `json:"lastUpdated"`
}

// NewService creates the derivation engine on top of store and gateway and
// subscribes to store changes.
func NewService(store *watchlist.Store, gateway Gateway) *Service {
	s := &Service{
		store:     store,
		gateway:   gateway,
		snapshots: map[string]domain.MarketSnapshot{},
		page:      1,
		changed:   make(chan struct{}, 1),
	}
	s.mu.Lock()
	s.recomputeLocked()
	s.mu.Unlock()

	store.Subscribe(s.onStoreChange)
	return s
}

// onStoreChange re-derives rows from the current snapshot set and queues a
// refresh. The buffered channel coalesces bursts of mutations; a trailing
// refresh always runs.
func (s *Service) onStoreChange() {
	s.mu.Lock()
	s.recomputeLocked()
	s.mu.Unlock()

	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// Run services queued refreshes until ctx is cancelled. Mutating the store
// without a running loop is fine; refreshes then only happen explicitly.
func (s *Service) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.changed:
			if err := s.Refresh(ctx); err != nil {
				slog.Error("watchlist refresh failed", "error", err)
			}
		}
	}
}

// Refresh fetches market data for the watchlist ids captured at call time
// and publishes the result. On failure the previous rows stay untouched and
// the error becomes part of the view. An empty watchlist yields an empty
// snapshot set without a network call.
func (s *Service) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.startedGen++
	gen := s.startedGen
	s.inFlight++
	s.mu.Unlock()

	ids := s.store.IDs()

	var snaps []domain.MarketSnapshot
	var err error
	if len(ids) > 0 {
		snaps, err = s.gateway.MarketsByIDs(ctx, ids)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--

	// A slower response from an older refresh must not clobber newer data,
	// and a stale failure must not surface an error over newer data either.
	if err != nil {
		if gen > s.appliedGen {
			s.lastErr = err.Error()
		}
		return fmt.Errorf("refreshing market data: %w", err)
	}

	if gen <= s.appliedGen {
		return nil
	}
	s.appliedGen = gen
	s.snapshots = snapshotsByID(snaps)
	s.recomputeLocked()
	s.lastUpdated = time.Now()
	s.lastErr = ""
	return nil
}

// recomputeLocked rebuilds rows from the store and the current snapshot set.
// A changed row count resets the page to 1; an unchanged count leaves the
// page where it is. Callers must hold s.mu.
func (s *Service) recomputeLocked() {
	rows := joinRows(s.store.Items(), s.snapshots)
	if len(rows) != len(s.rows) {
		s.page = 1
	}
	s.rows = rows
}

// SeedDefaults populates an empty watchlist with the top markets by cap,
// using preset holdings so the dashboard is not empty on first run. A
// non-empty watchlist is left alone.
func (s *Service) SeedDefaults(ctx context.Context) error {
	if s.store.Len() > 0 {
		return nil
	}

	markets, err := s.gateway.TopMarkets(ctx, 1, len(seedHoldings))
	if err != nil {
		return fmt.Errorf("fetching seed markets: %w", err)
	}

	items := lo.Map(markets, func(m domain.MarketSnapshot, i int) domain.WatchlistItem {
		holdings := 0.0
		if i < len(seedHoldings) {
			holdings = seedHoldings[i]
		}
		return marketToItem(m, holdings)
	})
	return s.store.AddItems(ctx, items)
}

// AddTokens fetches market data for the given ids and adds them to the
// watchlist with zero holdings. Already-tracked ids are skipped by the store.
func (s *Service) AddTokens(ctx context.Context, ids []string) error {
	markets, err := s.gateway.MarketsByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("fetching tokens to add: %w", err)
	}
	items := lo.Map(markets, func(m domain.MarketSnapshot, _ int) domain.WatchlistItem {
		return marketToItem(m, 0)
	})
	return s.store.AddItems(ctx, items)
}

func marketToItem(m domain.MarketSnapshot, holdings float64) domain.WatchlistItem {
	return domain.WatchlistItem{
		ID:       m.ID,
		Name:     m.Name,
		Symbol:   m.Symbol,
		Icon:     m.Icon,
		Holdings: holdings,
	}
}

// Rows returns a copy of all display rows in watchlist order.
func (s *Service) Rows() []domain.DisplayRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.DisplayRow, len(s.rows))
	copy(out, s.rows)
	return out
}

// Slices returns the allocation slices for the current top rows.
func (s *Service) Slices() []domain.Slice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return portfolioSlices(s.rows)
}

// TotalValue returns the portfolio total, the sum over exactly the top
// allocation slices.
func (s *Service) TotalValue() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sliceTotal(portfolioSlices(s.rows))
}

// Page returns the current page number.
func (s *Service) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// TotalPages returns the page count, at least 1 even for an empty list.
func (s *Service) TotalPages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalPagesLocked()
}

func (s *Service) totalPagesLocked() int {
	return max(1, (len(s.rows)+pageSize-1)/pageSize)
}

// SetPage moves the visible page, clamping into the valid range.
func (s *Service) SetPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = min(max(1, page), s.totalPagesLocked())
}

// LastUpdated returns the time of the last successful refresh.
func (s *Service) LastUpdated() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUpdated
}

// View assembles a consistent snapshot of the dashboard: the current page's
// rows, the allocation slices, totals and the result-window figures.
func (s *Service) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	totalPages := s.totalPagesLocked()
	page := min(s.page, totalPages)

	start := (page - 1) * pageSize
	end := min(start+pageSize, len(s.rows))

	pageRows := make([]domain.DisplayRow, end-start)
	copy(pageRows, s.rows[start:end])

	slices := portfolioSlices(s.rows)

	v := View{
		Rows:        pageRows,
		Slices:      slices,
		TotalValue:  sliceTotal(slices),
		Page:        page,
		TotalPages:  totalPages,
		RowCount:    len(s.rows),
		Loading:     s.inFlight > 0,
		Error:       s.lastErr,
		LastUpdated: s.lastUpdated,
	}
	if len(s.rows) > 0 {
		v.WindowStart = start + 1
		v.WindowEnd = end
	}
	return v
}
