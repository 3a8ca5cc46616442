package watchlist

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/tokenfolio/dash/internal/domain"
)

// StorageKey is the fixed key under which the full watchlist is persisted.
const StorageKey = "tp_watchlist_v1"

// Repository defines durable storage for the watchlist. Load returns an
// empty list for missing or unparseable state, never an error for those.
type Repository interface {
	Load(ctx context.Context) ([]domain.WatchlistItem, error)
	Save(ctx context.Context, items []domain.WatchlistItem) error
}

// Store owns the authoritative ordered list of tracked assets. Every
// mutation persists the full list through the Repository and then notifies
// subscribers synchronously so dependents can re-derive.
type Store struct {
	mu    sync.Mutex
	repo  Repository
	items []domain.WatchlistItem
	subs  []func()
}

// NewStore creates a Store seeded from the repository's last persisted state.
func NewStore(ctx context.Context, repo Repository) (*Store, error) {
	items, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading watchlist: %w", err)
	}
	return &Store{repo: repo, items: items}, nil
}

// Subscribe registers fn to be called synchronously after every mutation.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Items returns an ordered snapshot copy of the watchlist.
func (s *Store) Items() []domain.WatchlistItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.WatchlistItem, len(s.items))
	copy(out, s.items)
	return out
}

// IDs returns the ids of all items in watchlist order.
func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Map(s.items, func(it domain.WatchlistItem, _ int) string { return it.ID })
}

// Len returns the number of tracked assets.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// AddItems inserts items at the front of the list, preserving their given
// relative order. Items whose id is already present are skipped; an existing
// entry is never overwritten by a re-add.
func (s *Store) AddItems(ctx context.Context, items []domain.WatchlistItem) error {
	s.mu.Lock()
	existing := lo.SliceToMap(s.items, func(it domain.WatchlistItem) (string, struct{}) {
		return it.ID, struct{}{}
	})
	fresh := lo.Filter(items, func(it domain.WatchlistItem, _ int) bool {
		if _, ok := existing[it.ID]; ok {
			return false
		}
		existing[it.ID] = struct{}{}
		return true
	})
	if len(fresh) == 0 {
		s.mu.Unlock()
		return nil
	}
	s.items = append(fresh, s.items...)
	return s.persistAndNotify(ctx)
}

// UpdateHoldings replaces the holdings of the matching item. Absent ids are
// a no-op.
func (s *Store) UpdateHoldings(ctx context.Context, id string, holdings float64) error {
	s.mu.Lock()
	idx := lo.IndexOf(s.idsLocked(), id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	s.items[idx].Holdings = holdings
	return s.persistAndNotify(ctx)
}

// Remove deletes the matching item. Absent ids are a no-op. No UI path
// triggers removal today but the capability is part of the store contract.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	before := len(s.items)
	s.items = lo.Filter(s.items, func(it domain.WatchlistItem, _ int) bool {
		return it.ID != id
	})
	if len(s.items) == before {
		s.mu.Unlock()
		return nil
	}
	return s.persistAndNotify(ctx)
}

// idsLocked returns ids without locking; callers must hold s.mu.
func (s *Store) idsLocked() []string {
	return lo.Map(s.items, func(it domain.WatchlistItem, _ int) string { return it.ID })
}

// persistAndNotify persists the current list and fires subscribers. Called
// with s.mu held; the lock is released before subscribers run so they can
// read the store. The in-memory update survives a persist failure.
func (s *Store) persistAndNotify(ctx context.Context) error {
	items := make([]domain.WatchlistItem, len(s.items))
	copy(items, s.items)
	subs := s.subs
	s.mu.Unlock()

	err := s.repo.Save(ctx, items)
	for _, fn := range subs {
		fn()
	}
	if err != nil {
		return fmt.Errorf("persisting watchlist: %w", err)
	}
	return nil
}
