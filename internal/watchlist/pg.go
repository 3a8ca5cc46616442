package watchlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tokenfolio/dash/internal/domain"
)

// persistedState is the JSON shape stored under the storage key.
type persistedState struct {
	Items []domain.WatchlistItem `json:"items"`
}

// PgRepository implements Repository with PostgreSQL. The full watchlist is
// stored as a single jsonb blob keyed by StorageKey.
type PgRepository struct {
	pool *pgxpool.Pool
	key  string
}

// NewPgRepository creates a new PostgreSQL watchlist repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool, key: StorageKey}
}

func (r *PgRepository) Load(ctx context.Context) ([]domain.WatchlistItem, error) {
	var data []byte
	err := r.pool.QueryRow(ctx,
		`SELECT data FROM watchlist_state WHERE key = $1`, r.key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading watchlist state: %w", err)
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		slog.Warn("discarding unparseable watchlist state", "key", r.key, "error", err)
		return nil, nil
	}
	return state.Items, nil
}

func (r *PgRepository) Save(ctx context.Context, items []domain.WatchlistItem) error {
	data, err := json.Marshal(persistedState{Items: items})
	if err != nil {
		return fmt.Errorf("encoding watchlist state: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO watchlist_state (key, data, updated_at)
		 VALUES ($1, $2::jsonb, NOW())
		 ON CONFLICT (key) DO UPDATE SET data = $2::jsonb, updated_at = NOW()`,
		r.key, data)
	if err != nil {
		return fmt.Errorf("saving watchlist state: %w", err)
	}
	return nil
}
