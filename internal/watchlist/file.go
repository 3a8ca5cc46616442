package watchlist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tokenfolio/dash/internal/domain"
)

// FileRepository implements Repository with a single JSON file. Used for
// DB-less runs; the file plays the role the browser's local storage did.
type FileRepository struct {
	path string
}

// NewFileRepository creates a watchlist repository backed by path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

func (r *FileRepository) Load(_ context.Context) ([]domain.WatchlistItem, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading watchlist file: %w", err)
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		slog.Warn("discarding unparseable watchlist file", "path", r.path, "error", err)
		return nil, nil
	}
	return state.Items, nil
}

func (r *FileRepository) Save(_ context.Context, items []domain.WatchlistItem) error {
	data, err := json.MarshalIndent(persistedState{Items: items}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding watchlist state: %w", err)
	}

	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating watchlist directory: %w", err)
		}
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing watchlist file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replacing watchlist file: %w", err)
	}
	return nil
}
