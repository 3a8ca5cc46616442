package dashboard

import (
	"context"
	"math"
	"strconv"
	"sync"

	"github.com/tokenfolio/dash/internal/watchlist"
)

// Editor manages the transient per-row holdings edit state. At most one row
// is in editing state at a time; starting an edit on another row discards
// the previous draft.
type Editor struct {
	mu        sync.Mutex
	store     *watchlist.Store
	editingID string
	draft     string
}

// NewEditor creates an Editor committing into store.
func NewEditor(store *watchlist.Store) *Editor {
	return &Editor{store: store}
}

// Start puts the given row into editing state with its current holdings as
// the draft, discarding any unsaved draft on another row.
func (e *Editor) Start(id string, currentHoldings float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.editingID = id
	e.draft = strconv.FormatFloat(currentHoldings, 'f', -1, 64)
}

// SetDraft replaces the draft text for the row being edited.
func (e *Editor) SetDraft(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editingID == "" {
		return
	}
	e.draft = text
}

// Editing reports which row, if any, is in editing state.
func (e *Editor) Editing() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editingID, e.editingID != ""
}

// Draft returns the current draft text.
func (e *Editor) Draft() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

// Save parses the draft and commits it as the row's new holdings. A draft
// that does not parse to a finite number is rejected silently: the row stays
// in editing state and holdings are unchanged. That silence is deliberate,
// matching the edit policy rather than surfacing a validation error.
// The returned bool reports whether the edit was committed.
func (e *Editor) Save(ctx context.Context) (bool, error) {
	e.mu.Lock()
	id := e.editingID
	draft := e.draft
	e.mu.Unlock()

	if id == "" {
		return false, nil
	}

	value, err := strconv.ParseFloat(draft, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return false, nil
	}

	if err := e.store.UpdateHoldings(ctx, id, value); err != nil {
		return false, err
	}

	e.mu.Lock()
	if e.editingID == id {
		e.editingID = ""
		e.draft = ""
	}
	e.mu.Unlock()
	return true, nil
}
