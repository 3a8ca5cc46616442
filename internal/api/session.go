package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tokenfolio/dash/internal/domain"
	"github.com/tokenfolio/dash/internal/search"
)

// sessionState is the JSON rendering of the open search session.
type sessionState struct {
	Query    string                `json:"query"`
	Results  []domain.SearchResult `json:"results"`
	Selected []string              `json:"selected"`
	Error    string                `json:"error,omitempty"`
}

func snapshotSession(s *search.Session) sessionState {
	state := sessionState{
		Query:    s.Query(),
		Results:  s.Results(),
		Selected: s.Selected(),
		Error:    s.Err(),
	}
	if state.Results == nil {
		state.Results = []domain.SearchResult{}
	}
	if state.Selected == nil {
		state.Selected = []string{}
	}
	return state
}

func (h *Handler) currentSession() *search.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}

// OpenSearchSession handles POST /api/v1/search/session. Opening replaces
// any previous session; results are seeded with the trending list.
func (h *Handler) OpenSearchSession(w http.ResponseWriter, r *http.Request) {
	// The session outlives this request: debounced searches resolve after the
	// opening call has returned, so it cannot hang off the request context.
	s := h.search.Open(context.Background())

	h.mu.Lock()
	if h.session != nil {
		h.session.Close()
	}
	h.session = s
	h.mu.Unlock()

	writeJSON(w, http.StatusCreated, snapshotSession(s))
}

// GetSearchSession handles GET /api/v1/search/session. Clients poll this for
// results once a debounced search has had time to fire.
func (h *Handler) GetSearchSession(w http.ResponseWriter, r *http.Request) {
	s := h.currentSession()
	if s == nil {
		writeError(w, http.StatusNotFound, "no open search session")
		return
	}
	writeJSON(w, http.StatusOK, snapshotSession(s))
}

// SetSearchQuery handles PUT /api/v1/search/session/query. The search itself
// fires after the debounce delay; the returned state still shows the previous
// results.
func (h *Handler) SetSearchQuery(w http.ResponseWriter, r *http.Request) {
	s := h.currentSession()
	if s == nil {
		writeError(w, http.StatusNotFound, "no open search session")
		return
	}

	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.SetQuery(req.Query)
	writeJSON(w, http.StatusOK, snapshotSession(s))
}

// ToggleSelection handles POST /api/v1/search/session/selection/{id}.
func (h *Handler) ToggleSelection(w http.ResponseWriter, r *http.Request) {
	s := h.currentSession()
	if s == nil {
		writeError(w, http.StatusNotFound, "no open search session")
		return
	}

	s.Toggle(r.PathValue("id"))
	writeJSON(w, http.StatusOK, snapshotSession(s))
}

// CommitSearchSession handles POST /api/v1/search/session/commit: the
// selected tokens join the watchlist with zero holdings and the session ends.
// On failure the session stays open so the selection is not lost.
func (h *Handler) CommitSearchSession(w http.ResponseWriter, r *http.Request) {
	s := h.currentSession()
	if s == nil {
		writeError(w, http.StatusNotFound, "no open search session")
		return
	}

	if err := s.Commit(r.Context()); err != nil {
		if errors.Is(err, search.ErrClosed) {
			writeError(w, http.StatusNotFound, "no open search session")
			return
		}
		slog.Error("search session commit failed", "error", err)
		writeUpstreamError(w, err)
		return
	}

	h.mu.Lock()
	if h.session == s {
		h.session = nil
	}
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, h.store.Items())
}

// CloseSearchSession handles DELETE /api/v1/search/session.
func (h *Handler) CloseSearchSession(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.session != nil {
		h.session.Close()
		h.session = nil
	}
	h.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}
