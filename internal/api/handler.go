package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/tokenfolio/dash/internal/coingecko"
	"github.com/tokenfolio/dash/internal/dashboard"
	"github.com/tokenfolio/dash/internal/domain"
	"github.com/tokenfolio/dash/internal/search"
	"github.com/tokenfolio/dash/internal/watchlist"
)

// SearchGateway is the token discovery surface exposed over HTTP.
type SearchGateway interface {
	Search(ctx context.Context, query string) ([]domain.SearchResult, error)
	Trending(ctx context.Context) ([]domain.SearchResult, error)
}

// Handler provides HTTP endpoints for the dashboard API. At most one search
// session is open at a time, mirroring the single add-token modal.
type Handler struct {
	dash    *dashboard.Service
	store   *watchlist.Store
	gateway SearchGateway
	search  *search.Workflow

	mu      sync.Mutex
	session *search.Session
}

// NewHandler creates a new API handler.
func NewHandler(dash *dashboard.Service, store *watchlist.Store, gateway SearchGateway, workflow *search.Workflow) *Handler {
	return &Handler{dash: dash, store: store, gateway: gateway, search: workflow}
}

// GetDashboard handles GET /api/v1/dashboard. An optional page parameter
// moves the visible page before rendering; out-of-range pages clamp.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	if p := r.URL.Query().Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid page number")
			return
		}
		h.dash.SetPage(n)
	}
	writeJSON(w, http.StatusOK, h.dash.View())
}

// RefreshNow handles POST /api/v1/refresh.
func (h *Handler) RefreshNow(w http.ResponseWriter, r *http.Request) {
	if err := h.dash.Refresh(r.Context()); err != nil {
		slog.Error("manual refresh failed", "error", err)
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.dash.View())
}

// GetWatchlist handles GET /api/v1/watchlist.
func (h *Handler) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Items())
}

// AddTokens handles POST /api/v1/watchlist. The body carries provider ids;
// each is added with zero holdings, already-tracked ids are skipped.
func (h *Handler) AddTokens(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids is required")
		return
	}

	if err := h.dash.AddTokens(r.Context(), req.IDs); err != nil {
		slog.Error("failed to add tokens", "error", err)
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.store.Items())
}

// UpdateHoldings handles PUT /api/v1/watchlist/{id}/holdings.
func (h *Handler) UpdateHoldings(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Holdings float64 `json:"holdings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if math.IsNaN(req.Holdings) || math.IsInf(req.Holdings, 0) {
		writeError(w, http.StatusBadRequest, "holdings must be finite")
		return
	}

	if err := h.store.UpdateHoldings(r.Context(), id, req.Holdings); err != nil {
		slog.Error("failed to update holdings", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveToken handles DELETE /api/v1/watchlist/{id}.
func (h *Handler) RemoveToken(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.Remove(r.Context(), id); err != nil {
		slog.Error("failed to remove token", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SearchTokens handles GET /api/v1/search. An empty or whitespace-only
// query returns an empty list without calling the provider.
func (h *Handler) SearchTokens(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeJSON(w, http.StatusOK, []domain.SearchResult{})
		return
	}

	results, err := h.gateway.Search(r.Context(), query)
	if err != nil {
		slog.Error("token search failed", "query", query, "error", err)
		writeUpstreamError(w, err)
		return
	}
	if results == nil {
		results = []domain.SearchResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

// GetTrending handles GET /api/v1/trending.
func (h *Handler) GetTrending(w http.ResponseWriter, r *http.Request) {
	results, err := h.gateway.Trending(r.Context())
	if err != nil {
		slog.Error("trending fetch failed", "error", err)
		writeUpstreamError(w, err)
		return
	}
	if results == nil {
		results = []domain.SearchResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

// writeUpstreamError maps provider failures to 502 and everything else to 500.
func writeUpstreamError(w http.ResponseWriter, err error) {
	var apiErr *coingecko.APIError
	if errors.As(err, &apiErr) {
		writeError(w, http.StatusBadGateway, "market data provider error")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
