package api

import (
	"net/http"
	"time"
)

// NewServer creates an HTTP server with all routes configured.
func NewServer(port string, handler *Handler) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/dashboard", handler.GetDashboard)
	mux.HandleFunc("POST /api/v1/refresh", handler.RefreshNow)
	mux.HandleFunc("GET /api/v1/watchlist", handler.GetWatchlist)
	mux.HandleFunc("POST /api/v1/watchlist", handler.AddTokens)
	mux.HandleFunc("PUT /api/v1/watchlist/{id}/holdings", handler.UpdateHoldings)
	mux.HandleFunc("DELETE /api/v1/watchlist/{id}", handler.RemoveToken)
	mux.HandleFunc("GET /api/v1/search", handler.SearchTokens)
	mux.HandleFunc("GET /api/v1/trending", handler.GetTrending)
	mux.HandleFunc("POST /api/v1/search/session", handler.OpenSearchSession)
	mux.HandleFunc("GET /api/v1/search/session", handler.GetSearchSession)
	mux.HandleFunc("PUT /api/v1/search/session/query", handler.SetSearchQuery)
	mux.HandleFunc("POST /api/v1/search/session/selection/{id}", handler.ToggleSelection)
	mux.HandleFunc("POST /api/v1/search/session/commit", handler.CommitSearchSession)
	mux.HandleFunc("DELETE /api/v1/search/session", handler.CloseSearchSession)

	return &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
