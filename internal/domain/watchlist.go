package domain

// WatchlistItem is one tracked asset with the quantity the user holds.
// The ID is the stable provider identifier (e.g. "bitcoin") and is unique
// within a watchlist.
type WatchlistItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Symbol   string  `json:"symbol"`
	Icon     string  `json:"icon"`
	Holdings float64 `json:"holdings"`
}
