package domain

// MarketSnapshot is a point-in-time market read for one asset. Snapshots are
// fetched fresh on every refresh and replace the previous set wholesale.
type MarketSnapshot struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Symbol    string    `json:"symbol"`
	Icon      string    `json:"icon"`
	Price     float64   `json:"price"`
	Change24h *float64  `json:"change24h"`
	Spark7D   []float64 `json:"spark7d"`
}

// SearchResult is one entry from a token search or the trending list.
type SearchResult struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Thumb  string `json:"thumb"`
}
