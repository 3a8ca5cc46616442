package domain

import "github.com/shopspring/decimal"

// DisplayRow is the per-asset view-model produced by joining a WatchlistItem
// with its MarketSnapshot. When no snapshot exists yet, price and change are
// zero and the sparkline is empty so downstream arithmetic stays total.
type DisplayRow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Symbol    string    `json:"symbol"`
	Icon      string    `json:"icon"`
	Price     float64   `json:"price"`
	Change24h float64   `json:"change24h"`
	Spark7D   []float64 `json:"spark7d"`
	Holdings  float64   `json:"holdings"`
}

// Slice is one asset's contribution to the portfolio allocation view.
// ColorIndex cycles through a fixed palette by row position.
type Slice struct {
	Label      string          `json:"label"`
	Value      decimal.Decimal `json:"value"`
	Percent    decimal.Decimal `json:"percent"`
	ColorIndex int             `json:"colorIndex"`
}
