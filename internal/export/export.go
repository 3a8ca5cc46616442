package export

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tokenfolio/dash/internal/domain"
)

// Dashboard provides the derived state the export reads.
type Dashboard interface {
	Rows() []domain.DisplayRow
	Slices() []domain.Slice
	TotalValue() decimal.Decimal
	LastUpdated() time.Time
}

// Report is one exportable snapshot of the dashboard.
type Report struct {
	Rows        []domain.DisplayRow
	Slices      []domain.Slice
	TotalValue  decimal.Decimal
	GeneratedAt time.Time
}

// ReportWriter writes a report to a spreadsheet destination.
type ReportWriter interface {
	Write(ctx context.Context, r Report) error
}

// Service assembles dashboard reports and delegates writing to a
// ReportWriter. Implements worker.AfterRefreshHook.
type Service struct {
	dash   Dashboard
	writer ReportWriter
}

// NewService creates a new export Service.
func NewService(dash Dashboard, writer ReportWriter) *Service {
	return &Service{dash: dash, writer: writer}
}

// Export writes the current dashboard state.
func (s *Service) Export(ctx context.Context) error {
	r := Report{
		Rows:        s.dash.Rows(),
		Slices:      s.dash.Slices(),
		TotalValue:  s.dash.TotalValue(),
		GeneratedAt: time.Now().UTC(),
	}
	if err := s.writer.Write(ctx, r); err != nil {
		return fmt.Errorf("writing dashboard report: %w", err)
	}
	return nil
}

// buildWatchlist builds the WATCHLIST sheet data.
// Columns: Token | Symbol | Price | 24h % | Holdings | Value
func buildWatchlist(rows []domain.DisplayRow) [][]any {
	data := make([][]any, 0, len(rows)+1)
	data = append(data, []any{"Token", "Symbol", "Price", "24h %", "Holdings", "Value"})

	for _, r := range rows {
		data = append(data, []any{
			r.Name,
			r.Symbol,
			r.Price,
			r.Change24h,
			r.Holdings,
			toFloat(domain.RowValue(r.Price, r.Holdings)),
		})
	}
	return data
}

// buildAllocation builds the ALLOCATION sheet data.
// Columns: Asset | Value | Share %  with a trailing Total row.
func buildAllocation(slices []domain.Slice, total decimal.Decimal) [][]any {
	data := make([][]any, 0, len(slices)+2)
	data = append(data, []any{"Asset", "Value", "Share %"})

	for _, s := range slices {
		data = append(data, []any{s.Label, toFloat(s.Value), toFloat(s.Percent)})
	}
	data = append(data, []any{"Total", toFloat(total), nil})
	return data
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
