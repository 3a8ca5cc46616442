package dashboard

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/tokenfolio/dash/internal/domain"
)

// topSliceCount bounds the allocation view to the first rows in watchlist
// order. Rows beyond it are paginated but excluded from the pie aggregate.
const topSliceCount = 6

// paletteSize is the number of colors the allocation view cycles through.
const paletteSize = 6

// joinRows joins the watchlist against a snapshot set keyed by id. The
// result is always one row per watchlist item, in watchlist order; items
// without a snapshot get zero price, zero change and an empty sparkline.
func joinRows(items []domain.WatchlistItem, snapshots map[string]domain.MarketSnapshot) []domain.DisplayRow {
	return lo.Map(items, func(it domain.WatchlistItem, _ int) domain.DisplayRow {
		row := domain.DisplayRow{
			ID:       it.ID,
			Name:     it.Name,
			Symbol:   it.Symbol,
			Icon:     it.Icon,
			Holdings: it.Holdings,
		}
		if snap, ok := snapshots[it.ID]; ok {
			row.Price = snap.Price
			row.Change24h = lo.FromPtr(snap.Change24h)
			row.Spark7D = snap.Spark7D
		}
		return row
	})
}

// portfolioSlices builds allocation slices from the first topSliceCount rows.
// Each slice's percentage is its share of the top-N total; a zero total
// yields zero percentages rather than NaN.
func portfolioSlices(rows []domain.DisplayRow) []domain.Slice {
	top := rows
	if len(top) > topSliceCount {
		top = top[:topSliceCount]
	}

	slices := lo.Map(top, func(r domain.DisplayRow, i int) domain.Slice {
		return domain.Slice{
			Label:      fmt.Sprintf("%s (%s)", r.Name, r.Symbol),
			Value:      domain.RowValue(r.Price, r.Holdings),
			ColorIndex: i % paletteSize,
		}
	})

	total := sliceTotal(slices)
	for i := range slices {
		slices[i].Percent = domain.Share(slices[i].Value, total)
	}
	return slices
}

// sliceTotal sums slice values.
func sliceTotal(slices []domain.Slice) decimal.Decimal {
	return lo.Reduce(slices, func(acc decimal.Decimal, s domain.Slice, _ int) decimal.Decimal {
		return acc.Add(s.Value)
	}, decimal.Zero)
}

// snapshotsByID indexes a snapshot list by asset id, replacing the previous
// snapshot set wholesale.
func snapshotsByID(snaps []domain.MarketSnapshot) map[string]domain.MarketSnapshot {
	return lo.SliceToMap(snaps, func(s domain.MarketSnapshot) (string, domain.MarketSnapshot) {
		return s.ID, s
	})
}
