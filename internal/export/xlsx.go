package export

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	watchlistSheet  = "WATCHLIST"
	allocationSheet = "ALLOCATION"
)

// XLSXWriter implements ReportWriter by writing a workbook to disk.
type XLSXWriter struct {
	path string
}

// NewXLSXWriter creates an XLSXWriter targeting path.
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

// Write builds a fresh workbook with WATCHLIST and ALLOCATION sheets and
// saves it, replacing any previous file.
func (w *XLSXWriter) Write(_ context.Context, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheet(f, watchlistSheet, buildWatchlist(r.Rows)); err != nil {
		return err
	}
	if err := writeSheet(f, allocationSheet, buildAllocation(r.Slices, r.TotalValue)); err != nil {
		return err
	}

	// Drop the default sheet excelize creates.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, name string, data [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("creating sheet %s: %w", name, err)
	}
	for i, row := range data {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("locating row %d on %s: %w", i+1, name, err)
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("writing row %d on %s: %w", i+1, name, err)
		}
	}
	return nil
}
