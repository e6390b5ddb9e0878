package export

import (
	"context"
	"fmt"

	"gelbeseiten-scraper/internal/scrapers/gelbeseiten"

	"github.com/xuri/excelize/v2"
)

const DefaultSheet = "Listings"

// XLSXSink writes a single sheet workbook, replacing Path on every export.
type XLSXSink struct {
	Path string
	// Sheet defaults to DefaultSheet.
	Sheet string
}

func (s XLSXSink) sheet() string {
	if s.Sheet == "" {
		return DefaultSheet
	}
	return s.Sheet
}

func (s XLSXSink) Export(ctx context.Context, listings []gelbeseiten.Listing) (err error) {
	_, end := startSpan(ctx, "XLSXSink.Export", len(listings))
	defer func() { end(err) }()

	f := excelize.NewFile()
	defer f.Close()

	sheet := s.sheet()
	err = f.SetSheetName(f.GetSheetName(0), sheet)
	if err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}

	err = writeRow(f, sheet, 1, gelbeseiten.Columns)
	if err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}
	for i, listing := range listings {
		err = writeRow(f, sheet, i+2, listing.Row())
		if err != nil {
			return fmt.Errorf("xlsx row %d: %w", i+2, err)
		}
	}

	for i := 1; i <= len(gelbeseiten.Columns); i++ {
		col, _ := excelize.ColumnNumberToName(i)
		_ = f.SetColWidth(sheet, col, col, 32)
	}
	err = f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
	if err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}

	err = f.SaveAs(s.Path)
	if err != nil {
		return fmt.Errorf("save xlsx %s: %w", s.Path, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

// ReadXLSX reads listings back from the first sheet of a workbook written
// by XLSXSink.
func ReadXLSX(path string) ([]gelbeseiten.Listing, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx %s: %w", path, err)
	}
	defer f.Close()

	// GetRows drops trailing empty cells, rowToListing pads them back
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read xlsx %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read xlsx %s: empty sheet", path)
	}
	index, err := headerIndex(rows[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx %s: %w", path, err)
	}

	var listings []gelbeseiten.Listing
	for _, row := range rows[1:] {
		listing, err := rowToListing(index, row)
		if err != nil {
			return nil, fmt.Errorf("read xlsx %s: %w", path, err)
		}
		listings = append(listings, listing)
	}
	return listings, nil
}
