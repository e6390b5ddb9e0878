package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"gelbeseiten-scraper/internal/scrapers/gelbeseiten"
)

// CSVSink truncates and rewrites Path on every export.
type CSVSink struct {
	Path string
}

func (s CSVSink) Export(ctx context.Context, listings []gelbeseiten.Listing) (err error) {
	_, end := startSpan(ctx, "CSVSink.Export", len(listings))
	defer func() { end(err) }()

	f, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	err = WriteCSV(f, listings)
	if err != nil {
		return fmt.Errorf("write csv %s: %w", s.Path, err)
	}
	return f.Close()
}

func WriteCSV(w io.Writer, listings []gelbeseiten.Listing) error {
	writer := csv.NewWriter(w)
	err := writer.Write(gelbeseiten.Columns)
	if err != nil {
		return err
	}
	for _, listing := range listings {
		err = writer.Write(listing.Row())
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCSV reads listings back from a file written by CSVSink. Columns are
// matched by header name.
func ReadCSV(path string) ([]gelbeseiten.Listing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("read csv %s: empty file", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}
	index, err := headerIndex(header)
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}

	var listings []gelbeseiten.Listing
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv %s: %w", path, err)
		}
		listing, err := rowToListing(index, row)
		if err != nil {
			return nil, fmt.Errorf("read csv %s: %w", path, err)
		}
		listings = append(listings, listing)
	}
	return listings, nil
}
