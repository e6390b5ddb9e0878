// Package export writes scraped listings to flat tabular outputs: CSV,
// XLSX and a sqlite/libsql table. Every sink rewrites the full set of
// listings on each call, so checkpoints and the final export are the
// same operation.
package export

import (
	"context"
	"errors"
	"fmt"

	"gelbeseiten-scraper/internal/scrapers/gelbeseiten"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("export")

var (
	_ gelbeseiten.Sink = CSVSink{}
	_ gelbeseiten.Sink = XLSXSink{}
	_ gelbeseiten.Sink = (*SQLSink)(nil)
	_ gelbeseiten.Sink = MultiSink{}
)

// MultiSink exports to every sink in order. A failing sink does not stop
// the others, all errors are joined.
type MultiSink []gelbeseiten.Sink

func (m MultiSink) Export(ctx context.Context, listings []gelbeseiten.Listing) error {
	var errlist []error
	for _, sink := range m {
		err := sink.Export(ctx, listings)
		if err != nil {
			errlist = append(errlist, err)
		}
	}
	return errors.Join(errlist...)
}

// headerIndex maps each entry of gelbeseiten.Columns to its position in
// header, -1 when missing.
func headerIndex(header []string) ([]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		positions[name] = i
	}

	index := make([]int, len(gelbeseiten.Columns))
	found := 0
	for i, column := range gelbeseiten.Columns {
		pos, ok := positions[column]
		if !ok {
			index[i] = -1
			continue
		}
		index[i] = pos
		found++
	}
	if found == 0 {
		return nil, fmt.Errorf("header has none of the expected columns: %v", header)
	}
	return index, nil
}

// rowToListing picks the cells of row in column order, short rows are
// treated as having empty trailing cells.
func rowToListing(index []int, row []string) (gelbeseiten.Listing, error) {
	aligned := make([]string, len(index))
	for i, pos := range index {
		if pos >= 0 && pos < len(row) {
			aligned[i] = row[pos]
		}
	}
	return gelbeseiten.ListingFromRow(aligned)
}

func startSpan(ctx context.Context, name string, count int) (context.Context, func(err error)) {
	ctx, span := tracer.Start(ctx, name)
	span.SetAttributes(attribute.Int("listings", count))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
