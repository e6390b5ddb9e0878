package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gelbeseiten-scraper/internal/scrapers/gelbeseiten"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func sampleListings(n int) []gelbeseiten.Listing {
	listings := make([]gelbeseiten.Listing, n)
	for i := range listings {
		listings[i] = gelbeseiten.Listing{
			Name:       fmt.Sprintf("Kanzlei %d, \"Müller\" & Söhne", i),
			Address:    fmt.Sprintf("Hauptstr. %d", i),
			PostalCode: "10115",
			City:       "Berlin",
			Phone:      "030 123456",
			Website:    fmt.Sprintf("https://kanzlei-%d.de", i),
			Rating:     "4,5",
			// multiline values must survive quoting
			Description: "Zeile eins\nZeile zwei",
		}
		if i%2 == 0 {
			listings[i].Email = fmt.Sprintf("info@kanzlei-%d.de", i)
		}
		// trailing empty detail url tests xlsx row padding
		if i%3 != 0 {
			listings[i].DetailUrl = fmt.Sprintf("https://www.gelbeseiten.de/gsbiz/%d", i)
		}
	}
	return listings
}

func TestCSVRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 25} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.csv")
			listings := sampleListings(n)

			require.NoError(t, CSVSink{Path: path}.Export(context.Background(), listings))

			back, err := ReadCSV(path)
			require.NoError(t, err)
			if diff := cmp.Diff(listings, back, cmpEmpty); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// cmpEmpty treats nil and empty slices as equal.
var cmpEmpty = cmp.FilterValues(func(x, y []gelbeseiten.Listing) bool {
	return len(x) == 0 && len(y) == 0
}, cmp.Ignore())

func TestCSVHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, CSVSink{Path: path}.Export(context.Background(), sampleListings(1)))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	firstLine := strings.SplitN(string(contents), "\n", 2)[0]
	require.Equal(t,
		"name,address,postal_code,city,phone,email,website,logo_url,rating,review_count,specialties,description,detail_url",
		firstLine,
	)
}

func TestCSVTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	sink := CSVSink{Path: path}
	require.NoError(t, sink.Export(context.Background(), sampleListings(10)))
	require.NoError(t, sink.Export(context.Background(), sampleListings(3)))

	back, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, back, 3)
}

func TestReadCSVReorderedColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(path, []byte("city,name,extra\nBerlin,Kanzlei A,x\nHamburg,Kanzlei B\n"), 0644))

	back, err := ReadCSV(path)
	require.NoError(t, err)
	require.Equal(t, []gelbeseiten.Listing{
		{Name: "Kanzlei A", City: "Berlin"},
		{Name: "Kanzlei B", City: "Hamburg"},
	}, back)
}

func TestReadCSVErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadCSV(filepath.Join(dir, "missing.csv"))
	require.ErrorIs(t, err, os.ErrNotExist)

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	_, err = ReadCSV(empty)
	require.Error(t, err)

	unrelated := filepath.Join(dir, "unrelated.csv")
	require.NoError(t, os.WriteFile(unrelated, []byte("a,b\n1,2\n"), 0644))
	_, err = ReadCSV(unrelated)
	require.Error(t, err)
}

func TestXLSXRoundTrip(t *testing.T) {
	for _, n := range []int{1, 25} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.xlsx")
			listings := sampleListings(n)

			require.NoError(t, XLSXSink{Path: path}.Export(context.Background(), listings))

			back, err := ReadXLSX(path)
			require.NoError(t, err)
			if diff := cmp.Diff(listings, back); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

type fixedClock struct{}

func (fixedClock) Now() time.Time {
	return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
}

func (fixedClock) Sleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func TestSQLRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := OpenDB(filepath.Join(t.TempDir(), "nested", "out.db"))
	require.NoError(t, err)
	defer db.Close()

	sink := &SQLSink{DB: db, SearchTerm: "steuerberater", Clock: fixedClock{}}
	other := &SQLSink{DB: db, SearchTerm: "zahnarzt", Clock: fixedClock{}}

	require.NoError(t, sink.Export(ctx, sampleListings(12)))
	require.NoError(t, other.Export(ctx, sampleListings(2)))
	// a checkpoint followed by the final export replaces the rows
	require.NoError(t, sink.Export(ctx, sampleListings(20)))

	back, err := ReadSQL(ctx, db, "steuerberater")
	require.NoError(t, err)
	if diff := cmp.Diff(sampleListings(20), back); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	back, err = ReadSQL(ctx, db, "zahnarzt")
	require.NoError(t, err)
	require.Len(t, back, 2)

	var scrapedAt string
	require.NoError(t, db.QueryRowContext(ctx, "select scraped_at from listings limit 1").Scan(&scrapedAt))
	require.Equal(t, "2026-10-16T12:00:00Z", scrapedAt)
}

func TestNewSQLSink(t *testing.T) {
	ctx := context.Background()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, NewSQLSink(db, "steuerberater").Export(ctx, sampleListings(2)))

	var scrapedAt string
	require.NoError(t, db.QueryRowContext(ctx, "select scraped_at from listings where position = 1").Scan(&scrapedAt))
	_, err = time.Parse(time.RFC3339, scrapedAt)
	require.NoError(t, err)
}

func TestOpenDBReapplySchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")
	db, err := OpenDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = OpenDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestDriverFor(t *testing.T) {
	testCases := []struct {
		dsn    string
		driver string
	}{
		{"out.db", "sqlite"},
		{":memory:", "sqlite"},
		{"/tmp/x/out.db", "sqlite"},
		{"libsql://db-org.turso.io?authToken=abc", "libsql"},
		{"http://127.0.0.1:8080", "libsql"},
		{"https://db.example.com", "libsql"},
	}
	for _, test := range testCases {
		require.Equal(t, test.driver, driverFor(test.dsn), test.dsn)
	}
}

type failingSink struct {
	calls *int
}

func (s failingSink) Export(ctx context.Context, listings []gelbeseiten.Listing) error {
	*s.calls++
	return errors.New("boom")
}

func TestMultiSink(t *testing.T) {
	dir := t.TempDir()
	calls := 0
	csvPath := filepath.Join(dir, "out.csv")
	xlsxPath := filepath.Join(dir, "out.xlsx")

	sink := MultiSink{
		failingSink{calls: &calls},
		CSVSink{Path: csvPath},
		XLSXSink{Path: xlsxPath},
	}
	err := sink.Export(context.Background(), sampleListings(4))
	require.ErrorContains(t, err, "boom")
	require.Equal(t, 1, calls)

	fromCsv, err := ReadCSV(csvPath)
	require.NoError(t, err)
	require.Len(t, fromCsv, 4)

	fromXlsx, err := ReadXLSX(xlsxPath)
	require.NoError(t, err)
	require.Len(t, fromXlsx, 4)

	require.NoError(t, MultiSink{}.Export(context.Background(), nil))
}
