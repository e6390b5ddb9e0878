package export

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gelbeseiten-scraper/internal/components/chrono"
	"gelbeseiten-scraper/internal/scrapers/gelbeseiten"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

// driverFor picks libsql for remote databases and modernc sqlite for
// everything else.
func driverFor(dsn string) string {
	for _, prefix := range []string{"libsql://", "http://", "https://", "ws://", "wss://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "libsql"
		}
	}
	return "sqlite"
}

// OpenDB opens dsn and applies Schema. dsn is either a local file path,
// ":memory:" or a libsql url (with ?authToken=... if needed).
func OpenDB(dsn string) (*sql.DB, error) {
	driver := driverFor(dsn)
	if driver == "sqlite" && dsn != ":memory:" {
		err := os.MkdirAll(filepath.Dir(dsn), 0777)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, wrapOpenDB(err)
	}
	if driver == "sqlite" {
		// see this stackoverflow post for information on why the following
		// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
		db.SetMaxOpenConns(1)
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, wrapOpenDB(err)
		}
	}

	_, err = db.Exec(Schema)
	if err != nil {
		db.Close()
		return nil, wrapOpenDB(fmt.Errorf("apply schema: %w", err))
	}
	return db, nil
}

// SQLSink keeps the listings of one search term in the listings table.
// Every export replaces that term's rows in a single transaction.
type SQLSink struct {
	DB         *sql.DB
	SearchTerm string
	Clock      chrono.API
}

func NewSQLSink(db *sql.DB, searchTerm string) *SQLSink {
	clock, err := chrono.NewStandardImpl()
	if err != nil {
		// no tzdata available, scraped_at falls back to local time
		clock = chrono.StandardImpl{}
	}
	return &SQLSink{DB: db, SearchTerm: searchTerm, Clock: clock}
}

var insertListing = fmt.Sprintf(
	"insert into listings(search_term, position, scraped_at, %s) values (?, ?, ?%s)",
	strings.Join(gelbeseiten.Columns, ", "),
	strings.Repeat(", ?", len(gelbeseiten.Columns)),
)

func (s *SQLSink) Export(ctx context.Context, listings []gelbeseiten.Listing) (err error) {
	ctx, end := startSpan(ctx, "SQLSink.Export", len(listings))
	defer func() { end(err) }()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sql export: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "delete from listings where search_term = ?", s.SearchTerm)
	if err != nil {
		return fmt.Errorf("sql export: clear: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertListing)
	if err != nil {
		return fmt.Errorf("sql export: prepare: %w", err)
	}
	defer stmt.Close()

	scrapedAt := s.Clock.Now().Format(time.RFC3339)
	for i, listing := range listings {
		args := []any{s.SearchTerm, i, scrapedAt}
		for _, value := range listing.Row() {
			args = append(args, value)
		}
		_, err = stmt.ExecContext(ctx, args...)
		if err != nil {
			return fmt.Errorf("sql export: insert %d: %w", i, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("sql export: commit: %w", err)
	}
	return nil
}

// ReadSQL returns the listings stored for searchTerm in their original
// order.
func ReadSQL(ctx context.Context, db *sql.DB, searchTerm string) ([]gelbeseiten.Listing, error) {
	rows, err := db.QueryContext(
		ctx,
		fmt.Sprintf(
			"select %s from listings where search_term = ? order by position",
			strings.Join(gelbeseiten.Columns, ", "),
		),
		searchTerm,
	)
	if err != nil {
		return nil, fmt.Errorf("read sql: %w", err)
	}
	defer rows.Close()

	var listings []gelbeseiten.Listing
	for rows.Next() {
		values := make([]string, len(gelbeseiten.Columns))
		dest := make([]any, len(values))
		for i := range values {
			dest[i] = &values[i]
		}
		err = rows.Scan(dest...)
		if err != nil {
			return nil, fmt.Errorf("read sql: %w", err)
		}
		listing, err := gelbeseiten.ListingFromRow(values)
		if err != nil {
			return nil, fmt.Errorf("read sql: %w", err)
		}
		listings = append(listings, listing)
	}
	return listings, rows.Err()
}
