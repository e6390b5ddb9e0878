package gelbeseiten

import "fmt"

// Listing is one business entry from a page of search results.
// Every field is plain text and may be empty, except Name which is
// always set on listings returned by Parse.
type Listing struct {
	Name        string
	Address     string
	PostalCode  string
	City        string
	Phone       string
	Email       string
	Website     string
	LogoUrl     string
	Rating      string
	ReviewCount string
	Specialties string
	Description string
	DetailUrl   string
}

// Columns is the fixed column order used by every tabular export.
var Columns = []string{
	"name",
	"address",
	"postal_code",
	"city",
	"phone",
	"email",
	"website",
	"logo_url",
	"rating",
	"review_count",
	"specialties",
	"description",
	"detail_url",
}

// Row returns the listing's fields in the order of Columns.
func (l Listing) Row() []string {
	return []string{
		l.Name,
		l.Address,
		l.PostalCode,
		l.City,
		l.Phone,
		l.Email,
		l.Website,
		l.LogoUrl,
		l.Rating,
		l.ReviewCount,
		l.Specialties,
		l.Description,
		l.DetailUrl,
	}
}

// ListingFromRow is the inverse of Listing.Row. Missing trailing cells
// are treated as empty.
func ListingFromRow(row []string) (Listing, error) {
	if len(row) > len(Columns) {
		return Listing{}, fmt.Errorf("row has %d cells, expected at most %d", len(row), len(Columns))
	}
	cells := make([]string, len(Columns))
	copy(cells, row)
	return Listing{
		Name:        cells[0],
		Address:     cells[1],
		PostalCode:  cells[2],
		City:        cells[3],
		Phone:       cells[4],
		Email:       cells[5],
		Website:     cells[6],
		LogoUrl:     cells[7],
		Rating:      cells[8],
		ReviewCount: cells[9],
		Specialties: cells[10],
		Description: cells[11],
		DetailUrl:   cells[12],
	}, nil
}

// Complete is true when a listing carries every contact channel
// that is hard to get: email, website and logo.
func (l Listing) Complete() bool {
	return l.Email != "" && l.Website != "" && l.LogoUrl != ""
}

// Page is one response from the search endpoint.
type Page struct {
	// HTML is the embedded markup containing the listing fragments.
	HTML string
	// Total is the number of hits the directory claims to have, 0 if unknown.
	Total int
}
