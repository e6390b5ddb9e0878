package gelbeseiten

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"gelbeseiten-scraper/internal/components/telemetry"
	"gelbeseiten-scraper/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_parser_parse       = "parser.parse"
	report_parser_parse_entry = "parser.parse-entry"
)

const (
	selectorEntry       = `article[class*="mod-Treffer"]`
	selectorName        = "h2.mod-Treffer__name"
	selectorDetailLink  = `a[href*="/gsbiz/"]`
	selectorLogo        = "img.mod-Treffer__logo"
	selectorAddress     = "address.mod-AdresseKompakt"
	selectorAddressText = "div.mod-AdresseKompakt__adress-text"
	selectorCityLine    = "span.mod-AdresseKompakt__adress__ort"
	selectorPhoneBox    = "div.mod-TelefonnummerKompakt"
	selectorPhone       = "a.mod-TelefonnummerKompakt__phoneNumber"
	selectorWebsiteBox  = "div.mod-WebseiteKompakt"
	selectorWebsite     = "span.mod-WebseiteKompakt__text"
	selectorChatButton  = `button[id*="mod-Chat__button"]`
	selectorRating      = `span[class*="mod-BewertungKompakt__number"]`
	selectorReviews     = `span[class*="mod-BewertungKompakt__text"]`
	selectorSpecialties = `p[class*="mod-Treffer--besteBranche"]`
	selectorDescription = "div.mod-Treffer__freitext"
)

// Parse extracts every listing in a page of search results. Entries that
// fail to extract or that have no name are skipped, the rest of the page is
// still returned. An empty result means there are no more results.
func Parse(ctx context.Context, page Page, base *url.URL, tel telemetry.API) []Listing {
	_, span := tracer.Start(ctx, "Parse")
	defer span.End()

	if strings.TrimSpace(page.HTML) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse page html")
		tel.ReportBroken(report_parser_parse, fmt.Errorf("parse html: %w", err))
		return nil
	}

	entries := doc.Find(selectorEntry)
	tel.ReportDebug("entries found on page", entries.Length())

	var listings []Listing
	entries.Each(func(i int, entry *goquery.Selection) {
		listing, err := parseEntry(entry, base)
		if err != nil {
			tel.ReportWarning(report_parser_parse_entry, err, i)
			return
		}
		if listing.Name == "" {
			tel.ReportDebug("skipping entry without a name", i)
			return
		}
		listings = append(listings, listing)
	})

	span.SetAttributes(
		attribute.Int("entries", entries.Length()),
		attribute.Int("listings", len(listings)),
	)
	return listings
}

func parseEntry(entry *goquery.Selection, base *url.URL) (listing Listing, err error) {
	defer func() {
		r := recover()
		if r != nil {
			err = fmt.Errorf("extract entry: %v", r)
		}
	}()

	listing.Name = htmlutil.Text(entry.Find(selectorName))
	listing.DetailUrl = ResolveLink(htmlutil.Attr(entry.Find(selectorDetailLink), "href"), base)
	listing.LogoUrl = extractLogo(entry.Find(selectorLogo), base)
	listing.Address, listing.PostalCode, listing.City = extractAddress(entry)
	listing.Phone = htmlutil.Text(entry.Find(selectorPhoneBox).Find(selectorPhone))

	encodedWebsite := htmlutil.Attr(
		entry.Find(selectorWebsiteBox).Find(selectorWebsite),
		"data-webseitelink",
	)
	listing.Website, _ = DecodeWebsite(encodedWebsite)

	chatParameters := htmlutil.Attr(entry.Find(selectorChatButton), "data-parameters")
	listing.Email, _ = ProbeString(chatParameters, chatEmailPath...)

	listing.Rating = htmlutil.Text(entry.Find(selectorRating))
	listing.ReviewCount = ReviewCount(htmlutil.Text(entry.Find(selectorReviews)))
	listing.Specialties = htmlutil.Text(entry.Find(selectorSpecialties))
	listing.Description = htmlutil.Text(entry.Find(selectorDescription))

	return listing, nil
}

func extractLogo(img *goquery.Selection, base *url.URL) string {
	if img.Length() == 0 {
		return ""
	}
	logo, ok := NormalizeLogo(htmlutil.Attr(img, "src"), base)
	if ok {
		return logo
	}
	// lazy loaded logos keep a placeholder in src until scrolled into view
	logo, _ = NormalizeLogo(htmlutil.Attr(img, "data-src"), base)
	return logo
}

func extractAddress(entry *goquery.Selection) (street, postalCode, city string) {
	text := entry.Find(selectorAddress).First().Find(selectorAddressText).First()
	if text.Length() == 0 {
		return "", "", ""
	}
	fullText := htmlutil.Text(text)
	cityLine := htmlutil.Text(text.Find(selectorCityLine))
	if cityLine != "" {
		postalCode, city = SplitCityLine(cityLine)
	}
	street = StreetLine(fullText, cityLine)
	return street, postalCode, city
}
