package gelbeseiten

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"gelbeseiten-scraper/internal/components/telemetry"
	"gelbeseiten-scraper/internal/components/telemetry/telemetrytest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	_ "embed"
)

//go:embed testdata/page.html
var pageFixture string

func testBaseUrl(t testing.TB) *url.URL {
	base, err := url.Parse(DefaultBaseUrl)
	if err != nil {
		t.Fatal(err)
	}
	return base
}

func TestParseFixture(t *testing.T) {
	listings := Parse(context.Background(), Page{HTML: pageFixture}, testBaseUrl(t), telemetry.SlogAPI{})

	expected := []Listing{
		{
			Name:        "Kanzlei Muster & Partner",
			Address:     "Jungfernstieg 7",
			PostalCode:  "20354",
			City:        "Hamburg",
			Phone:       "040 12 34 56",
			Email:       "info@kanzlei-muster.de",
			Website:     "https://www.kanzlei-muster.de",
			LogoUrl:     "https://img.gelbeseiten.de/logos/kanzlei-muster.png",
			Rating:      "4,8",
			ReviewCount: "122",
			Specialties: "Steuerberater",
			Description: "Ihre Kanzlei für Steuerberatung und Buchhaltung.",
			DetailUrl:   "https://www.gelbeseiten.de/gsbiz/6a1f0c1e-kanzlei-muster",
		},
		{
			Name:       "Steuerbüro Nord",
			PostalCode: "Kiel",
			LogoUrl:    "https://www.gelbeseiten.de/logos/steuer-nord.jpg",
			DetailUrl:  "https://www.gelbeseiten.de/gsbiz/7b2e1d2f-steuer-nord",
		},
		{
			Name: "Beratung Süd",
		},
	}

	if diff := cmp.Diff(expected, listings); diff != "" {
		t.Fatalf("listings mismatch (-want +got):\n%s", diff)
	}
}

func TestParseInvariants(t *testing.T) {
	listings := Parse(context.Background(), Page{HTML: pageFixture}, testBaseUrl(t), telemetry.SlogAPI{})
	require.NotEmpty(t, listings)

	for _, listing := range listings {
		require.NotEmpty(t, listing.Name)
		if listing.Website != "" {
			require.True(t, hasHttpScheme(listing.Website), listing.Website)
		}
		require.NotContains(t, listing.LogoUrl, "pixel.png")
		if listing.LogoUrl != "" {
			parsed, err := url.Parse(listing.LogoUrl)
			require.NoError(t, err)
			require.True(t, parsed.IsAbs(), listing.LogoUrl)
		}
	}
}

func TestParseEmpty(t *testing.T) {
	tel := &telemetrytest.Recorder{}
	table := []Page{
		{},
		{HTML: "   "},
		{HTML: `<div class="mod-TrefferListe"></div>`},
		{HTML: `<article class="mod-Treffer"><p>no name here</p></article>`},
		{HTML: `{"error":"not markup"}`},
	}

	for _, page := range table {
		listings := Parse(context.Background(), page, testBaseUrl(t), tel)
		require.Empty(t, listings, page.HTML)
	}
	require.Empty(t, tel.Reports("broken"))
}

func TestParseGeneratedPage(t *testing.T) {
	listings := Parse(context.Background(), Page{HTML: generatePage(0, 10)}, testBaseUrl(t), telemetry.SlogAPI{})
	require.Len(t, listings, 10)
	for i, listing := range listings {
		require.Equal(t, fmt.Sprintf("Kanzlei %d", i), listing.Name)
		require.Equal(t, "Hamburg", listing.City)
		require.Equal(t, fmt.Sprintf("https://kanzlei-%d.de", i), listing.Website)
	}
}

// generatePage renders `count` minimal listing fragments numbered from `start`.
func generatePage(start, count int) string {
	var out strings.Builder
	for i := start; i < start+count; i++ {
		website := base64Url(fmt.Sprintf("https://kanzlei-%d.de", i))
		fmt.Fprintf(
			&out,
			`<article class="mod mod-Treffer">
				<a href="/gsbiz/%d"><h2 class="mod-Treffer__name">Kanzlei %d</h2></a>
				<address class="mod-AdresseKompakt"><div class="mod-AdresseKompakt__adress-text">Weg %d, <span class="mod-AdresseKompakt__adress__ort">20354 Hamburg</span></div></address>
				<div class="mod-WebseiteKompakt"><span class="mod-WebseiteKompakt__text" data-webseitelink="%s"></span></div>
			</article>`,
			i, i, i, website,
		)
	}
	return out.String()
}
