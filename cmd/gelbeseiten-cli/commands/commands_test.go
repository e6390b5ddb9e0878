package commands

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"gelbeseiten-scraper/internal/export"
	"gelbeseiten-scraper/internal/scrapers/gelbeseiten"

	"github.com/stretchr/testify/require"
)

func TestOutputFilename(t *testing.T) {
	require.Equal(t, "gelbeseiten_steuerberater.csv", OutputFilename("steuerberater"))
	require.Equal(t, "gelbeseiten_zahn_arzt_kfo.csv", OutputFilename("zahn arzt/kfo"))
}

func TestShorten(t *testing.T) {
	require.Equal(t, "https://a.de", shorten("https://a.de", 60))
	require.Equal(t, "https://müller...", shorten("https://müller-steuerberatung.de", 14))
	require.Equal(t, "äöü", shorten("äöü", 3))
}

func TestChooseMaxResults(t *testing.T) {
	testCases := []struct {
		name   string
		mode   string
		custom int
		input  string
		max    int
		err    error
		errAny bool
	}{
		{name: "test mode", mode: "1", max: TestModeMax},
		{name: "full confirmed", mode: "2", input: "yes\n", max: 0},
		{name: "full confirmed uppercase", mode: "2", input: "YES\n", max: 0},
		{name: "full declined by default", mode: "2", input: "\n", err: errDeclined},
		{name: "full declined", mode: "2", input: "no\n", err: errDeclined},
		{name: "custom from flag", mode: "3", custom: 25, max: 25},
		{name: "custom prompted", mode: "3", input: "40\n", max: 40},
		{name: "custom invalid", mode: "3", input: "lots\n", errAny: true},
		{name: "custom negative", mode: "3", input: "-3\n", errAny: true},
		{name: "unknown mode", mode: "4", errAny: true},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			p := newPrompter(strings.NewReader(test.input), &bytes.Buffer{})
			max, err := chooseMaxResults(p, test.mode, test.custom)
			switch {
			case test.err != nil:
				require.ErrorIs(t, err, test.err)
			case test.errAny:
				require.Error(t, err)
			default:
				require.NoError(t, err)
				require.Equal(t, test.max, max)
			}
		})
	}
}

func TestPrompterDefaults(t *testing.T) {
	out := &bytes.Buffer{}
	p := newPrompter(strings.NewReader("  zahnarzt  \n\n"), out)

	answer, err := p.ask("Term", "steuerberater")
	require.NoError(t, err)
	require.Equal(t, "zahnarzt", answer)

	answer, err = p.ask("Term", "steuerberater")
	require.NoError(t, err)
	require.Equal(t, "steuerberater", answer)

	// input exhausted
	answer, err = p.ask("Term", "steuerberater")
	require.NoError(t, err)
	require.Equal(t, "steuerberater", answer)

	require.Contains(t, out.String(), "Term [steuerberater]: ")
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gelbeseiten.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{
		search_term: "zahnarzt",
		page_size: 20,
	}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gelbeseiten.local.json5"), []byte(`{page_delay_ms: 5}`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	expected := DefaultConfig()
	expected.SearchTerm = "zahnarzt"
	expected.PageSize = 20
	expected.PageDelayMs = 5
	require.Equal(t, expected, cfg)

	params := cfg.RunParams(nil, nil, nil, 7)
	require.Equal(t, 5*time.Millisecond, params.PageDelay)
	require.Equal(t, 7, params.MaxResults)
	require.Equal(t, 20, params.PageSize)

	_, err = LoadConfig(filepath.Join(dir, "missing.json5"))
	require.Error(t, err)
}

func fakeDirectory(t testing.TB, total int) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/suche/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "s", Path: "/"})
	})
	mux.HandleFunc("/ajaxsuche", func(w http.ResponseWriter, r *http.Request) {
		if r.ParseForm() != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		position, _ := strconv.Atoi(r.PostForm.Get("position"))
		count, _ := strconv.Atoi(r.PostForm.Get("anzahl"))

		var html strings.Builder
		for i := position; i < min(position+count, total); i++ {
			website := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("https://kanzlei-%d.de", i)))
			fmt.Fprintf(&html, `<article class="mod-Treffer">
				<h2 class="mod-Treffer__name">Kanzlei %d</h2>
				<div class="mod-TelefonnummerKompakt"><a class="mod-TelefonnummerKompakt__phoneNumber">040 %d</a></div>
				<div class="mod-WebseiteKompakt"><span class="mod-WebseiteKompakt__text" data-webseitelink="%s"></span></div>
			</article>`, i, i, website)
		}

		body, _ := json.Marshal(map[string]any{"html": html.String(), "anzahlTreffer": total})
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeTestConfig(t testing.TB, dir, baseUrl string) string {
	path := filepath.Join(dir, "gelbeseiten.json5")
	contents := fmt.Sprintf(`{
		base_url: %q,
		page_delay_ms: 1,
		retry_delay_ms: 1,
		requests_per_second: 1000,
	}`, baseUrl)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func execute(t testing.TB, args ...string) (string, error) {
	out := &bytes.Buffer{}
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	rootCmd.SetIn(strings.NewReader(""))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestScrapeCommand(t *testing.T) {
	server := fakeDirectory(t, 25)
	dir := t.TempDir()
	config := writeTestConfig(t, dir, server.URL)
	csvPath := filepath.Join(dir, "out.csv")
	xlsxPath := filepath.Join(dir, "out.xlsx")

	out, err := execute(t,
		"scrape", "--config", config,
		"--term", "steuerberater", "--mode", "3", "--max", "15",
		"--out", csvPath, "--xlsx", xlsxPath,
	)
	require.NoError(t, err)
	require.Contains(t, out, "Done! Results saved to")
	require.Contains(t, out, "Statistics")

	// the cap is checked between pages, so the second page is kept whole
	fromCsv, err := export.ReadCSV(csvPath)
	require.NoError(t, err)
	require.Len(t, fromCsv, 20)
	require.Equal(t, "https://kanzlei-19.de", fromCsv[19].Website)

	fromXlsx, err := export.ReadXLSX(xlsxPath)
	require.NoError(t, err)
	require.Equal(t, fromCsv, fromXlsx)
}

func TestValidateCommand(t *testing.T) {
	server := fakeDirectory(t, 12)
	dir := t.TempDir()
	config := writeTestConfig(t, dir, server.URL)
	csvPath := filepath.Join(dir, "test.csv")

	out, err := execute(t, "validate", "--config", config, "--out", csvPath, "--input", "")
	// no email, logo or address in the fake listings
	require.ErrorIs(t, err, errValidationFailed)
	require.Contains(t, out, "PARTIAL PASS")

	listings, err := export.ReadCSV(csvPath)
	require.NoError(t, err)
	require.Len(t, listings, 12)
}

func TestValidateInput(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "input.csv")

	var listings []gelbeseiten.Listing
	for i := 0; i < 10; i++ {
		listings = append(listings, gelbeseiten.Listing{
			Name:    fmt.Sprintf("Kanzlei %d", i),
			Phone:   "040 1",
			Email:   "info@kanzlei.de",
			Website: "https://kanzlei.de",
			LogoUrl: "https://kanzlei.de/logo.png",
		})
	}
	require.NoError(t, export.CSVSink{Path: csvPath}.Export(context.Background(), listings))

	out, err := execute(t, "validate", "--input", csvPath)
	require.NoError(t, err)
	require.Contains(t, out, "PASS")
	require.Contains(t, out, "First 3 complete listings")
}
