package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gelbeseiten-scraper/internal/components/telemetry"
	"gelbeseiten-scraper/internal/export"
	"gelbeseiten-scraper/internal/scrapers/gelbeseiten"
	"gelbeseiten-scraper/internal/validate"
	"gelbeseiten-scraper/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

const DefaultValidateMax = 50

var (
	validateTerm  *string
	validateMax   *int
	validateOut   *string
	validateInput *string
)

func init() {
	validateTerm = validateCmd.Flags().String("term", "", "The search term to test with, by default the configured one.")
	validateMax = validateCmd.Flags().Int("max", DefaultValidateMax, "How many results to scrape for the test.")
	validateOut = validateCmd.Flags().String("out", "", "The csv file the test scrape writes, by default test_<term>.csv.")
	validateInput = validateCmd.Flags().String("input", "", "Validate an existing csv file instead of scraping.")
	rootCmd.AddCommand(validateCmd)
}

// errValidationFailed makes the process exit with 1 on a partial pass.
var errValidationFailed = errors.New("validation partially passed")

var validateCmd = &cobra.Command{
	Use:   "validate [--term <term>] [--max <n>] [--input <file.csv>]",
	Short: "Runs a small scrape and checks how well each field is filled.",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		path := *validateInput
		term := *validateTerm
		if path == "" {
			cfg, err := LoadConfig(*configPath)
			if err != nil {
				serviceutil.Fatal("failed to load config", err)
			}
			if term == "" {
				term = cfg.SearchTerm
			}
			path = *validateOut
			if path == "" {
				path = "test_" + strings.TrimPrefix(OutputFilename(term), "gelbeseiten_")
			}

			result, err := runScrape(cmd.Context(), cfg, scrapeOptions{
				SearchTerm: term,
				MaxResults: *validateMax,
				CsvPath:    path,
			}, telemetry.SlogAPI{})
			if err != nil {
				serviceutil.Fatal("failed to start scraping", err)
			}
			if len(result.Listings) == 0 {
				fmt.Fprintln(out, "✗ No results were scraped")
				return errNoResults
			}
			if result.ExportErr != nil {
				return result.ExportErr
			}
		}

		listings, err := export.ReadCSV(path)
		if err != nil {
			serviceutil.Fatal("failed to read results", err)
		}

		report := validate.Validate(listings, validate.DefaultChecks)
		renderReport(out, report)

		fmt.Fprintln(out)
		fmt.Fprintf(out, "File: %s\n", path)
		if term != "" {
			fmt.Fprintf(out, "Search term: %s\n", term)
		}
		fmt.Fprintf(out, "Listings: %d\n", report.Stats.Total)

		if !report.Passed {
			fmt.Fprintln(out, "⚠ PARTIAL PASS: some fields are filled less often than expected.")
			return errValidationFailed
		}
		fmt.Fprintln(out, "✓ PASS: all critical fields are extracted.")
		return nil
	},
}

func renderReport(out io.Writer, report validate.Report) {
	t := newTable(out)
	t.SetTitle("Validation")
	t.AppendHeader(table.Row{"Field", "Count", "Total", "Percent", "Status"})
	for _, result := range report.Results {
		t.AppendRow(table.Row{
			result.Label,
			result.Count,
			report.Stats.Total,
			formatPercent(result.Percent),
			result.Status(),
		})
	}
	t.Render()

	fmt.Fprintln(out)
	if report.SamplesComplete {
		fmt.Fprintf(out, "First %d complete listings (email, website and logo):\n\n", len(report.Samples))
	} else if len(report.Samples) > 0 {
		fmt.Fprintln(out, "No complete listings found, first listings with partial data:")
		fmt.Fprintln(out)
	}
	for i, listing := range report.Samples {
		renderSample(out, i+1, listing)
	}
}

// shorten keeps the first n runes of s.
func shorten(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func renderSample(out io.Writer, n int, listing gelbeseiten.Listing) {
	fmt.Fprintf(out, "%d. %s\n", n, listing.Name)
	fmt.Fprintf(out, "   address: %s, %s %s\n", listing.Address, listing.PostalCode, listing.City)
	fmt.Fprintf(out, "   phone:   %s\n", listing.Phone)
	if listing.Email != "" {
		fmt.Fprintf(out, "   email:   %s\n", listing.Email)
	}
	if listing.Website != "" {
		fmt.Fprintf(out, "   website: %s\n", shorten(listing.Website, 60))
	}
	if listing.LogoUrl != "" {
		fmt.Fprintf(out, "   logo:    %s\n", shorten(listing.LogoUrl, 60))
	}
	if listing.Rating != "" {
		fmt.Fprintf(out, "   rating:  %s (%s reviews)\n", listing.Rating, listing.ReviewCount)
	}
	fmt.Fprintln(out)
}
