package commands

import (
	"errors"
	"fmt"
	"strings"

	"gelbeseiten-scraper/internal/components/telemetry"
	"gelbeseiten-scraper/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	scrapeTerm     *string
	scrapeMode     *string
	scrapeMax      *int
	scrapeOut      *string
	scrapeXlsx     *string
	scrapeDb       *string
	scrapeDumpHttp *string
)

func init() {
	scrapeTerm = scrapeCmd.Flags().String("term", "", "The search term, prompted for when not given.")
	scrapeMode = scrapeCmd.Flags().String("mode", "", "1 = test run (first 100 results), 2 = full scrape, 3 = custom amount. Prompted for when not given.")
	scrapeMax = scrapeCmd.Flags().Int("max", 0, "The result cap for mode 3.")
	scrapeOut = scrapeCmd.Flags().String("out", "", "The csv file to write, by default gelbeseiten_<term>.csv.")
	scrapeXlsx = scrapeCmd.Flags().String("xlsx", "", "Also write the results to this xlsx file.")
	scrapeDb = scrapeCmd.Flags().String("db", "", "Also write the results to this sqlite file or libsql url.")
	scrapeDumpHttp = scrapeCmd.Flags().String("dump-http", "", "Write every http exchange to this directory.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--term <term>] [--mode 1|2|3] [--max <n>] [--out <file.csv>]",
	Short: "Scrapes search results into a csv file, optionally xlsx and sqlite too.",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		cfg, err := LoadConfig(*configPath)
		if err != nil {
			serviceutil.Fatal("failed to load config", err)
		}
		p := newPrompter(cmd.InOrStdin(), out)

		fmt.Fprintln(out, strings.Repeat("=", 70))
		fmt.Fprintln(out, "Gelbe Seiten Scraper")
		fmt.Fprintln(out, strings.Repeat("=", 70))

		term := strings.TrimSpace(*scrapeTerm)
		if term == "" {
			term, err = p.ask("What do you want to scrape?", cfg.SearchTerm)
			if err != nil {
				return err
			}
		}
		fmt.Fprintf(out, "Searching for: '%s'\n\n", term)

		mode := *scrapeMode
		if mode == "" {
			fmt.Fprintln(out, "1. Test mode (first 100 results)")
			fmt.Fprintln(out, "2. Full scrape (ALL results, may take hours)")
			fmt.Fprintln(out, "3. Custom amount")
			mode, err = p.ask("Enter choice (1/2/3)", "1")
			if err != nil {
				return err
			}
		}
		maxResults, err := chooseMaxResults(p, mode, *scrapeMax)
		if errors.Is(err, errDeclined) {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
		if err != nil {
			return err
		}

		opts := scrapeOptions{
			SearchTerm: term,
			MaxResults: maxResults,
			CsvPath:    *scrapeOut,
			XlsxPath:   *scrapeXlsx,
			DbPath:     *scrapeDb,
			DumpHttp:   *scrapeDumpHttp,
		}
		if opts.CsvPath == "" {
			opts.CsvPath = OutputFilename(term)
		}

		result, err := runScrape(cmd.Context(), cfg, opts, telemetry.SlogAPI{})
		if err != nil {
			serviceutil.Fatal("failed to start scraping", err)
		}

		fmt.Fprintln(out)
		renderStats(out, result)

		if len(result.Listings) == 0 {
			fmt.Fprintln(out, "✗ No results were scraped")
			return errNoResults
		}
		if result.ExportErr != nil {
			fmt.Fprintf(out, "✗ Scraped %d results but the export failed: %v\n", len(result.Listings), result.ExportErr)
			return result.ExportErr
		}
		fmt.Fprintf(out, "✓ Done! Results saved to: %s\n", opts.CsvPath)
		return nil
	},
}
