package commands

import (
	"fmt"
	"io"

	"gelbeseiten-scraper/internal/scrapers/gelbeseiten"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

func renderStats(out io.Writer, result gelbeseiten.Result) {
	stats := result.Stats

	t := newTable(out)
	t.SetTitle("Statistics")
	t.AppendHeader(table.Row{"Field", "Count", "Percent"})
	t.AppendRow(table.Row{"Total", stats.Total, ""})
	t.AppendRow(table.Row{"With email", stats.Filled["email"], formatPercent(stats.Percent("email"))})
	t.AppendRow(table.Row{"With website", stats.Filled["website"], formatPercent(stats.Percent("website"))})
	t.AppendRow(table.Row{"With logo", stats.Filled["logo_url"], formatPercent(stats.Percent("logo_url"))})
	t.AppendRow(table.Row{"Complete", stats.Complete, formatPercent(stats.CompletePercent())})
	t.AppendFooter(table.Row{"Pages", result.Pages, result.Reason.String()})
	t.Render()
}
