// Package validate grades a set of scraped listings by how many of them
// carry each field.
package validate

import (
	"fmt"

	"gelbeseiten-scraper/internal/scrapers/gelbeseiten"
)

type Rule int

const (
	// RuleAll requires every listing to have the field.
	RuleAll Rule = iota
	// RuleAbove requires strictly more than Fraction of listings to have it.
	RuleAbove
	// RuleAny requires at least one listing to have it.
	RuleAny
	// RuleNone only reports the count.
	RuleNone
)

type Check struct {
	Label string
	// Column is an entry of gelbeseiten.Columns, or CompleteColumn.
	Column   string
	Rule     Rule
	Fraction float64
	// Gating checks decide whether the whole validation passes.
	Gating bool
}

// CompleteColumn counts listings that have email, website and logo.
const CompleteColumn = "complete"

var DefaultChecks = []Check{
	{Label: "Name", Column: "name", Rule: RuleAll, Gating: true},
	{Label: "Address", Column: "address", Rule: RuleAbove, Fraction: 0.95},
	{Label: "Postal code", Column: "postal_code", Rule: RuleAbove, Fraction: 0.95},
	{Label: "City", Column: "city", Rule: RuleAbove, Fraction: 0.95},
	{Label: "Phone", Column: "phone", Rule: RuleAbove, Fraction: 0.95, Gating: true},
	{Label: "Email", Column: "email", Rule: RuleAny, Gating: true},
	{Label: "Website", Column: "website", Rule: RuleAbove, Fraction: 0.80, Gating: true},
	{Label: "Logo", Column: "logo_url", Rule: RuleAbove, Fraction: 0.70, Gating: true},
	{Label: "Rating", Column: "rating", Rule: RuleNone},
	{Label: "Complete (email, website, logo)", Column: CompleteColumn, Rule: RuleAny},
}

type CheckResult struct {
	Check
	Count   int
	Percent float64
	Ok      bool
}

func (r CheckResult) Status() string {
	switch {
	case r.Rule == RuleNone:
		return ""
	case r.Ok:
		return "ok"
	case r.Gating:
		return "FAIL"
	}
	return "low"
}

type Report struct {
	Stats   gelbeseiten.Stats
	Results []CheckResult
	Passed  bool
	// Samples holds up to SampleCount complete listings, or the first
	// listings when none is complete.
	Samples         []gelbeseiten.Listing
	SamplesComplete bool
}

const SampleCount = 3

func evaluate(check Check, count, total int) bool {
	switch check.Rule {
	case RuleAll:
		return count == total
	case RuleAbove:
		return float64(count) > float64(total)*check.Fraction
	case RuleAny:
		return count > 0
	case RuleNone:
		return true
	}
	panic(fmt.Sprintf("unknown rule %d", check.Rule))
}

// Validate runs checks against listings. An empty set never passes.
func Validate(listings []gelbeseiten.Listing, checks []Check) Report {
	stats := gelbeseiten.ComputeStats(listings)
	report := Report{
		Stats:  stats,
		Passed: stats.Total > 0,
	}

	for _, check := range checks {
		count := stats.Filled[check.Column]
		percent := stats.Percent(check.Column)
		if check.Column == CompleteColumn {
			count = stats.Complete
			percent = stats.CompletePercent()
		}

		ok := stats.Total > 0 && evaluate(check, count, stats.Total)
		if check.Gating && !ok {
			report.Passed = false
		}
		report.Results = append(report.Results, CheckResult{
			Check:   check,
			Count:   count,
			Percent: percent,
			Ok:      ok,
		})
	}

	for _, listing := range listings {
		if len(report.Samples) == SampleCount {
			break
		}
		if listing.Complete() {
			report.Samples = append(report.Samples, listing)
		}
	}
	report.SamplesComplete = len(report.Samples) > 0
	if !report.SamplesComplete {
		report.Samples = listings[:min(SampleCount, len(listings))]
	}

	return report
}
