package gelbeseiten

// Stats describes how well filled a set of listings is.
type Stats struct {
	Total int
	// Filled maps each entry of Columns to the number of listings where
	// that field is non-empty.
	Filled map[string]int
	// Complete is the number of listings with email, website and logo.
	Complete int
}

func ComputeStats(listings []Listing) Stats {
	stats := Stats{
		Total:  len(listings),
		Filled: make(map[string]int, len(Columns)),
	}
	for _, column := range Columns {
		stats.Filled[column] = 0
	}
	for _, listing := range listings {
		for i, value := range listing.Row() {
			if value != "" {
				stats.Filled[Columns[i]]++
			}
		}
		if listing.Complete() {
			stats.Complete++
		}
	}
	return stats
}

// Percent returns the fill rate of a column in percent, 0 when there are
// no listings.
func (s Stats) Percent(column string) float64 {
	return s.percentOf(s.Filled[column])
}

func (s Stats) CompletePercent() float64 {
	return s.percentOf(s.Complete)
}

func (s Stats) percentOf(n int) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(n) / float64(s.Total) * 100
}
