package models

// SortStrategy names an ordering of the merged listing set.
type SortStrategy string

const (
	SortPriceHighToLow SortStrategy = "price_high_to_low"
	SortPriceLowToHigh SortStrategy = "price_low_to_high"
	SortNewestFirst    SortStrategy = "newest_first"
	SortOldestFirst    SortStrategy = "oldest_first"
	SortLastUpdated    SortStrategy = "last_updated"
	SortDefault        SortStrategy = "default"
)

var sortDescriptions = []struct {
	strategy SortStrategy
	desc     string
}{
	{SortPriceHighToLow, "most expensive properties first"},
	{SortPriceLowToHigh, "cheapest properties first"},
	{SortNewestFirst, "newest listings first"},
	{SortOldestFirst, "oldest listings first (upstream on Rightmove only)"},
	{SortLastUpdated, "most recently updated listings first (upstream on SpareRoom only)"},
	{SortDefault, "site-specific default order"},
}

// Valid reports whether s is a known strategy. The empty strategy is not valid.
func (s SortStrategy) Valid() bool {
	for _, d := range sortDescriptions {
		if d.strategy == s {
			return true
		}
	}
	return false
}

// SortStrategies returns every strategy paired with a short description.
func SortStrategies() map[SortStrategy]string {
	out := make(map[SortStrategy]string, len(sortDescriptions))
	for _, d := range sortDescriptions {
		out[d.strategy] = d.desc
	}
	return out
}

// SortStrategyList returns every strategy in display order.
func SortStrategyList() []SortStrategy {
	out := make([]SortStrategy, 0, len(sortDescriptions))
	for _, d := range sortDescriptions {
		out = append(out, d.strategy)
	}
	return out
}
