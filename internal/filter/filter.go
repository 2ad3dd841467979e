// Package filter decides whether a listing satisfies the configured criteria.
package filter

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/pauljones0/property-scanner/internal/models"
)

// Reason describes why a listing was rejected. The empty Reason means it matched.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonExcludedKeyword Reason = "excluded_keyword"
	ReasonMissingKeyword  Reason = "missing_keyword"
	ReasonPriceUnknown    Reason = "price_unknown"
	ReasonPriceBelowMin   Reason = "price_below_min"
	ReasonPriceAboveMax   Reason = "price_above_max"
	ReasonBedsUnknown     Reason = "bedrooms_unknown"
	ReasonBedsBelowMin    Reason = "bedrooms_below_min"
	ReasonBedsAboveMax    Reason = "bedrooms_above_max"
)

// Matches reports whether l satisfies c.
func Matches(l models.Listing, c models.FilterCriteria) bool {
	return Explain(l, c) == ReasonNone
}

// Explain returns the first criterion l fails, or ReasonNone.
//
// Keywords are matched case-insensitively as substrings of the title
// concatenated with the address. Every keyword must appear; any exclude keyword
// rejects. A nil bound is not enforced, but once a bound is set for a field a
// listing with that field unknown is rejected.
func Explain(l models.Listing, c models.FilterCriteria) Reason {
	if len(c.Keywords) > 0 || len(c.ExcludeKeywords) > 0 {
		fold := cases.Fold()
		title, address := fold.String(l.Title), fold.String(l.Address)
		// A keyword may span the boundary with or without the separator.
		spaced, joined := title+" "+address, title+address
		contains := func(kw string) bool {
			kw = fold.String(kw)
			return strings.Contains(spaced, kw) || strings.Contains(joined, kw)
		}

		for _, kw := range c.ExcludeKeywords {
			if kw = strings.TrimSpace(kw); kw != "" && contains(kw) {
				return ReasonExcludedKeyword
			}
		}
		for _, kw := range c.Keywords {
			if kw = strings.TrimSpace(kw); kw != "" && !contains(kw) {
				return ReasonMissingKeyword
			}
		}
	}

	if r := checkRange(l.PriceValue, c.MinPrice, c.MaxPrice, ReasonPriceUnknown, ReasonPriceBelowMin, ReasonPriceAboveMax); r != ReasonNone {
		return r
	}
	return checkRange(l.Bedrooms, c.MinBeds, c.MaxBeds, ReasonBedsUnknown, ReasonBedsBelowMin, ReasonBedsAboveMax)
}

func checkRange(v, lo, hi *int, unknown, below, above Reason) Reason {
	if lo == nil && hi == nil {
		return ReasonNone
	}
	if v == nil {
		return unknown
	}
	if lo != nil && *v < *lo {
		return below
	}
	if hi != nil && *v > *hi {
		return above
	}
	return ReasonNone
}

// Apply splits listings into those that match and a count of rejections per
// reason. The input order is preserved.
func Apply(listings []models.Listing, c models.FilterCriteria) ([]models.Listing, map[Reason]int) {
	kept := make([]models.Listing, 0, len(listings))
	rejected := make(map[Reason]int)
	for _, l := range listings {
		if r := Explain(l, c); r != ReasonNone {
			rejected[r]++
			continue
		}
		kept = append(kept, l)
	}
	return kept, rejected
}

// Validate reports inverted ranges in c.
func Validate(c models.FilterCriteria) error {
	if c.MinPrice != nil && c.MaxPrice != nil && *c.MinPrice > *c.MaxPrice {
		return fmt.Errorf("min_price %d is greater than max_price %d", *c.MinPrice, *c.MaxPrice)
	}
	if c.MinBeds != nil && c.MaxBeds != nil && *c.MinBeds > *c.MaxBeds {
		return fmt.Errorf("min_beds %d is greater than max_beds %d", *c.MinBeds, *c.MaxBeds)
	}
	for _, p := range []*int{c.MinPrice, c.MaxPrice, c.MinBeds, c.MaxBeds} {
		if p != nil && *p < 0 {
			return fmt.Errorf("filter bounds must not be negative, got %d", *p)
		}
	}
	return nil
}
