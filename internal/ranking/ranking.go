// Package ranking orders merged listings by a configured strategy.
package ranking

import (
	"cmp"
	"slices"
	"time"

	"github.com/pauljones0/property-scanner/internal/models"
)

// Sort returns a stably sorted copy of listings. Equal keys keep their input
// order. Listings with an unknown price sort last under both price
// strategies. SortDefault and unknown strategies return the input order.
func Sort(listings []models.Listing, strategy models.SortStrategy) []models.Listing {
	out := slices.Clone(listings)

	switch strategy {
	case models.SortPriceHighToLow:
		slices.SortStableFunc(out, func(a, b models.Listing) int {
			return comparePrice(a, b, true)
		})
	case models.SortPriceLowToHigh:
		slices.SortStableFunc(out, func(a, b models.Listing) int {
			return comparePrice(a, b, false)
		})
	case models.SortNewestFirst:
		slices.SortStableFunc(out, func(a, b models.Listing) int {
			return b.AddedOn.Compare(a.AddedOn)
		})
	case models.SortOldestFirst:
		slices.SortStableFunc(out, func(a, b models.Listing) int {
			return a.AddedOn.Compare(b.AddedOn)
		})
	case models.SortLastUpdated:
		slices.SortStableFunc(out, func(a, b models.Listing) int {
			return updatedAt(b).Compare(updatedAt(a))
		})
	}
	return out
}

func comparePrice(a, b models.Listing, desc bool) int {
	switch {
	case a.PriceValue == nil && b.PriceValue == nil:
		return 0
	case a.PriceValue == nil:
		return 1
	case b.PriceValue == nil:
		return -1
	}
	if desc {
		return cmp.Compare(*b.PriceValue, *a.PriceValue)
	}
	return cmp.Compare(*a.PriceValue, *b.PriceValue)
}

func updatedAt(l models.Listing) time.Time {
	if l.UpdatedOn != nil {
		return *l.UpdatedOn
	}
	return l.AddedOn
}

// UpstreamParam returns the query fragment a source uses to apply strategy
// itself, or "" when the source cannot. Callers still sort downstream.
func UpstreamParam(supported map[models.SortStrategy]string, strategy models.SortStrategy) (string, bool) {
	p, ok := supported[strategy]
	if !ok || p == "" {
		return "", false
	}
	return p, true
}
