package scraper

import (
	"fmt"

	"github.com/pauljones0/property-scanner/internal/models"
)

// New returns the adapter for source.
func New(source models.Source, f *Fetcher, sel SelectorConfig) (Adapter, error) {
	switch source {
	case models.SourceRightmove:
		return NewRightmove(f), nil
	case models.SourceSpareroom:
		return NewSpareroom(f, sel.Spareroom), nil
	case models.SourceOnTheMarket:
		return NewOnTheMarket(f, sel.OnTheMarket), nil
	case models.SourceOpenRent:
		return NewOpenRent(f, sel.OpenRent), nil
	case models.SourceZoopla:
		return NewZoopla(f, sel.Zoopla), nil
	default:
		return nil, fmt.Errorf("unknown source %q", source)
	}
}

// Build returns one adapter per source, in the given order.
func Build(order []models.Source, f *Fetcher, sel SelectorConfig) ([]Adapter, error) {
	adapters := make([]Adapter, 0, len(order))
	for _, source := range order {
		a, err := New(source, f, sel)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}
