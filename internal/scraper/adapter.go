// Package scraper fetches search result pages from property sites and
// normalizes them into models.Listing records.
package scraper

import (
	"context"
	"time"

	"github.com/pauljones0/property-scanner/internal/models"
)

// Payload is the raw response of one search request.
type Payload struct {
	URL       string
	Body      []byte
	FetchedAt time.Time
}

// Adapter is one source's query construction, fetch and parse.
type Adapter interface {
	Source() models.Source
	// Fetch requests the search page described by site. Failures are
	// *models.FetchError.
	Fetch(ctx context.Context, site models.SiteConfig) (*Payload, error)
	// Parse maps a payload to listings. It fails with *models.ParseError only
	// when the page shape is unrecognised; missing optional fields are left
	// empty.
	Parse(p *Payload) ([]models.Listing, error)
	// SupportedSorts maps the strategies the site can apply upstream to the
	// query fragment that requests them.
	SupportedSorts() map[models.SortStrategy]string
}

// URLBuilder is implemented by adapters whose search URL can be computed
// without network access.
type URLBuilder interface {
	BuildURL(site models.SiteConfig) (string, error)
}
