package processor

import (
	"context"
	"time"

	"github.com/pauljones0/property-scanner/internal/models"
	"github.com/pauljones0/property-scanner/internal/scraper"
)

// SeenStore defines the persistence operations the Scanner relies on.
type SeenStore interface {
	LoadAll(ctx context.Context) (map[string]models.SeenRecord, error)
	MarkSeen(ctx context.Context, source models.Source, id string, ts time.Time) error
}

// ListingNotifier delivers a batch of new listings.
type ListingNotifier interface {
	Notify(ctx context.Context, listings []models.Listing) error
}

// Site pairs an adapter with its configuration block.
type Site struct {
	Adapter scraper.Adapter
	Config  models.SiteConfig
}

// Runner is implemented by *Scanner and consumed by the HTTP and scheduler layers.
type Runner interface {
	Run(ctx context.Context) (*RunReport, error)
	LastReport() *RunReport
}
