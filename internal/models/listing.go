package models

import (
	"time"
)

// Source identifies the site adapter that produced a listing.
type Source string

const (
	SourceRightmove   Source = "rightmove"
	SourceSpareroom   Source = "spareroom"
	SourceOnTheMarket Source = "onthemarket"
	SourceOpenRent    Source = "openrent"
	SourceZoopla      Source = "zoopla"
)

// KnownSources lists every supported source in its default enablement order.
var KnownSources = []Source{
	SourceRightmove,
	SourceSpareroom,
	SourceOnTheMarket,
	SourceOpenRent,
	SourceZoopla,
}

// ParseSource returns the Source for name and whether it is supported.
func ParseSource(name string) (Source, bool) {
	for _, s := range KnownSources {
		if string(s) == name {
			return s, true
		}
	}
	return "", false
}

// Listing is the canonical record every adapter produces.
type Listing struct {
	ID          string     `json:"id" validate:"required"`
	Source      Source     `json:"source" validate:"required"`
	Title       string     `json:"title"`
	Address     string     `json:"address"`
	PriceText   string     `json:"price_text"`
	PriceValue  *int       `json:"price,omitempty" validate:"omitempty,gte=0"` // monthly, whole pounds
	Bedrooms    *int       `json:"bedrooms,omitempty" validate:"omitempty,gte=0"`
	Images      []string   `json:"images"`
	Link        string     `json:"link" validate:"required,url"`
	Description string     `json:"description,omitempty"`
	AddedOn     time.Time  `json:"added_on"`
	UpdatedOn   *time.Time `json:"updated_on,omitempty"`
}

// Key is the global dedup key of the listing.
func (l Listing) Key() string {
	return ListingKey(l.Source, l.ID)
}

// ListingKey joins a source and a source-local id into a dedup key.
func ListingKey(source Source, id string) string {
	return string(source) + ":" + id
}

// SeenRecord is a persisted listing identity.
type SeenRecord struct {
	Source    Source    `firestore:"source" json:"source"`
	ID        string    `firestore:"id" json:"id"`
	FirstSeen time.Time `firestore:"firstSeen" json:"first_seen"`
}

// Favorite is a listing the user saved from the web interface.
type Favorite struct {
	Listing Listing   `json:"listing"`
	SavedOn time.Time `json:"saved_on"`
}

// SiteConfig is the per-source configuration block.
type SiteConfig struct {
	Enabled  bool           `yaml:"enabled" json:"enabled"`
	SortType SortStrategy   `yaml:"sort_type" json:"sort_type,omitempty"`
	Params   map[string]any `yaml:"params" json:"params,omitempty"`
}

// FilterCriteria is the global post-fetch filter. Nil bounds are not enforced.
type FilterCriteria struct {
	MinPrice        *int     `yaml:"min_price" json:"min_price,omitempty"`
	MaxPrice        *int     `yaml:"max_price" json:"max_price,omitempty"`
	MinBeds         *int     `yaml:"min_beds" json:"min_beds,omitempty"`
	MaxBeds         *int     `yaml:"max_beds" json:"max_beds,omitempty"`
	Keywords        []string `yaml:"keywords" json:"keywords,omitempty"`
	ExcludeKeywords []string `yaml:"exclude_keywords" json:"exclude_keywords,omitempty"`
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
