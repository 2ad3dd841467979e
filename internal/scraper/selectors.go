package scraper

import (
	"encoding/json"
	"fmt"
	"os"
)

// SelectorConfig holds the CSS selectors for every HTML-parsed source.
// Rightmove is read from embedded JSON and needs none.
type SelectorConfig struct {
	Zoopla      CardSelectors `json:"zoopla"`
	OnTheMarket CardSelectors `json:"onthemarket"`
	Spareroom   CardSelectors `json:"spareroom"`
	OpenRent    CardSelectors `json:"openrent"`
}

// CardSelectors locate one listing card and its fields. List-valued
// selectors are tried in order and the first that matches wins.
type CardSelectors struct {
	Container   []string `json:"container"`  // results root; present even when empty
	NoResults   []string `json:"no_results"` // explicit "no properties found" marker
	Card        []string `json:"card"`
	IDAttrs     []string `json:"id_attrs"` // attributes on the card carrying the id
	IDElement   string   `json:"id_element"`
	Title       string   `json:"title"`
	Address     string   `json:"address"`
	Price       string   `json:"price"`
	Bedrooms    string   `json:"bedrooms"`
	Link        string   `json:"link"`
	Image       string   `json:"image"`
	ImageAttrs  []string `json:"image_attrs"`
	Description string   `json:"description"`
}

// LoadSelectors loads the selector configuration from the specified JSON file.
func LoadSelectors(path string) (SelectorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to read selector config file: %w", err)
	}

	return LoadSelectorsFromBytes(data)
}

// LoadSelectorsFromBytes parses selector configuration from raw JSON bytes.
// Sources missing from data keep their defaults.
func LoadSelectorsFromBytes(data []byte) (SelectorConfig, error) {
	config := DefaultSelectors()
	if err := json.Unmarshal(data, &config); err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to parse selector config JSON: %w", err)
	}
	for name, cs := range map[string]CardSelectors{
		"zoopla":      config.Zoopla,
		"onthemarket": config.OnTheMarket,
		"spareroom":   config.Spareroom,
		"openrent":    config.OpenRent,
	} {
		if len(cs.Card) == 0 {
			return SelectorConfig{}, fmt.Errorf("selector config for %s has no card selector", name)
		}
	}

	return config, nil
}

// DefaultSelectors returns the fallback configuration if no JSON file is loaded.
func DefaultSelectors() SelectorConfig {
	return SelectorConfig{
		Zoopla: CardSelectors{
			Container:  []string{`[data-testid="regular-listings"]`, `[data-testid="search-results"]`, `.srp-results`},
			NoResults:  []string{`[data-testid="no-results"]`, `.no-results`},
			Card:       []string{`.css-wfndrn-StyledSearchResult, .srp-result, .l-searchResult`, `[data-testid="search-result"]`, `.e2uk8e18, .e2uk8e4`},
			IDAttrs:    []string{"id", "data-listing-id"},
			Title:      `.e2uk8e3, .css-vthwmi-DisplayStyle-Heading, .listing-title, h2`,
			Address:    `.e2uk8e15, .css-wxtc4h-DisplayStyle, .listing-address, [data-testid="address"], address`,
			Price:      `.c-SrZLJz, .css-1h0liy1-DisplayStyle-PropertyPrice, .listing-price, [data-testid="price"], [data-testid="listing-price"]`,
			Bedrooms:   `.c-PJLV-cyFDVT, [data-testid="beds"], .icon-bed + span`,
			Link:       `a[href*="/details/"]`,
			Image:      `img`,
			ImageAttrs: []string{"src", "data-src"},
		},
		OnTheMarket: CardSelectors{
			Container:   []string{`#maincontent .results`, `[data-component="search-results"]`, `ul.otm-PropertyCardList`},
			NoResults:   []string{`.no-results`, `[data-test="no-results"]`},
			Card:        []string{`.property-details, .property-result, li.otm-PropertyCard`, `[data-test="property-card"], [data-properties-link], .property`},
			IDAttrs:     []string{"id", "data-property-id"},
			Title:       `h2.title, h3.title, .otm-PropertyCardDetails-title, [data-test="property-title"]`,
			Address:     `.address, .otm-PropertyCardAddress, [data-test="address"]`,
			Price:       `.pim h2, .price, [class*="price"]`,
			Bedrooms:    `.bed-icon + span, [data-test="beds"], .otm-IconBed + span`,
			Link:        `a[href*="/details/"]`,
			Image:       `img.property-image, .otm-PropertyCardMedia img, [data-test="property-image"]`,
			ImageAttrs:  []string{"src", "data-src", "data-lazy-src"},
			Description: `.description, .otm-PropertyCardDescription, [data-test="description"]`,
		},
		Spareroom: CardSelectors{
			Container:  []string{`ul.listing-results`, `.listing-results`},
			NoResults:  []string{`.noResults`, `.no-results`},
			Card:       []string{`li.listing-result`, `article.listing-card`},
			IDAttrs:    []string{"data-listing-id"},
			Title:      `h2.listing-result-title, h2.listing-card__title, .listing-card__title`,
			Address:    `.listingLocation, .listing-card__location`,
			Price:      `.listingPrice, .listing-card__price, .listing-card__details strong`,
			Link:       `a.listing-result-title-link, a.listing-card__link`,
			Image:      `.listing-card__main-image, figure img`,
			ImageAttrs: []string{"src", "data-src"},
		},
		OpenRent: CardSelectors{
			Container:  []string{`#property-data`, `.property-list`, `#search-results`},
			NoResults:  []string{`.noresults`, `.no-results`},
			Card:       []string{`.lpcc`},
			IDElement:  `.property-row-carousel`,
			IDAttrs:    []string{"data-listing-id"},
			Title:      `.banda.pt.listing-title, .listing-title`,
			Price:      `.pim.pl-title h2, .pim h2`,
			Bedrooms:   `.lic li span`,
			Link:       `a[href*="/property-to-rent/"]`,
			Image:      `.propertyPic`,
			ImageAttrs: []string{"data-src", "src"},
		},
	}
}
