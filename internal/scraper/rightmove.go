package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pauljones0/property-scanner/internal/models"
	"github.com/pauljones0/property-scanner/internal/util"
)

const (
	rightmoveBase   = "https://www.rightmove.co.uk"
	rightmoveSearch = rightmoveBase + "/property-to-rent/find.html"
	maxTitleRunes   = 100
)

var rightmoveQuery = []queryParam{
	{key: "location_identifier", name: "locationIdentifier", def: "REGION^219"},
	{key: "min_price", name: "minPrice", def: 0},
	{key: "max_price", name: "maxPrice", def: 1200},
	{key: "min_beds", name: "minBedrooms", def: 1},
	{key: "max_beds", name: "maxBedrooms", def: 1},
	{key: "radius", name: "radius", def: "0.0"},
	{key: "include_let_agreed", name: "includeLetAgreed", def: false},
	{key: "dont_show", name: "dontShow", def: "houseShare,student,retirement"},
	{key: "let_type", name: "letType", def: "shortTerm"},
}

// Rightmove reads the search results from the page's __NEXT_DATA__ blob.
type Rightmove struct {
	fetcher *Fetcher
}

func NewRightmove(f *Fetcher) *Rightmove {
	return &Rightmove{fetcher: f}
}

func (a *Rightmove) Source() models.Source { return models.SourceRightmove }

func (a *Rightmove) SupportedSorts() map[models.SortStrategy]string {
	return map[models.SortStrategy]string{
		models.SortPriceHighToLow: "sortType=2",
		models.SortPriceLowToHigh: "sortType=1",
		models.SortNewestFirst:    "sortType=6",
		models.SortOldestFirst:    "sortType=10",
		models.SortDefault:        "sortType=6",
	}
}

func (a *Rightmove) BuildURL(site models.SiteConfig) (string, error) {
	q := buildQuery(site.Params, rightmoveQuery)
	applySort(q, a.SupportedSorts(), site)
	return withQuery(siteURL(site, "search_url", rightmoveSearch), q)
}

func (a *Rightmove) Fetch(ctx context.Context, site models.SiteConfig) (*Payload, error) {
	searchURL, err := a.BuildURL(site)
	if err != nil {
		return nil, &models.FetchError{Source: a.Source(), Err: err}
	}
	a.fetcher.Warm(ctx, siteURL(site, "base_url", rightmoveBase)+"/")
	return a.fetcher.fetch(ctx, a.Source(), site, searchURL)
}

func (a *Rightmove) Parse(p *Payload) ([]models.Listing, error) {
	doc, err := parseDocument(p)
	if err != nil {
		return nil, &models.ParseError{Source: a.Source(), Err: err}
	}

	var (
		props []any
		found bool
	)
	for _, blob := range embeddedJSON(doc) {
		pageProps := dig(blob, "props", "pageProps")
		for _, key := range []string{"propertyData", "searchResults"} {
			if list, ok := dig(pageProps, key, "properties").([]any); ok {
				props, found = list, true
				break
			}
		}
		if found {
			break
		}
	}
	if !found {
		return nil, &models.ParseError{Source: a.Source(), Err: errors.New("no property data in embedded page JSON")}
	}

	raw := make([]models.Listing, 0, len(props))
	for _, prop := range props {
		raw = append(raw, rightmoveListing(prop))
	}
	return finalize(a.Source(), origin(p.URL), raw), nil
}

func rightmoveListing(prop any) models.Listing {
	summary := jsonString(dig(prop, "summary"))
	l := models.Listing{
		ID:          jsonString(dig(prop, "id")),
		Title:       truncateRunes(summary, maxTitleRunes),
		Address:     jsonString(dig(prop, "displayAddress")),
		Bedrooms:    jsonInt(dig(prop, "bedrooms")),
		Link:        jsonString(dig(prop, "propertyUrl")),
		Description: summary,
	}
	if l.Title == "" {
		l.Title = "Property"
	}

	amount := jsonInt(dig(prop, "price", "amount"))
	if amount != nil && strings.EqualFold(jsonString(dig(prop, "price", "frequency")), "weekly") {
		monthly := *amount * util.WeeksPerMonth
		amount = &monthly
	}
	l.PriceValue = amount
	if prices, ok := dig(prop, "price", "displayPrices").([]any); ok && len(prices) > 0 {
		l.PriceText = jsonString(dig(prices[0], "displayPrice"))
	}
	if l.PriceText == "" && amount != nil {
		l.PriceText = fmt.Sprintf("£%d", *amount)
	}

	if imgs, ok := dig(prop, "propertyImages", "images").([]any); ok {
		for _, img := range imgs {
			if src := jsonString(dig(img, "srcUrl")); src != "" {
				l.Images = append(l.Images, src)
			}
		}
	}

	if updated := jsonString(dig(prop, "listingUpdate", "listingUpdateDate")); updated != "" {
		if t, err := time.Parse(time.RFC3339, updated); err == nil {
			l.UpdatedOn = &t
		}
	}
	return l
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
