package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"github.com/pauljones0/property-scanner/internal/models"
	"github.com/pauljones0/property-scanner/internal/util"
)

const (
	zooplaBase   = "https://www.zoopla.co.uk"
	zooplaSearch = zooplaBase + "/to-rent/property"
)

var zooplaQuery = []queryParam{
	{key: "q", name: "q", def: "property bristol bristol"},
	{key: "beds_min", name: "beds_min", def: 0},
	{key: "beds_max", name: "beds_max", def: 1},
	{key: "price_min", name: "price_min", def: 0},
	{key: "price_max", name: "price_max", def: 1500},
	{key: "radius", name: "radius", def: "0.0"},
	{key: "price_frequency", name: "price_frequency", def: "per_month"},
	{key: "search_source", name: "search_source", def: "to-rent"},
	{key: "is_retirement_home", name: "is_retirement_home", def: false},
	{key: "is_shared_accommodation", name: "is_shared_accommodation", def: false},
	{key: "is_student_accommodation", name: "is_student_accommodation", def: false},
	{key: "furnished_state", name: "furnished_state", def: "any"},
	{key: "available_from", name: "available_from", def: "1month"},
}

// Candidate locations of the result list in Zoopla's embedded JSON.
var zooplaJSONPaths = [][]string{
	{"props", "pageProps", "initialResults", "properties"},
	{"props", "pageProps", "initialResults", "listings"},
	{"props", "pageProps", "searchResults", "listings"},
	{"initialState", "searchResults", "properties"},
	{"initialState", "searchResults", "listings"},
	{"results", "properties"},
	{"results", "listings"},
}

var zooplaDetailsID = regexp.MustCompile(`/details/(\d+)`)

// Zoopla parses result cards, falling back to the page's embedded JSON when
// the markup yields nothing.
type Zoopla struct {
	fetcher   *Fetcher
	selectors CardSelectors
}

func NewZoopla(f *Fetcher, sel CardSelectors) *Zoopla {
	return &Zoopla{fetcher: f, selectors: sel}
}

func (a *Zoopla) Source() models.Source { return models.SourceZoopla }

// SupportedSorts is empty; Zoopla results are always re-sorted downstream.
func (a *Zoopla) SupportedSorts() map[models.SortStrategy]string {
	return map[models.SortStrategy]string{}
}

func (a *Zoopla) BuildURL(site models.SiteConfig) (string, error) {
	location := paramString(site.Params, "location", "bristol")
	q := buildQuery(site.Params, zooplaQuery)
	return withQuery(siteURL(site, "search_url", zooplaSearch)+"/"+url.PathEscape(location), q)
}

func (a *Zoopla) Fetch(ctx context.Context, site models.SiteConfig) (*Payload, error) {
	searchURL, err := a.BuildURL(site)
	if err != nil {
		return nil, &models.FetchError{Source: a.Source(), Err: err}
	}
	a.fetcher.Warm(ctx, siteURL(site, "base_url", zooplaBase)+"/")
	return a.fetcher.fetch(ctx, a.Source(), site, searchURL)
}

func (a *Zoopla) Parse(p *Payload) ([]models.Listing, error) {
	doc, err := parseDocument(p)
	if err != nil {
		return nil, &models.ParseError{Source: a.Source(), Err: err}
	}
	base := origin(p.URL)

	var raw []models.Listing
	cards := findCards(doc, a.selectors)
	if cards != nil {
		slog.Debug("Found Zoopla property cards", "count", cards.Length())
		cards.Each(func(_ int, card *goquery.Selection) {
			if l, ok := a.cardListing(card, base); ok {
				raw = append(raw, l)
			}
		})
	}
	if len(raw) > 0 {
		return finalize(a.Source(), base, raw), nil
	}

	var (
		props     []any
		foundJSON bool
	)
	for _, blob := range embeddedJSON(doc) {
		if list := firstList(blob, zooplaJSONPaths...); list != nil {
			props, foundJSON = list, true
			break
		}
	}
	for _, prop := range props {
		if l, ok := zooplaJSONListing(prop); ok {
			raw = append(raw, l)
		}
	}
	if !foundJSON && cards == nil && !recognised(doc, a.selectors) {
		return nil, &models.ParseError{Source: a.Source(), Err: errors.New("no result cards, container or embedded listings found")}
	}
	return finalize(a.Source(), base, raw), nil
}

func (a *Zoopla) cardListing(card *goquery.Selection, base string) (models.Listing, bool) {
	cs := a.selectors
	link := href(card, cs.Link)
	id := attr(card, cs.IDAttrs...)
	if id == "" {
		id = idFromLink(link, zooplaDetailsID)
	}
	if id == "" {
		slog.Warn("Skipping Zoopla card without an id")
		return models.Listing{}, false
	}

	l := models.Listing{
		ID:        id,
		Title:     text(card, cs.Title),
		Address:   text(card, cs.Address),
		PriceText: text(card, cs.Price),
		Link:      link,
		Images:    images(card, cs, base),
	}
	if l.Title == "" {
		l.Title = "Property"
	}
	if beds := text(card, cs.Bedrooms); beds != "" {
		l.Bedrooms = util.ParseBedrooms(beds, false)
	}
	return l, true
}

func zooplaJSONListing(prop any) (models.Listing, bool) {
	id := jsonString(dig(prop, "id"))
	if id == "" {
		id = jsonString(dig(prop, "listingId"))
	}
	if id == "" {
		return models.Listing{}, false
	}

	l := models.Listing{
		ID:      id,
		Title:   firstNonEmpty(jsonString(dig(prop, "title")), jsonString(dig(prop, "displayAddress")), "Property"),
		Address: firstNonEmpty(jsonString(dig(prop, "displayAddress")), jsonString(dig(prop, "address"))),
		Link:    firstNonEmpty(jsonString(dig(prop, "propertyUrl")), jsonString(dig(prop, "url"))),
	}

	switch price := dig(prop, "price").(type) {
	case map[string]any:
		display := jsonString(price["display"])
		if display != "" {
			l.PriceText = display
			l.PriceValue = util.ParsePrice(display)
		}
		if l.PriceValue == nil {
			l.PriceValue = jsonInt(price["amount"])
		}
	default:
		l.PriceValue = jsonInt(price)
	}
	if l.PriceText == "" && l.PriceValue != nil {
		l.PriceText = fmt.Sprintf("£%d pcm", *l.PriceValue)
	}

	if beds := jsonInt(dig(prop, "bedrooms")); beds != nil {
		l.Bedrooms = beds
	} else if features, ok := dig(prop, "features").([]any); ok {
		for _, f := range features {
			if beds := util.ParseBedrooms(jsonString(f), true); beds != nil {
				l.Bedrooms = beds
				break
			}
		}
	}

	for _, key := range []string{"images", "propertyImages", "photos"} {
		list, ok := dig(prop, key).([]any)
		if !ok {
			continue
		}
		for _, img := range list {
			src := jsonString(img)
			if src == "" {
				src = firstNonEmpty(jsonString(dig(img, "url")), jsonString(dig(img, "src")))
			}
			if src != "" {
				l.Images = append(l.Images, src)
			}
		}
	}
	return l, true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
