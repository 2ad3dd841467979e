package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pauljones0/property-scanner/internal/models"
	"github.com/pauljones0/property-scanner/internal/util"
)

const (
	openRentBase   = "https://www.openrent.co.uk"
	openRentSearch = openRentBase + "/properties-to-rent"
)

var openRentQuery = []queryParam{
	{key: "max_price", name: "prices_max", def: 1500},
	{key: "min_beds", name: "bedrooms_min", def: 0},
	{key: "max_beds", name: "bedrooms_max", def: 1},
	{key: "furnished-type", name: "furnishedType", def: "1"},
}

type OpenRent struct {
	fetcher   *Fetcher
	selectors CardSelectors
}

func NewOpenRent(f *Fetcher, sel CardSelectors) *OpenRent {
	return &OpenRent{fetcher: f, selectors: sel}
}

func (a *OpenRent) Source() models.Source { return models.SourceOpenRent }

func (a *OpenRent) SupportedSorts() map[models.SortStrategy]string {
	return map[models.SortStrategy]string{
		models.SortPriceHighToLow: "sortType=2",
		models.SortPriceLowToHigh: "sortType=1",
	}
}

func (a *OpenRent) BuildURL(site models.SiteConfig) (string, error) {
	location := paramString(site.Params, "location", "bristol")
	place := cases.Title(language.BritishEnglish).String(location)

	q := buildQuery(site.Params, openRentQuery)
	q.Set("term", place+", "+place)
	if minPrice := paramInt(site.Params, "min_price", 0); minPrice != 0 {
		q.Set("prices_min", formatParam(minPrice))
	}
	if paramBool(site.Params, "accept-non-students", true) {
		q.Set("acceptNonStudents", "true")
	}
	if paramBool(site.Params, "is-live", true) {
		q.Set("isLive", "true")
	}
	applySort(q, a.SupportedSorts(), site)
	return withQuery(siteURL(site, "search_url", openRentSearch)+"/"+url.PathEscape(location), q)
}

func (a *OpenRent) Fetch(ctx context.Context, site models.SiteConfig) (*Payload, error) {
	searchURL, err := a.BuildURL(site)
	if err != nil {
		return nil, &models.FetchError{Source: a.Source(), Err: err}
	}
	return a.fetcher.fetch(ctx, a.Source(), site, searchURL)
}

func (a *OpenRent) Parse(p *Payload) ([]models.Listing, error) {
	doc, err := parseDocument(p)
	if err != nil {
		return nil, &models.ParseError{Source: a.Source(), Err: err}
	}
	cards := findCards(doc, a.selectors)
	if cards == nil {
		if recognised(doc, a.selectors) {
			return nil, nil
		}
		return nil, &models.ParseError{Source: a.Source(), Err: errors.New("no property cards or results container found")}
	}

	base := origin(p.URL)
	location := lastPathSegment(p.URL)
	var raw []models.Listing
	cards.Each(func(_ int, card *goquery.Selection) {
		if l, ok := a.cardListing(card, base, location); ok {
			raw = append(raw, l)
		}
	})
	return finalize(a.Source(), base, raw), nil
}

func (a *OpenRent) cardListing(card *goquery.Selection, base, location string) (models.Listing, bool) {
	cs := a.selectors
	id := attr(card, cs.IDAttrs...)
	if id == "" && cs.IDElement != "" {
		id = attr(card.Find(cs.IDElement).First(), cs.IDAttrs...)
	}
	if id == "" {
		slog.Warn("Skipping OpenRent card without an id")
		return models.Listing{}, false
	}

	title := text(card, cs.Title)
	l := models.Listing{
		ID:        id,
		Title:     title,
		Address:   addressFromTitle(title),
		PriceText: text(card, cs.Price),
		Link:      href(card, cs.Link),
		Images:    images(card, cs, base),
	}
	if l.Link == "" {
		l.Link = base + "/property-to-rent/" + location + "/" + slug(title) + "/" + id
	}
	if beds := text(card, cs.Bedrooms); beds != "" {
		l.Bedrooms = util.ParseBedrooms(beds, true)
	}
	return l, true
}

// addressFromTitle takes the place out of titles like "1 Bed Flat, Foo Road
// in Bristol".
func addressFromTitle(title string) string {
	if i := strings.LastIndex(strings.ToLower(title), " in "); i >= 0 {
		return strings.TrimSpace(title[i+len(" in "):])
	}
	return ""
}

func slug(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, ",", ""))
	return strings.Join(strings.Fields(s), "-")
}
