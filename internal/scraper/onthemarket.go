package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pauljones0/property-scanner/internal/models"
	"github.com/pauljones0/property-scanner/internal/util"
)

const onTheMarketBase = "https://www.onthemarket.com"

var onTheMarketQuery = []queryParam{
	{key: "min-bedrooms", name: "min-bedrooms", def: 0},
	{key: "max-bedrooms", name: "max-bedrooms", def: 1},
	{key: "max-price", name: "max-price", def: 1500},
	{key: "let-length", name: "let-length", def: "short-term"},
	{key: "furnished", name: "furnished", def: "furnished"},
	{key: "shared", name: "shared", def: false},
	{key: "student", name: "student", def: false},
}

// Price sometimes sits outside the card, in the surrounding row.
const onTheMarketPriceScope = ".property-row, .property-card, .listing-item"

type OnTheMarket struct {
	fetcher   *Fetcher
	selectors CardSelectors
}

func NewOnTheMarket(f *Fetcher, sel CardSelectors) *OnTheMarket {
	return &OnTheMarket{fetcher: f, selectors: sel}
}

func (a *OnTheMarket) Source() models.Source { return models.SourceOnTheMarket }

func (a *OnTheMarket) SupportedSorts() map[models.SortStrategy]string {
	return map[models.SortStrategy]string{
		models.SortPriceHighToLow: "sort-field=price",
		models.SortPriceLowToHigh: "direction=asc&sort-field=price",
		models.SortNewestFirst:    "sort-field=update_date",
	}
}

func (a *OnTheMarket) BuildURL(site models.SiteConfig) (string, error) {
	location := paramString(site.Params, "location", "bristol")
	base := siteURL(site, "base_url", onTheMarketBase)
	q := buildQuery(site.Params, onTheMarketQuery)
	applySort(q, a.SupportedSorts(), site)
	return withQuery(base+"/to-rent/property/"+url.PathEscape(location)+"/", q)
}

func (a *OnTheMarket) Fetch(ctx context.Context, site models.SiteConfig) (*Payload, error) {
	searchURL, err := a.BuildURL(site)
	if err != nil {
		return nil, &models.FetchError{Source: a.Source(), Err: err}
	}
	return a.fetcher.fetch(ctx, a.Source(), site, searchURL)
}

func (a *OnTheMarket) Parse(p *Payload) ([]models.Listing, error) {
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
	slog.Debug("Found OnTheMarket property cards", "count", cards.Length())

	base := origin(p.URL)
	var raw []models.Listing
	cards.Each(func(_ int, card *goquery.Selection) {
		if l, ok := a.cardListing(card, base); ok {
			raw = append(raw, l)
		}
	})
	return finalize(a.Source(), base, raw), nil
}

func (a *OnTheMarket) cardListing(card *goquery.Selection, base string) (models.Listing, bool) {
	cs := a.selectors
	link := href(card, cs.Link)
	id := attr(card, cs.IDAttrs...)
	if id == "" {
		id = idFromLink(link, detailsIDRegex)
	}
	if id == "" {
		slog.Warn("Skipping OnTheMarket card without an id")
		return models.Listing{}, false
	}

	title := text(card, cs.Title)
	if title == "" {
		title = "Property"
	}
	address := text(card, cs.Address)
	if address == "" && strings.Contains(title, ",") {
		address = title
		title = strings.TrimSpace(strings.SplitN(title, ",", 2)[0]) + " Property"
	}

	price := text(card, cs.Price)
	if price == "" {
		price = text(card.Closest(onTheMarketPriceScope), cs.Price)
	}

	l := models.Listing{
		ID:          id,
		Title:       title,
		Address:     address,
		PriceText:   price,
		Link:        link,
		Images:      images(card, cs, base),
		Description: text(card, cs.Description),
	}
	if beds := text(card, cs.Bedrooms); beds != "" {
		l.Bedrooms = util.ParseBedrooms(beds, false)
	}
	return l, true
}
