package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pauljones0/property-scanner/internal/models"
	"github.com/pauljones0/property-scanner/internal/util"
)

const spareroomSearch = "https://www.spareroom.co.uk/flatshare/?search_id=1361538853&mode=list"

// Spareroom lists rooms, so every listing counts as one bedroom.
type Spareroom struct {
	fetcher   *Fetcher
	selectors CardSelectors
}

func NewSpareroom(f *Fetcher, sel CardSelectors) *Spareroom {
	return &Spareroom{fetcher: f, selectors: sel}
}

func (a *Spareroom) Source() models.Source { return models.SourceSpareroom }

func (a *Spareroom) SupportedSorts() map[models.SortStrategy]string {
	return map[models.SortStrategy]string{
		models.SortPriceHighToLow: "sort_by=price_high_to_low",
		models.SortPriceLowToHigh: "sort_by=price_low_to_high",
		models.SortNewestFirst:    "sort_by=days_since_placed",
		models.SortLastUpdated:    "sort_by=last_updated",
		models.SortDefault:        "sort_by=days_since_placed",
	}
}

// BuildURL uses a saved search, so only the sort is added.
func (a *Spareroom) BuildURL(site models.SiteConfig) (string, error) {
	q := url.Values{}
	applySort(q, a.SupportedSorts(), site)
	return withQuery(siteURL(site, "search_url", spareroomSearch), q)
}

func (a *Spareroom) Fetch(ctx context.Context, site models.SiteConfig) (*Payload, error) {
	searchURL, err := a.BuildURL(site)
	if err != nil {
		return nil, &models.FetchError{Source: a.Source(), Err: err}
	}
	return a.fetcher.fetch(ctx, a.Source(), site, searchURL)
}

func (a *Spareroom) Parse(p *Payload) ([]models.Listing, error) {
	doc, err := parseDocument(p)
	if err != nil {
		return nil, &models.ParseError{Source: a.Source(), Err: err}
	}
	cards := findCards(doc, a.selectors)
	if cards == nil {
		if recognised(doc, a.selectors) {
			return nil, nil
		}
		return nil, &models.ParseError{Source: a.Source(), Err: errors.New("no listing cards or results container found")}
	}

	base := origin(p.URL)
	var raw []models.Listing
	cards.Each(func(_ int, card *goquery.Selection) {
		if l, ok := a.cardListing(card, base); ok {
			raw = append(raw, l)
		}
	})
	return finalize(a.Source(), base, raw), nil
}

func (a *Spareroom) cardListing(card *goquery.Selection, base string) (models.Listing, bool) {
	cs := a.selectors
	id := attr(card, cs.IDAttrs...)
	if id == "" {
		id = attr(card.Closest("li"), cs.IDAttrs...)
	}
	if id == "" {
		slog.Warn("Skipping Spareroom card without an id")
		return models.Listing{}, false
	}

	title := text(card, cs.Title)
	if title == "" {
		title = strings.ReplaceAll(attr(card, "data-listing-title"), "&#32;", " ")
	}
	if title == "" {
		title = "Room to rent"
	}

	l := models.Listing{
		ID:       id,
		Title:    title,
		Address:  text(card, cs.Address),
		Link:     href(card, cs.Link),
		Bedrooms: models.IntPtr(1),
	}

	l.PriceText = text(card, cs.Price)
	l.PriceValue = util.ParsePrice(l.PriceText)
	if l.PriceValue != nil && util.IsWeeklyPrice(l.PriceText) {
		l.PriceText = fmt.Sprintf("£%d pcm (calculated from %s)", *l.PriceValue, l.PriceText)
	}

	if imgs := images(card, cs, base); len(imgs) > 0 {
		l.Images = imgs[:1]
	}
	return l, true
}
