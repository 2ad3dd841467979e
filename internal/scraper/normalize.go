package scraper

import (
	"log/slog"
	"strings"

	"github.com/pauljones0/property-scanner/internal/models"
	"github.com/pauljones0/property-scanner/internal/util"
	"github.com/pauljones0/property-scanner/internal/validator"
)

var listingValidator = validator.New()

// finalize brings raw adapter output to the canonical shape: absolute
// https links without tracking params, real photo URLs only, collapsed
// whitespace and a parsed price. Listings that still fail validation or
// repeat an id already on the page are dropped.
func finalize(source models.Source, base string, raw []models.Listing) []models.Listing {
	out := make([]models.Listing, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, l := range raw {
		l.Source = source
		l.ID = strings.TrimSpace(l.ID)
		l.Title = util.CollapseSpace(l.Title)
		l.Address = util.CollapseSpace(l.Address)
		l.PriceText = util.CollapseSpace(l.PriceText)
		l.Description = util.CollapseSpace(l.Description)
		if l.PriceValue == nil && l.PriceText != "" {
			l.PriceValue = util.ParsePrice(l.PriceText)
		}

		if l.Link != "" {
			link, err := util.NormalizeURL(util.AbsoluteURL(base, l.Link))
			if err == nil {
				l.Link = link
			}
		}
		l.Images = cleanImages(base, l.Images)

		if err := listingValidator.ValidateListing(l); err != nil {
			slog.Warn("Dropping invalid listing", "source", source, "id", l.ID, "error", err)
			continue
		}
		if seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		out = append(out, l)
	}
	return out
}

func cleanImages(base string, imgs []string) []string {
	out := make([]string, 0, len(imgs))
	seen := make(map[string]bool, len(imgs))
	for _, src := range imgs {
		src = util.AbsoluteURL(base, src)
		if !util.IsImageURL(src) || seen[src] {
			continue
		}
		seen[src] = true
		out = append(out, src)
	}
	return out
}
