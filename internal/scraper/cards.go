package scraper

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pauljones0/property-scanner/internal/util"
)

func parseDocument(p *Payload) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// findCards returns the first non-empty match of the card selectors, or nil.
func findCards(doc *goquery.Document, cs CardSelectors) *goquery.Selection {
	for _, sel := range cs.Card {
		if cards := doc.Find(sel); cards.Length() > 0 {
			return cards
		}
	}
	return nil
}

// recognised reports whether the page is a results page, empty or not.
func recognised(doc *goquery.Document, cs CardSelectors) bool {
	for _, group := range [][]string{cs.Container, cs.NoResults} {
		for _, sel := range group {
			if doc.Find(sel).Length() > 0 {
				return true
			}
		}
	}
	return false
}

func text(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return util.CollapseSpace(s.Find(selector).First().Text())
}

func attr(s *goquery.Selection, attrs ...string) string {
	for _, a := range attrs {
		if v, ok := s.Attr(a); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func href(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return attr(s.Find(selector).First(), "href")
}

// images collects candidate photo URLs from a card, resolved against base.
func images(s *goquery.Selection, cs CardSelectors, base string) []string {
	if cs.Image == "" {
		return nil
	}
	var out []string
	s.Find(cs.Image).Each(func(_ int, img *goquery.Selection) {
		if src := attr(img, cs.ImageAttrs...); src != "" {
			out = append(out, util.AbsoluteURL(base, src))
		}
	})
	return out
}

// idFromLink pulls an id out of a listing URL with re's first group.
func idFromLink(link string, re *regexp.Regexp) string {
	if m := re.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	return ""
}

var detailsIDRegex = regexp.MustCompile(`/details/([^/?#]+)`)
