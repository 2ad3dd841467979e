package scraper

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/pauljones0/property-scanner/internal/models"
)

func loadPayload(t *testing.T, name, pageURL string) *Payload {
	t.Helper()
	body, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return &Payload{URL: pageURL, Body: body, FetchedAt: time.Now()}
}

func intVal(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

// summary reduces a listing to the fields the parse tests assert on.
type summary struct {
	ID, Title, Address, PriceText, Link string
	Price, Beds                         any
	Images                              int
}

func summarize(ls []models.Listing) []summary {
	out := make([]summary, 0, len(ls))
	for _, l := range ls {
		out = append(out, summary{
			ID:        l.ID,
			Title:     l.Title,
			Address:   l.Address,
			PriceText: l.PriceText,
			Link:      l.Link,
			Price:     intVal(l.PriceValue),
			Beds:      intVal(l.Bedrooms),
			Images:    len(l.Images),
		})
	}
	return out
}

func assertSource(t *testing.T, ls []models.Listing, want models.Source) {
	t.Helper()
	for _, l := range ls {
		if l.Source != want {
			t.Errorf("listing %s has source %q, want %q", l.ID, l.Source, want)
		}
	}
}

func TestRightmoveParse(t *testing.T) {
	a := NewRightmove(nil)
	got, err := a.Parse(loadPayload(t, "rightmove.html", "https://www.rightmove.co.uk/property-to-rent/find.html?locationIdentifier=REGION%5E219"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := []summary{
		{
			ID:        "152341234",
			Title:     "A bright one bedroom flat close to the harbourside with a private balcony and allocated parking. Ava",
			Address:   "Hotwell Road, Bristol, BS8",
			PriceText: "£1,150 pcm",
			Link:      "https://www.rightmove.co.uk/properties/152341234",
			Price:     1150,
			Beds:      1,
			Images:    2,
		},
		{
			ID:        "152349999",
			Title:     "Studio",
			Address:   "Stokes Croft, Bristol",
			PriceText: "£200 pw",
			Link:      "https://www.rightmove.co.uk/properties/152349999",
			Price:     800,
			Beds:      0,
		},
	}
	if diff := cmp.Diff(want, summarize(got)); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
	assertSource(t, got, models.SourceRightmove)

	if got[0].UpdatedOn == nil || !got[0].UpdatedOn.Equal(time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("UpdatedOn = %v, want 2026-10-01T09:30:00Z", got[0].UpdatedOn)
	}
	if got[1].UpdatedOn != nil {
		t.Errorf("UpdatedOn = %v, want nil when not reported", got[1].UpdatedOn)
	}
}

func TestRightmoveParse_EmptyResults(t *testing.T) {
	got, err := NewRightmove(nil).Parse(loadPayload(t, "rightmove_empty.html", "https://www.rightmove.co.uk/property-to-rent/find.html"))
	if err != nil {
		t.Fatalf("Parse() error = %v, want nil for an empty result page", err)
	}
	if len(got) != 0 {
		t.Errorf("Parse() returned %d listings, want 0", len(got))
	}
}

func TestZooplaParse_Cards(t *testing.T) {
	a := NewZoopla(nil, DefaultSelectors().Zoopla)
	got, err := a.Parse(loadPayload(t, "zoopla.html", "https://www.zoopla.co.uk/to-rent/property/bristol?q=bristol"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := []summary{
		{
			ID:        "67012345",
			Title:     "2 bed flat to rent",
			Address:   "Gloucester Road, Bristol BS7",
			PriceText: "£1,400 pcm",
			Link:      "https://www.zoopla.co.uk/to-rent/details/67012345",
			Price:     1400,
			Beds:      2,
			Images:    1,
		},
		{
			ID:        "67054321",
			Title:     "1 bed flat to rent",
			Address:   "Cotham Hill, Bristol BS6",
			PriceText: "£300 pw",
			Link:      "https://www.zoopla.co.uk/to-rent/details/67054321",
			Price:     1200,
		},
	}
	if diff := cmp.Diff(want, summarize(got)); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
	assertSource(t, got, models.SourceZoopla)
	if got[0].Images[0] != "https://lid.zoocdn.com/645/430/a.jpg" {
		t.Errorf("image = %q, want protocol-relative URL upgraded to https", got[0].Images[0])
	}
}

func TestZooplaParse_EmbeddedJSONFallback(t *testing.T) {
	a := NewZoopla(nil, DefaultSelectors().Zoopla)
	got, err := a.Parse(loadPayload(t, "zoopla_json.html", "https://www.zoopla.co.uk/to-rent/property/bristol"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := []summary{
		{
			ID:        "68000001",
			Title:     "1 bed flat to rent",
			Address:   "Redland, Bristol",
			PriceText: "£950 pcm",
			Link:      "https://www.zoopla.co.uk/to-rent/details/68000001",
			Price:     950,
			Beds:      1,
			Images:    2,
		},
		{
			ID:        "68000002",
			Title:     "Easton, Bristol",
			Address:   "Easton, Bristol",
			PriceText: "£800 pcm",
			Link:      "https://www.zoopla.co.uk/to-rent/details/68000002",
			Price:     800,
			Beds:      1,
		},
	}
	if diff := cmp.Diff(want, summarize(got)); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestOnTheMarketParse(t *testing.T) {
	a := NewOnTheMarket(nil, DefaultSelectors().OnTheMarket)
	got, err := a.Parse(loadPayload(t, "onthemarket.html", "https://www.onthemarket.com/to-rent/property/bristol/?max-price=1500"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := []summary{
		{
			ID:        "15550001",
			Title:     "1 bedroom flat to rent",
			Address:   "Whiteladies Road, Clifton, Bristol",
			PriceText: "£1,100 pcm",
			Link:      "https://www.onthemarket.com/details/15550001",
			Price:     1100,
			Beds:      1,
			Images:    1,
		},
		{
			ID:        "15550002",
			Title:     "Park Street Property",
			Address:   "Park Street, Bristol",
			PriceText: "£1,300 pcm",
			Link:      "https://www.onthemarket.com/details/15550002",
			Price:     1300,
		},		{
			ID:        "15550003",
			Title:     "2 bedroom flat to rent",
			Address:   "Gloucester Road, Bristol",
			PriceText: "£1,250 pcm (£288 pw)",
			Link:      "https://www.onthemarket.com/details/15550003",
			Price:     1250,
			Beds:      2,
		},
	}
	if diff := cmp.Diff(want, summarize(got)); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
	if got[0].Description != "Newly refurbished." {
		t.Errorf("Description = %q, want %q", got[0].Description, "Newly refurbished.")
	}
}

func TestOnTheMarketParse_NoResults(t *testing.T) {
	a := NewOnTheMarket(nil, DefaultSelectors().OnTheMarket)
	got, err := a.Parse(loadPayload(t, "onthemarket_empty.html", "https://www.onthemarket.com/to-rent/property/bristol/"))
	if err != nil {
		t.Fatalf("Parse() error = %v, want nil for an explicit no-results page", err)
	}
	if len(got) != 0 {
		t.Errorf("Parse() returned %d listings, want 0", len(got))
	}
}

func TestSpareroomParse(t *testing.T) {
	a := NewSpareroom(nil, DefaultSelectors().Spareroom)
	got, err := a.Parse(loadPayload(t, "spareroom.html", "https://www.spareroom.co.uk/flatshare/?search_id=1361538853&mode=list"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := []summary{
		{
			ID:        "17770001",
			Title:     "Double room in Redland",
			Address:   "Redland (BS6)",
			PriceText: "£800 pcm (calculated from £200 pw)",
			Link:      "https://www.spareroom.co.uk/flatshare/flatshare_detail.pl?flatshare_id=17770001",
			Price:     800,
			Beds:      1,
			Images:    1,
		},
		{
			ID:        "17770002",
			Title:     "Ensuite room",
			Address:   "Clifton (BS8)",
			PriceText: "£750 pcm",
			Link:      "https://www.spareroom.co.uk/flatshare/flatshare_detail.pl?flatshare_id=17770002",
			Price:     750,
			Beds:      1,
		},
	}
	if diff := cmp.Diff(want, summarize(got)); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenRentParse(t *testing.T) {
	a := NewOpenRent(nil, DefaultSelectors().OpenRent)
	got, err := a.Parse(loadPayload(t, "openrent.html", "https://www.openrent.co.uk/properties-to-rent/bristol?term=Bristol"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := []summary{
		{
			ID:        "2100001",
			Title:     "1 Bed Flat, Cheltenham Road in Bristol",
			Address:   "Bristol",
			PriceText: "£1,050 per month",
			Link:      "https://www.openrent.co.uk/property-to-rent/bristol/1-bed-flat-cheltenham-road/2100001",
			Price:     1050,
			Beds:      1,
			Images:    1,
		},
		{
			ID:        "2100002",
			Title:     "Studio Flat, North Street in Bedminster",
			Address:   "Bedminster",
			PriceText: "£900 per month",
			Link:      "https://www.openrent.co.uk/property-to-rent/bristol/studio-flat-north-street-in-bedminster/2100002",
			Price:     900,
		},
	}
	if diff := cmp.Diff(want, summarize(got)); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_UnrecognisedPageIsParseError(t *testing.T) {
	sel := DefaultSelectors()
	adapters := []Adapter{
		NewRightmove(nil),
		NewZoopla(nil, sel.Zoopla),
		NewOnTheMarket(nil, sel.OnTheMarket),
		NewSpareroom(nil, sel.Spareroom),
		NewOpenRent(nil, sel.OpenRent),
	}
	tests := []struct {
		name    string
		adapter Adapter
		fixture string
	}{
		// Site chrome is still present but the card markup changed.
		{"spareroom/drifted cards", NewSpareroom(nil, sel.Spareroom), "spareroom_drift.html"},
	}
	for _, a := range adapters {
		tests = append(tests, struct {
			name    string
			adapter Adapter
			fixture string
		}{string(a.Source()) + "/blocked", a, "blocked.html"})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.adapter.Parse(loadPayload(t, tt.fixture, "https://example.com/search"))
			var pe *models.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("Parse() = %d listings, error %v, want *models.ParseError", len(got), err)
			}
			if pe.Source != tt.adapter.Source() {
				t.Errorf("ParseError.Source = %q, want %q", pe.Source, tt.adapter.Source())
			}
		})
	}
}

func TestBuild(t *testing.T) {
	order := []models.Source{models.SourceZoopla, models.SourceRightmove, models.SourceOpenRent}
	adapters, err := Build(order, nil, DefaultSelectors())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	var got []models.Source
	for _, a := range adapters {
		got = append(got, a.Source())
	}
	if diff := cmp.Diff(order, got); diff != "" {
		t.Errorf("Build() order mismatch (-want +got):\n%s", diff)
	}

	if _, err := Build([]models.Source{"gumtree"}, nil, DefaultSelectors()); err == nil {
		t.Error("Build() with unknown source expected error, got nil")
	}
}
