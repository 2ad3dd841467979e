//go:build integration

package processor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pauljones0/property-scanner/internal/models"
	"github.com/pauljones0/property-scanner/internal/notifier"
	"github.com/pauljones0/property-scanner/internal/scraper"
	"github.com/pauljones0/property-scanner/internal/storage"
)

// Integration test that wires real adapters against a mock HTTP server,
// a real SQLite seen store, and a mock notifier to test the full pipeline.

func TestIntegration_FullPipeline(t *testing.T) {
	rightmovePage, err := os.ReadFile(filepath.Join("..", "scraper", "testdata", "rightmove.html"))
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>home</html>"))
	})
	mux.HandleFunc("/rightmove/find.html", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sortType") != "1" {
			t.Errorf("sortType = %q, want 1", r.URL.Query().Get("sortType"))
		}
		w.Write(rightmovePage)
	})
	mux.HandleFunc("/zoopla/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusServiceUnavailable)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fetcher, err := scraper.NewFetcher(scraper.FetcherConfig{
		Timeout:   5 * time.Second,
		RetryBase: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewFetcher() error = %v", err)
	}
	adapters, err := scraper.Build([]models.Source{models.SourceRightmove, models.SourceZoopla}, fetcher, scraper.DefaultSelectors())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	ctx := context.Background()
	store, err := storage.OpenSQLite(ctx, filepath.Join(t.TempDir(), "seen.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer store.Close()

	notif := &mockNotifier{}
	scanner := New(Options{
		Sites: []Site{
			{Adapter: adapters[0], Config: models.SiteConfig{Enabled: true, Params: map[string]any{
				"base_url":   server.URL,
				"search_url": server.URL + "/rightmove/find.html",
			}}},
			{Adapter: adapters[1], Config: models.SiteConfig{Enabled: true, Params: map[string]any{
				"base_url":   server.URL,
				"search_url": server.URL + "/zoopla",
				"location":   "bristol",
			}}},
		},
		Store:    store,
		Notifier: notif,
		Criteria: models.FilterCriteria{
			MaxPrice:        models.IntPtr(1200),
			ExcludeKeywords: []string{"studio"},
		},
		SortType: models.SortPriceLowToHigh,
	})

	report, err := scanner.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Merged != 2 || report.New != 2 || report.FilteredOut != 1 || report.Notified != 1 {
		t.Errorf("first run = %s", report.Summary())
	}
	if got := report.FailedSources(); len(got) != 1 || got[0] != models.SourceZoopla {
		t.Errorf("FailedSources() = %v, want [zoopla]", got)
	}
	if len(report.Listings) != 1 || report.Listings[0].ID != "152341234" {
		t.Errorf("Listings = %+v", report.Listings)
	}

	rows, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if rows != 2 {
		t.Errorf("seen rows = %d, want 2 (filtered listings included)", rows)
	}

	second, err := scanner.Run(ctx)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if second.New != 0 || second.Notified != 0 {
		t.Errorf("second run = %s, want nothing new", second.Summary())
	}
	if rows, _ := store.Count(ctx); rows != 2 {
		t.Errorf("seen rows after second run = %d, want 2", rows)
	}
	if len(notif.batches) != 1 {
		t.Errorf("notify calls = %d, want 1", len(notif.batches))
	}
}

func TestIntegration_LogNotifierFallback(t *testing.T) {
	store, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "seen.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer store.Close()

	n, err := notifier.New(notifier.Settings{Method: notifier.MethodLog})
	if err != nil {
		t.Fatalf("notifier.New() error = %v", err)
	}
	a := &mockAdapter{source: models.SourceOpenRent, listings: []models.Listing{
		listing(models.SourceOpenRent, "2001", models.IntPtr(950), models.IntPtr(1)),
	}}
	scanner := New(Options{
		Sites:    []Site{{Adapter: a, Config: models.SiteConfig{Enabled: true}}},
		Store:    store,
		Notifier: n,
	})

	report, err := scanner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Notified != 1 || report.NotifyErr != nil {
		t.Errorf("report = %s", report.Summary())
	}
	seen, err := store.Contains(context.Background(), models.SourceOpenRent, "2001")
	if err != nil || !seen {
		t.Errorf("Contains() = %v, %v, want true", seen, err)
	}
}
