// Package app wires configuration into a ready Scanner for the command
// entry points.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/pauljones0/property-scanner/internal/config"
	"github.com/pauljones0/property-scanner/internal/models"
	"github.com/pauljones0/property-scanner/internal/notifier"
	"github.com/pauljones0/property-scanner/internal/processor"
	"github.com/pauljones0/property-scanner/internal/scraper"
	"github.com/pauljones0/property-scanner/internal/storage"
)

// App holds the long-lived dependencies built from one configuration.
type App struct {
	Scanner *processor.Scanner
	// Favorites is nil unless the sqlite backend is configured.
	Favorites *storage.SQLiteStore

	closers []io.Closer
}

type seenStore interface {
	processor.SeenStore
	io.Closer
}

// Build opens the seen store, builds one adapter per enabled site and
// returns the Scanner shared by every invocation surface.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, &models.PersistenceError{Op: "open", Err: err}
	}
	a.closers = append(a.closers, store)
	if s, ok := store.(*storage.SQLiteStore); ok {
		a.Favorites = s
	}

	n, err := notifier.New(notifier.Settings{
		Method: cfg.Notifications.Method,
		Email: notifier.EmailConfig{
			Host:      cfg.Notifications.Email.SMTPServer,
			Port:      cfg.Notifications.Email.SMTPPort,
			Username:  cfg.Notifications.Email.Username,
			Password:  cfg.Notifications.Email.Password,
			Sender:    cfg.Notifications.Email.Sender,
			Recipient: cfg.Notifications.Email.Recipient,
			StartTLS:  cfg.Notifications.Email.StartTLS,
		},
		DiscordWebhookURL: cfg.Notifications.Discord.WebhookURL,
	})
	if err != nil {
		a.Close()
		return nil, &models.ConfigError{Field: "notifications", Err: err}
	}

	fetcher, err := scraper.NewFetcher(scraper.FetcherConfig{
		Timeout:           cfg.Scanner.FetchTimeout,
		MaxRetries:        cfg.Scanner.MaxRetries,
		RequestsPerSecond: cfg.Scanner.RequestsPerSecond,
		UserAgent:         cfg.Scanner.UserAgent,
		ChromePath:        cfg.Scanner.ChromePath,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	sites, err := buildSites(cfg, fetcher, loadSelectors(cfg.Scanner.SelectorsPath))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Scanner = processor.New(processor.Options{
		Sites:        sites,
		Store:        store,
		Notifier:     n,
		Criteria:     cfg.Filters,
		SortType:     cfg.SortType,
		BypassSeen:   cfg.Debug.BypassSeenCheck,
		FetchTimeout: cfg.Scanner.FetchTimeout,
	})
	return a, nil
}

// Close releases the stores.
func (a *App) Close() error {
	var firstErr error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

func openStore(ctx context.Context, s config.Storage) (seenStore, error) {
	if s.Backend == config.BackendFirestore {
		slog.Info("Using Firestore seen store", "project", s.FirestoreProject)
		fs, err := storage.NewFirestore(ctx, s.FirestoreProject)
		if err != nil {
			return nil, err
		}
		return fs, nil
	}
	slog.Info("Using SQLite seen store", "path", s.SQLitePath)
	db, err := storage.OpenSQLite(ctx, s.SQLitePath)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func loadSelectors(path string) scraper.SelectorConfig {
	if path == "" {
		return scraper.LoadConfig()
	}
	sel, err := scraper.LoadSelectors(path)
	if err != nil {
		slog.Warn("Failed to load selectors, using built-in set", "path", path, "error", err)
		return scraper.LoadConfig()
	}
	return sel
}

func buildSites(cfg *config.Config, f *scraper.Fetcher, sel scraper.SelectorConfig) ([]processor.Site, error) {
	enabled := cfg.Sites.Enabled()
	adapters, err := scraper.Build(cfg.Sites.Sources(), f, sel)
	if err != nil {
		return nil, &models.ConfigError{Field: "sites", Err: err}
	}
	sites := make([]processor.Site, 0, len(adapters))
	for i, a := range adapters {
		sites = append(sites, processor.Site{Adapter: a, Config: enabled[i].SiteConfig})
	}
	if len(sites) == 0 {
		return nil, &models.ConfigError{Field: "sites", Err: fmt.Errorf("no site is enabled")}
	}
	return sites, nil
}
