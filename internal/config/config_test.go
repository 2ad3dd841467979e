package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/pauljones0/property-scanner/internal/models"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_PORT", "DISCORD_WEBHOOK_URL", "GOOGLE_CLOUD_PROJECT", "PORT"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

const fullConfig = `
sort_type: price_low_to_high
sites:
  zoopla:
    params: {location: bristol}
  rightmove:
    enabled: true
    sort_type: newest_first
    params:
      location_identifier: "REGION^219"
      max_price: 1200
  spareroom:
    enabled: false
filters:
  min_price: 500
  max_price: 1200
  min_beds: 1
  max_beds: null
  exclude_keywords: [studio]
notifications:
  method: email
  email:
    smtp_server: smtp.example.com
    smtp_port: 587
    username: file-user
    password: file-pass
    sender: scanner@example.com
    recipient: me@example.com
    starttls: true
debug:
  bypass_seen_check: true
  log_level: debug
scanner:
  fetch_timeout: 20s
  max_retries: 1
server:
  schedule: "@every 30m"
`

func TestLoad(t *testing.T) {
	clearEnv(t)
	t.Setenv("SMTP_PASSWORD", "env-pass")
	t.Setenv("PORT", "9090")

	cfg, err := Load(writeConfig(t, "config.yaml", fullConfig))
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.SortType != models.SortPriceLowToHigh {
		t.Errorf("SortType = %q", cfg.SortType)
	}
	wantOrder := []models.Source{models.SourceZoopla, models.SourceRightmove}
	if diff := cmp.Diff(wantOrder, cfg.Sites.Sources()); diff != "" {
		t.Errorf("enabled sources mismatch (-want +got):\n%s", diff)
	}
	if len(cfg.Sites) != 3 || cfg.Sites[2].Enabled {
		t.Errorf("Sites = %+v, want spareroom kept but disabled", cfg.Sites)
	}
	rm := cfg.Sites[1]
	if rm.SortType != models.SortNewestFirst || rm.Params["location_identifier"] != "REGION^219" || rm.Params["max_price"] != 1200 {
		t.Errorf("rightmove = %+v", rm.SiteConfig)
	}

	f := cfg.Filters
	if f.MinPrice == nil || *f.MinPrice != 500 || f.MaxPrice == nil || *f.MaxPrice != 1200 || f.MaxBeds != nil {
		t.Errorf("Filters = %+v", f)
	}
	if diff := cmp.Diff([]string{"studio"}, f.ExcludeKeywords); diff != "" {
		t.Errorf("ExcludeKeywords mismatch (-want +got):\n%s", diff)
	}

	e := cfg.Notifications.Email
	if e.Username != "file-user" || e.Password != "env-pass" || e.SMTPPort != 587 || !e.StartTLS {
		t.Errorf("Email = %+v", e)
	}
	if !cfg.Debug.BypassSeenCheck || cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("Debug = %+v", cfg.Debug)
	}
	if cfg.Scanner.FetchTimeout != 20*time.Second || cfg.Scanner.MaxRetries != 1 {
		t.Errorf("Scanner = %+v", cfg.Scanner)
	}
	if cfg.Server.Port != "9090" || cfg.Server.Schedule != "@every 30m" {
		t.Errorf("Server = %+v", cfg.Server)
	}
}

func TestLoad_JSON(t *testing.T) {
	clearEnv(t)
	body := `{
  "sort_type": "price_high_to_low",
  "sites": {"openrent": {"enabled": true}, "onthemarket": {"enabled": true}},
  "filters": {"keywords": ["garden"]},
  "notifications": {"method": "none"}
}`
	cfg, err := Load(writeConfig(t, "config.json", body))
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	want := []models.Source{models.SourceOpenRent, models.SourceOnTheMarket}
	if diff := cmp.Diff(want, cfg.Sites.Sources()); diff != "" {
		t.Errorf("enabled sources mismatch (-want +got):\n%s", diff)
	}
	if cfg.Notifications.Method != "none" {
		t.Errorf("Method = %q, want none", cfg.Notifications.Method)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, "config.yaml", "{}\n"))
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.SortType != models.SortDefault {
		t.Errorf("SortType = %q, want default", cfg.SortType)
	}
	if diff := cmp.Diff([]models.Source{models.SourceRightmove}, cfg.Sites.Sources()); diff != "" {
		t.Errorf("default sites mismatch (-want +got):\n%s", diff)
	}
	if cfg.Notifications.Method != "log" {
		t.Errorf("Method = %q, want log when no email server is set", cfg.Notifications.Method)
	}
	if cfg.Storage.Backend != BackendSQLite || cfg.Storage.SQLitePath != "data/scanner.db" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Scanner.FetchTimeout != 45*time.Second || cfg.Server.Port != "8080" || cfg.Server.RunTimeout != 5*time.Minute {
		t.Errorf("defaults = %+v %+v", cfg.Scanner, cfg.Server)
	}
	if cfg.Notifications.Email.SMTPPort != 465 {
		t.Errorf("SMTPPort = %d, want 465", cfg.Notifications.Email.SMTPPort)
	}
}

func TestLoad_EmailMethodInferred(t *testing.T) {
	clearEnv(t)
	body := `
notifications:
  email: {smtp_server: smtp.example.com, sender: scanner@example.com, recipient: me@example.com}
`
	cfg, err := Load(writeConfig(t, "config.yaml", body))
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.Notifications.Method != "email" {
		t.Errorf("Method = %q, want email", cfg.Notifications.Method)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/token")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "test-project")
	t.Setenv("SMTP_USERNAME", "env-user")

	body := `
notifications: {method: discord}
storage: {backend: firestore}
`
	cfg, err := Load(writeConfig(t, "config.yaml", body))
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.Notifications.Discord.WebhookURL != "https://discord.com/api/webhooks/1/token" {
		t.Errorf("WebhookURL = %q", cfg.Notifications.Discord.WebhookURL)
	}
	if cfg.Storage.FirestoreProject != "test-project" {
		t.Errorf("FirestoreProject = %q", cfg.Storage.FirestoreProject)
	}
	if cfg.Notifications.Email.Username != "env-user" {
		t.Errorf("Username = %q", cfg.Notifications.Email.Username)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{"unknown site", "sites: {craigslist: {enabled: true}}", nil},
		{"duplicate site", "sites:\n  rightmove: {}\n  rightmove: {}\n", nil},
		{"sites not a mapping", "sites: [rightmove]", nil},
		{"unknown sort", "sort_type: cheapest", nil},
		{"unknown site sort", "sites: {rightmove: {sort_type: cheapest}}", nil},
		{"inverted price range", "filters: {min_price: 1500, max_price: 500}", nil},
		{"negative beds", "filters: {min_beds: -1}", nil},
		{"unknown method", "notifications: {method: sms}", nil},
		{"email without server", "notifications: {method: email, email: {sender: a@example.com, recipient: b@example.com}}", nil},
		{"invalid recipient", "notifications: {method: email, email: {smtp_server: smtp.example.com, sender: a@example.com, recipient: not-an-address}}", nil},
		{"discord without webhook", "notifications: {method: discord}", nil},
		{"firestore without project", "storage: {backend: firestore}", nil},
		{"unknown backend", "storage: {backend: redis}", nil},
		{"unknown log level", "debug: {log_level: verbose}", nil},
		{"malformed yaml", "sites: {rightmove: [", nil},
		{"bad duration", "scanner: {fetch_timeout: soon}", nil},
		{"bad SMTP_PORT", "{}", map[string]string{"SMTP_PORT": "smtp"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, "config.yaml", tt.body))
			var ce *models.ConfigError
			if !errors.As(err, &ce) {
				t.Errorf("Load() error = %v, want *models.ConfigError", err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	var ce *models.ConfigError
	if !errors.As(err, &ce) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want ConfigError wrapping ErrNotExist", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for name, want := range tests {
		if got := ParseLevel(name); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", name, got, want)
		}
	}
}
