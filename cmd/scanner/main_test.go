package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_PORT", "DISCORD_WEBHOOK_URL", "GOOGLE_CLOUD_PROJECT", "PORT"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, serverURL string) string {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`
sort_type: price_low_to_high
sites:
  rightmove:
    params:
      base_url: %q
      search_url: %q
notifications: {method: none}
storage: {sqlite_path: %q}
scanner: {max_retries: 0, requests_per_second: 0}
`, serverURL, serverURL+"/find.html", filepath.Join(dir, "seen.db"))
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_Completes(t *testing.T) {
	clearEnv(t)
	fixture, err := os.ReadFile(filepath.Join("..", "..", "internal", "scraper", "testdata", "rightmove.html"))
	if err != nil {
		t.Fatal(err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(fixture)
	}))
	defer server.Close()

	var out bytes.Buffer
	if code := run([]string{writeConfig(t, server.URL)}, &out); code != exitOK {
		t.Fatalf("run() = %d, want %d\n%s", code, exitOK, out.String())
	}
	if !strings.Contains(out.String(), "price_low_to_high") {
		t.Errorf("banner missing sort strategies:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Scan complete: 2 matching new listings") {
		t.Errorf("missing run summary:\n%s", out.String())
	}
}

func TestRun_AllSourcesFailed(t *testing.T) {
	clearEnv(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	var out bytes.Buffer
	if code := run([]string{"--config", writeConfig(t, server.URL)}, &out); code != exitOK {
		t.Errorf("run() = %d, want %d for a completed run", code, exitOK)
	}
	if !strings.Contains(out.String(), "rightmove:failed(") {
		t.Errorf("summary does not name the failed source:\n%s", out.String())
	}
}

func TestRun_Errors(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"help", []string{"--help"}, exitOK},
		{"unknown flag", []string{"--frobnicate"}, exitUsage},
		{"missing config", []string{"-c", filepath.Join(t.TempDir(), "missing.yaml")}, exitFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(tt.args, &bytes.Buffer{}); got != tt.want {
				t.Errorf("run(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}
