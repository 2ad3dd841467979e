package scraper

import (
	"embed"
	"log/slog"
	"os"
)

//go:embed selectors.json
var embeddedSelectors embed.FS

// LoadConfig resolves selectors in the following order:
// 1. External file named by SELECTORS_CONFIG_PATH, so drift can be patched without a rebuild
// 2. Embedded selectors.json
// 3. Hardcoded defaults
func LoadConfig() SelectorConfig {
	if configPath := os.Getenv("SELECTORS_CONFIG_PATH"); configPath != "" {
		fileSel, err := LoadSelectors(configPath)
		if err == nil {
			slog.Info("Loaded selectors from external file", "path", configPath)
			return fileSel
		}
		slog.Warn("Failed to load external selectors, trying embedded config", "path", configPath, "error", err)
	}

	data, err := embeddedSelectors.ReadFile("selectors.json")
	if err == nil {
		sel, parseErr := LoadSelectorsFromBytes(data)
		if parseErr == nil {
			slog.Debug("Loaded selectors from embedded config")
			return sel
		}
		slog.Warn("Embedded selectors failed to parse, using defaults", "error", parseErr)
	}

	slog.Info("Using hardcoded default selectors")
	return DefaultSelectors()
}
