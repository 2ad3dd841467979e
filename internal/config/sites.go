package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/pauljones0/property-scanner/internal/models"
)

// Site is one entry of the sites mapping.
type Site struct {
	Source models.Source
	models.SiteConfig
}

// Sites keeps the order in which sites appear in the file; that order is the
// enablement order of the run.
type Sites []Site

type siteYAML struct {
	Enabled  *bool               `yaml:"enabled"`
	SortType models.SortStrategy `yaml:"sort_type"`
	Params   map[string]any      `yaml:"params"`
}

func (s *Sites) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: sites must be a mapping of site name to settings", node.Line)
	}
	out := make(Sites, 0, len(node.Content)/2)
	seen := make(map[models.Source]bool)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]

		source, ok := models.ParseSource(keyNode.Value)
		if !ok {
			return &models.ConfigError{Field: "sites." + keyNode.Value, Err: fmt.Errorf("line %d: unknown site", keyNode.Line)}
		}
		if seen[source] {
			return &models.ConfigError{Field: "sites." + keyNode.Value, Err: fmt.Errorf("line %d: listed twice", keyNode.Line)}
		}
		seen[source] = true

		var raw siteYAML
		if valueNode.Tag != "!!null" {
			if err := valueNode.Decode(&raw); err != nil {
				return fmt.Errorf("sites.%s: %w", keyNode.Value, err)
			}
		}
		enabled := true
		if raw.Enabled != nil {
			enabled = *raw.Enabled
		}
		out = append(out, Site{
			Source: source,
			SiteConfig: models.SiteConfig{
				Enabled:  enabled,
				SortType: raw.SortType,
				Params:   raw.Params,
			},
		})
	}
	*s = out
	return nil
}

// Enabled returns the enabled sites in file order.
func (s Sites) Enabled() []Site {
	var out []Site
	for _, site := range s {
		if site.Enabled {
			out = append(out, site)
		}
	}
	return out
}

// Sources returns the enabled sources in file order.
func (s Sites) Sources() []models.Source {
	enabled := s.Enabled()
	out := make([]models.Source, 0, len(enabled))
	for _, site := range enabled {
		out = append(out, site.Source)
	}
	return out
}
