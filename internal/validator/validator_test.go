package validator

import (
	"strings"
	"testing"

	"github.com/pauljones0/property-scanner/internal/models"
)

func TestValidator_ValidateListing(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		listing models.Listing
		wantErr bool
	}{
		{
			name: "Valid Listing",
			listing: models.Listing{
				ID:         "123",
				Source:     models.SourceRightmove,
				Title:      "2 bed flat",
				Link:       "https://www.rightmove.co.uk/properties/123",
				PriceValue: models.IntPtr(900),
				Bedrooms:   models.IntPtr(2),
			},
			wantErr: false,
		},
		{
			name: "Unknown price and bedrooms",
			listing: models.Listing{
				ID:     "124",
				Source: models.SourceZoopla,
				Link:   "https://www.zoopla.co.uk/to-rent/details/124",
			},
			wantErr: false,
		},
		{
			name: "Missing ID",
			listing: models.Listing{
				Source: models.SourceRightmove,
				Link:   "https://www.rightmove.co.uk/properties/123",
			},
			wantErr: true,
		},
		{
			name: "Relative link",
			listing: models.Listing{
				ID:     "123",
				Source: models.SourceRightmove,
				Link:   "/properties/123",
			},
			wantErr: true,
		},
		{
			name: "Negative bedrooms",
			listing: models.Listing{
				ID:       "123",
				Source:   models.SourceOpenRent,
				Link:     "https://www.openrent.co.uk/123",
				Bedrooms: models.IntPtr(-1),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := v.ValidateListing(tt.listing); (err != nil) != tt.wantErr {
				t.Errorf("ValidateListing() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidator_CustomTags(t *testing.T) {
	type sample struct {
		Sort   models.SortStrategy `yaml:"sort_type" validate:"sort_strategy"`
		Source string              `yaml:"source" validate:"source"`
	}
	v := New()

	if err := v.ValidateStruct(sample{Sort: models.SortNewestFirst, Source: "spareroom"}); err != nil {
		t.Errorf("valid sample rejected: %v", err)
	}
	if err := v.ValidateStruct(sample{Source: "openrent"}); err != nil {
		t.Errorf("empty sort strategy should be allowed: %v", err)
	}

	err := v.ValidateStruct(sample{Sort: "cheapest", Source: "gumtree"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"sort_type", "source"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not name field %q", err, want)
		}
	}
}
