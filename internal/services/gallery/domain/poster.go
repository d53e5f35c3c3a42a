// Package domain defines the poster catalog model and its invariants.
package domain

import (
	"strings"

	apperrors "github.com/zyrr/gallery/internal/platform/errors"
)

// SummaryPaletteSize caps the color palette in listing projections.
const SummaryPaletteSize = 3

// Availability is the sale state of a poster.
type Availability string

const (
	AvailabilityAvailable Availability = "available"
	AvailabilityLimited   Availability = "limited"
	AvailabilitySold      Availability = "sold"
)

// ParseAvailability validates a raw availability label.
func ParseAvailability(value string) (Availability, error) {
	switch a := Availability(strings.TrimSpace(value)); a {
	case AvailabilityAvailable, AvailabilityLimited, AvailabilitySold:
		return a, nil
	default:
		return "", apperrors.WithMetadata(
			apperrors.CodePosterInvalidAvailability,
			"availability must be one of available, limited, sold",
			map[string]string{"availability": value},
		)
	}
}

// PanelImages are the three images of a triptych, left to right.
type PanelImages struct {
	Left   string `json:"left"`
	Center string `json:"center"`
	Right  string `json:"right"`
}

// Dimensions is the physical print size.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Unit   string  `json:"unit"`
}

// Variant is an alternative print size with its own price.
type Variant struct {
	Size       string  `json:"size"`
	Price      float64 `json:"price"`
	Dimensions string  `json:"dimensions"`
}

// Metadata carries descriptive attributes shown next to a poster.
type Metadata struct {
	AspectRatio  string   `json:"aspectRatio"`
	ColorPalette []string `json:"colorPalette"`
	Mood         string   `json:"mood"`
	Technique    string   `json:"technique"`
}

// Poster is a three-panel artwork offered in the gallery.
type Poster struct {
	ID           string       `json:"id"`
	Slug         string       `json:"slug"`
	Title        string       `json:"title"`
	Subtitle     string       `json:"subtitle,omitempty"`
	Description  string       `json:"description,omitempty"`
	PreviewImage string       `json:"previewImage"`
	PanelImages  PanelImages  `json:"panelImages"`
	Price        float64      `json:"price"`
	Dimensions   *Dimensions  `json:"dimensions,omitempty"`
	Medium       string       `json:"medium,omitempty"`
	Year         int          `json:"year,omitempty"`
	Edition      string       `json:"edition,omitempty"`
	Availability Availability `json:"availability"`
	Variants     []Variant    `json:"variants,omitempty"`
	Metadata     *Metadata    `json:"metadata,omitempty"`
}

// Validate checks the invariants every stored poster must satisfy.
func Validate(p Poster) error {
	if strings.TrimSpace(p.ID) == "" {
		return apperrors.New(apperrors.CodePosterIDEmpty, "poster id is required")
	}
	if strings.TrimSpace(p.Slug) == "" {
		return apperrors.New(apperrors.CodePosterSlugEmpty, "poster slug is required")
	}
	if strings.TrimSpace(p.Title) == "" {
		return apperrors.New(apperrors.CodePosterTitleEmpty, "poster title is required")
	}
	if strings.TrimSpace(p.PreviewImage) == "" {
		return apperrors.New(apperrors.CodePosterPreviewImageEmpty, "poster preview image is required")
	}
	for _, panel := range []struct {
		name, url string
	}{
		{"left", p.PanelImages.Left},
		{"center", p.PanelImages.Center},
		{"right", p.PanelImages.Right},
	} {
		if strings.TrimSpace(panel.url) == "" {
			return apperrors.WithMetadata(
				apperrors.CodePosterPanelImageMissing,
				"poster "+panel.name+" panel image is required",
				map[string]string{"panel": panel.name},
			)
		}
	}
	if p.Price < 0 {
		return apperrors.New(apperrors.CodePosterInvalidPrice, "poster price must not be negative")
	}
	if _, err := ParseAvailability(string(p.Availability)); err != nil {
		return err
	}
	for _, v := range p.Variants {
		if v.Price < 0 {
			return apperrors.WithMetadata(
				apperrors.CodePosterInvalidPrice,
				"variant price must not be negative",
				map[string]string{"variant": v.Size},
			)
		}
	}
	return nil
}

// Normalize trims identifying and display fields in place.
func (p *Poster) Normalize() {
	p.ID = strings.TrimSpace(p.ID)
	p.Slug = strings.TrimSpace(p.Slug)
	p.Title = strings.TrimSpace(p.Title)
	p.Subtitle = strings.TrimSpace(p.Subtitle)
	p.Availability = Availability(strings.TrimSpace(string(p.Availability)))
}

// Summary returns the listing projection of p: a copy whose color palette
// holds at most SummaryPaletteSize entries.
func (p Poster) Summary() Poster {
	out := p
	if p.Dimensions != nil {
		d := *p.Dimensions
		out.Dimensions = &d
	}
	if p.Variants != nil {
		out.Variants = append([]Variant(nil), p.Variants...)
	}
	if p.Metadata != nil {
		m := *p.Metadata
		palette := p.Metadata.ColorPalette
		if len(palette) > SummaryPaletteSize {
			palette = palette[:SummaryPaletteSize]
		}
		if palette != nil {
			m.ColorPalette = append([]string(nil), palette...)
		}
		out.Metadata = &m
	}
	return out
}

// Summaries projects every poster with Summary.
func Summaries(posters []Poster) []Poster {
	out := make([]Poster, 0, len(posters))
	for _, p := range posters {
		out = append(out, p.Summary())
	}
	return out
}

// DuplicateSlug returns the first slug that appears more than once.
func DuplicateSlug(posters []Poster) (string, bool) {
	seen := make(map[string]struct{}, len(posters))
	for _, p := range posters {
		if _, ok := seen[p.Slug]; ok {
			return p.Slug, true
		}
		seen[p.Slug] = struct{}{}
	}
	return "", false
}
