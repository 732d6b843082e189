package diagram

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// LineStyle selects how edges are routed.
type LineStyle string

// Line styles.
const (
	LineCurve      LineStyle = "curve"
	LineOrthogonal LineStyle = "orthogonal"
)

// ParseLineStyle converts a string to a LineStyle.
func ParseLineStyle(s string) (LineStyle, error) {
	switch ls := LineStyle(strings.ToLower(strings.TrimSpace(s))); ls {
	case LineCurve, LineOrthogonal:
		return ls, nil
	}
	return "", fmt.Errorf("invalid line style: %q (must be curve or orthogonal)", s)
}

// =============================================================================
// Default Values
// =============================================================================

const (
	DefaultZoom       = 1.0
	DefaultNodeRadius = 8.0
	DefaultNodeGapX   = 40.0
	DefaultNodeGapY   = 56.0
	DefaultFontSize   = 14.0
	DefaultLineStyle  = LineOrthogonal
)

// =============================================================================
// RenderConfig
// =============================================================================

// RenderConfig holds the user-facing presentation settings. It is a value
// type: the With* methods return modified copies.
type RenderConfig struct {
	Zoom        float64   `json:"zoom" toml:"zoom" yaml:"zoom"`
	NodeRadius  float64   `json:"nodeRadius" toml:"node_radius" yaml:"node_radius"`
	NodeGapX    float64   `json:"nodeGapX" toml:"node_gap_x" yaml:"node_gap_x"`
	NodeGapY    float64   `json:"nodeGapY" toml:"node_gap_y" yaml:"node_gap_y"`
	FontSize    float64   `json:"fontSize" toml:"font_size" yaml:"font_size"`
	LineStyle   LineStyle `json:"lineStyle" toml:"line_style" yaml:"line_style"`
	ShowShadow  bool      `json:"showShadow" toml:"show_shadow" yaml:"show_shadow"`
	CompactRows bool      `json:"compactRows" toml:"compact_rows" yaml:"compact_rows"`
}

// DefaultRenderConfig returns the default presentation settings.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Zoom:       DefaultZoom,
		NodeRadius: DefaultNodeRadius,
		NodeGapX:   DefaultNodeGapX,
		NodeGapY:   DefaultNodeGapY,
		FontSize:   DefaultFontSize,
		LineStyle:  DefaultLineStyle,
		ShowShadow: true,
	}
}

// WithDefaults fills zero-valued fields from DefaultRenderConfig. Boolean
// fields are left as they are.
func (c RenderConfig) WithDefaults() RenderConfig {
	d := DefaultRenderConfig()
	if c.Zoom == 0 {
		c.Zoom = d.Zoom
	}
	if c.NodeGapX == 0 {
		c.NodeGapX = d.NodeGapX
	}
	if c.NodeGapY == 0 {
		c.NodeGapY = d.NodeGapY
	}
	if c.FontSize == 0 {
		c.FontSize = d.FontSize
	}
	if c.LineStyle == "" {
		c.LineStyle = d.LineStyle
	}
	return c
}

// WithZoom returns a copy with the zoom factor replaced.
func (c RenderConfig) WithZoom(z float64) RenderConfig { c.Zoom = z; return c }

// WithNodeRadius returns a copy with the corner radius replaced.
func (c RenderConfig) WithNodeRadius(r float64) RenderConfig { c.NodeRadius = r; return c }

// WithGaps returns a copy with both node gaps replaced.
func (c RenderConfig) WithGaps(x, y float64) RenderConfig {
	c.NodeGapX, c.NodeGapY = x, y
	return c
}

// WithFontSize returns a copy with the preferred font size replaced.
func (c RenderConfig) WithFontSize(s float64) RenderConfig { c.FontSize = s; return c }

// WithLineStyle returns a copy with the edge routing style replaced.
func (c RenderConfig) WithLineStyle(s LineStyle) RenderConfig { c.LineStyle = s; return c }

// WithShadow returns a copy with drop shadows toggled.
func (c RenderConfig) WithShadow(on bool) RenderConfig { c.ShowShadow = on; return c }

// WithCompactRows returns a copy with compact entity rows toggled.
func (c RenderConfig) WithCompactRows(on bool) RenderConfig { c.CompactRows = on; return c }

// Validate checks that all settings are within their supported ranges.
func (c RenderConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Zoom, validation.Required, validation.Min(0.1), validation.Max(8.0)),
		validation.Field(&c.NodeRadius, validation.Min(0.0), validation.Max(64.0)),
		validation.Field(&c.NodeGapX, validation.Min(0.0), validation.Max(400.0)),
		validation.Field(&c.NodeGapY, validation.Min(0.0), validation.Max(400.0)),
		validation.Field(&c.FontSize, validation.Required, validation.Min(6.0), validation.Max(72.0)),
		validation.Field(&c.LineStyle, validation.Required, validation.In(LineCurve, LineOrthogonal)),
	)
}
