// Package styles holds everything the vector and raster renderers share:
// the tone palettes, label text layout with adaptive font fitting, and edge
// routing. Neither renderer computes geometry of its own; both replay what
// this package produces, which keeps an SVG preview and a PNG export of the
// same Document visually identical.
package styles

import (
	"fmt"
	"image/color"
	"strings"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mazznoer/csscolorparser"

	"github.com/matzehuels/figura/pkg/diagram"
	"github.com/matzehuels/figura/pkg/errors"
)

// =============================================================================
// Tones
// =============================================================================

// Tone names a color theme. The set is closed.
type Tone string

// Supported tones.
const (
	ToneSlate  Tone = "slate"
	ToneOcean  Tone = "ocean"
	ToneForest Tone = "forest"
	ToneSunset Tone = "sunset"
	ToneInk    Tone = "ink"
)

// DefaultTone is used when no tone is given.
const DefaultTone = ToneSlate

// Tones lists every supported tone in display order.
var Tones = []Tone{ToneSlate, ToneOcean, ToneForest, ToneSunset, ToneInk}

// ParseTone converts a string to a Tone. The empty string selects
// DefaultTone.
func ParseTone(s string) (Tone, error) {
	t := Tone(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return DefaultTone, nil
	}
	if _, ok := toneSpecs[t]; !ok {
		return "", errors.New(errors.ErrCodeInvalidTone, "unknown tone %q", s)
	}
	return t, nil
}

// toneSpec holds the base colors of a tone as CSS color strings.
type toneSpec struct {
	background string
	surface    string
	accent     string
	text       string
	edge       string
}

var toneSpecs = map[Tone]toneSpec{
	ToneSlate:  {background: "#f8fafc", surface: "#ffffff", accent: "#475569", text: "#0f172a", edge: "#64748b"},
	ToneOcean:  {background: "#f0f9ff", surface: "white", accent: "#0369a1", text: "#0c4a6e", edge: "#0284c7"},
	ToneForest: {background: "#f0fdf4", surface: "#ffffff", accent: "#15803d", text: "#14532d", edge: "#16a34a"},
	ToneSunset: {background: "#fff7ed", surface: "#fffbf5", accent: "#ea580c", text: "#7c2d12", edge: "#c2410c"},
	ToneInk:    {background: "white", surface: "white", accent: "black", text: "black", edge: "black"},
}

// =============================================================================
// Palette
// =============================================================================

// Palette is the resolved set of colors for one tone.
type Palette struct {
	Background color.NRGBA // canvas
	Surface    color.NRGBA // node fill
	Border     color.NRGBA // node outline
	Header     color.NRGBA // entity title band
	HeaderText color.NRGBA // text on the title band
	Text       color.NRGBA // labels and field rows
	Rule       color.NRGBA // entity field separators
	Edge       color.NRGBA // edge strokes and arrowheads
	Shadow     color.NRGBA // drop shadow, translucent
}

var (
	paletteMu    sync.Mutex
	paletteCache = map[Tone]Palette{}
)

// Palette returns the resolved palette of the tone. Unknown tones resolve to
// DefaultTone.
func (t Tone) Palette() Palette {
	if _, ok := toneSpecs[t]; !ok {
		t = DefaultTone
	}
	paletteMu.Lock()
	defer paletteMu.Unlock()
	if p, ok := paletteCache[t]; ok {
		return p
	}
	p := derive(toneSpecs[t])
	paletteCache[t] = p
	return p
}

func derive(base toneSpec) Palette {
	bg := mustParse(base.background)
	surface := mustParse(base.surface)
	accent := mustParse(base.accent)
	text := mustParse(base.text)
	edge := mustParse(base.edge)

	headerText := mustParse("white")
	if luminance(accent) >= 0.6 {
		headerText = text
	}
	h, s, l := accent.Hsl()
	shadow := colorful.Hsl(h, s, l-0.35).Clamped()

	return Palette{
		Background: rgba(bg, 0xff),
		Surface:    rgba(surface, 0xff),
		Border:     rgba(accent.BlendLab(surface, 0.2), 0xff),
		Header:     rgba(accent, 0xff),
		HeaderText: rgba(headerText, 0xff),
		Text:       rgba(text, 0xff),
		Rule:       rgba(accent.BlendLab(surface, 0.75), 0xff),
		Edge:       rgba(edge, 0xff),
		Shadow:     rgba(shadow, 0x48),
	}
}

func mustParse(s string) colorful.Color {
	c, err := csscolorparser.Parse(s)
	if err != nil {
		panic(fmt.Sprintf("styles: built-in color %q: %v", s, err))
	}
	return colorful.Color{R: c.R, G: c.G, B: c.B}
}

func luminance(c colorful.Color) float64 {
	return 0.299*c.R + 0.587*c.G + 0.114*c.B
}

// rgba converts to a non-premultiplied color with alpha a.
func rgba(c colorful.Color, a uint8) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: a}
}

// Hex formats c as #rrggbb, ignoring alpha.
func Hex(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Opacity returns the alpha of c as a fraction.
func Opacity(c color.NRGBA) float64 {
	return float64(c.A) / 255
}

// =============================================================================
// Style
// =============================================================================

// Style is the complete presentation input of both renderers.
type Style struct {
	Config diagram.RenderConfig `json:"config"`
	Tone   Tone                 `json:"tone"`
}

// New returns a Style with defaults filled in.
func New(cfg diagram.RenderConfig, tone Tone) Style {
	return Style{Config: cfg.WithDefaults(), Tone: tone}.normalized()
}

// Default returns the default style.
func Default() Style {
	return New(diagram.DefaultRenderConfig(), DefaultTone)
}

func (s Style) normalized() Style {
	s.Config = s.Config.WithDefaults()
	if s.Tone == "" {
		s.Tone = DefaultTone
	}
	return s
}

// Palette returns the palette of the style's tone.
func (s Style) Palette() Palette { return s.Tone.Palette() }

// Validate checks the render config and tone.
func (s Style) Validate() error {
	if _, err := ParseTone(string(s.Tone)); err != nil {
		return err
	}
	if err := s.Config.WithDefaults().Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid render config")
	}
	return nil
}
