package export

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/matzehuels/figura/pkg/fonts"
)

// Caption band geometry at scale 1.
const (
	CaptionBand    = 48.0
	CaptionMaxFont = 18.0
	CaptionMinFont = 8.0
	CaptionPadding = 16.0
)

// Caption is the figure caption appended below a raster export.
type Caption struct {
	Number string `json:"number,omitempty"` // e.g. "Figure 3"
	Title  string `json:"title,omitempty"`
}

// Text returns "<number> <title>", or "" when both are empty.
func (c Caption) Text() string {
	return strings.TrimSpace(strings.TrimSpace(c.Number) + " " + strings.TrimSpace(c.Title))
}

// IsEmpty reports whether the caption has no text.
func (c Caption) IsEmpty() bool { return c.Text() == "" }

// CaptionFontSize returns the largest size in [8·scale, 18·scale], stepping
// down one pixel at a time, at which text fits width minus the side padding.
// The floor is returned when nothing fits.
func CaptionFontSize(m fonts.Measurer, text string, width int, scale float64) float64 {
	if scale <= 0 {
		scale = 1
	}
	avail := float64(width) - 2*CaptionPadding*scale
	floor := CaptionMinFont * scale
	for size := CaptionMaxFont * scale; size > floor; size-- {
		if m.Width(text, size, false) <= avail {
			return size
		}
	}
	return floor
}

// AddCaption returns img with a white band of 48·scale pixels appended
// below it, holding text centered. With empty text img is returned as is.
// A nil measurer selects fonts.Default.
func AddCaption(img image.Image, text string, scale float64, m fonts.Measurer) image.Image {
	text = strings.TrimSpace(text)
	if text == "" {
		return img
	}
	if m == nil {
		m = fonts.Default()
	}
	if scale <= 0 {
		scale = 1
	}

	b := img.Bounds()
	band := int(CaptionBand*scale + 0.5)
	size := CaptionFontSize(m, text, b.Dx(), scale)

	dc := gg.NewContext(b.Dx(), band)
	dc.SetColor(color.White)
	dc.Clear()
	face := fonts.Face(size, false)
	dc.SetFontFace(face)
	dc.SetColor(color.Black)
	met := face.Metrics()
	baseline := float64(band)/2 + float64(met.Ascent-met.Descent)/64/2
	dc.DrawStringAnchored(text, float64(b.Dx())/2, baseline, 0.5, 0)

	out := imaging.New(b.Dx(), b.Dy()+band, color.White)
	out = imaging.Paste(out, img, image.Pt(0, 0))
	return imaging.Paste(out, dc.Image(), image.Pt(0, b.Dy()))
}

// FigureNumber formats a figure number label.
func FigureNumber(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("Figure %d", n)
}
