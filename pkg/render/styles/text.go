package styles

import (
	"math"

	"github.com/matzehuels/figura/pkg/diagram"
	"github.com/matzehuels/figura/pkg/fonts"
)

// MinFontSize is the floor of adaptive font fitting.
const MinFontSize = 8.0

// LabelMode selects how a label is broken into lines.
type LabelMode int

const (
	// ModeWrap word-wraps to the available width.
	ModeWrap LabelMode = iota
	// ModeSingle keeps the label on one line.
	ModeSingle
	// ModeVertical puts one rune on each line.
	ModeVertical
)

// ModeFor returns the label mode of a node. Tree roots are single-line;
// labels with wide runes below the root stack one rune per line.
func ModeFor(kind diagram.Kind, n diagram.Node) LabelMode {
	switch {
	case n.IsEntity():
		return ModeSingle
	case kind.IsTree() && n.Level == 0:
		return ModeSingle
	case kind.IsTree() && fonts.HasWide(n.Label):
		return ModeVertical
	default:
		return ModeWrap
	}
}

// Lines breaks text according to mode.
func Lines(m fonts.Measurer, mode LabelMode, text string, maxWidth, size float64, bold bool) []string {
	switch mode {
	case ModeSingle:
		return []string{text}
	case ModeVertical:
		return fonts.Vertical(text)
	default:
		return fonts.Wrap(m, text, maxWidth, size, bold)
	}
}

// Fit is the result of adaptive font fitting.
type Fit struct {
	Size  float64
	Lines []string
	Fits  bool // false when even the floor size overflows the box
}

// FitFont finds the largest font size at which text, broken by mode, fits a
// box of w×h. Sizes are tried from preferred down to floor in 1px steps and
// the first fit wins, so the result only depends on its inputs. The size is
// never below floor; when nothing fits, the floor size is returned with
// Fits set to false.
func FitFont(m fonts.Measurer, mode LabelMode, text string, w, h, preferred, floor float64, bold bool) Fit {
	if preferred < floor {
		preferred = floor
	}
	for _, size := range candidateSizes(preferred, floor) {
		lines := Lines(m, mode, text, w, size, bold)
		if fits(m, lines, w, h, size, bold) {
			return Fit{Size: size, Lines: lines, Fits: true}
		}
	}
	return Fit{Size: floor, Lines: Lines(m, mode, text, w, floor, bold)}
}

func candidateSizes(preferred, floor float64) []float64 {
	sizes := make([]float64, 0, int(preferred-floor)+2)
	for s := preferred; s > floor; s-- {
		sizes = append(sizes, s)
	}
	return append(sizes, floor)
}

func fits(m fonts.Measurer, lines []string, w, h, size float64, bold bool) bool {
	if float64(len(lines))*m.LineHeight(size) > h+1e-9 {
		return false
	}
	for _, ln := range lines {
		if m.Width(ln, size, bold) > w+1e-9 {
			return false
		}
	}
	return true
}

// Truncate shortens text with a trailing ".." until it fits maxWidth.
func Truncate(m fonts.Measurer, text string, maxWidth, size float64, bold bool) string {
	if m.Width(text, size, bold) <= maxWidth {
		return text
	}
	runes := []rune(text)
	for n := len(runes) - 1; n > 0; n-- {
		s := string(runes[:n]) + ".."
		if m.Width(s, size, bold) <= maxWidth {
			return s
		}
	}
	return ".."
}

// =============================================================================
// Node labels
// =============================================================================

// Anchor is the horizontal alignment of a text line.
type Anchor int

const (
	AnchorMiddle Anchor = iota
	AnchorStart
)

// TextLine is one line of text positioned by its anchor x and its vertical
// center y.
type TextLine struct {
	Text string
	X, Y float64
}

// Label is a block of lines sharing one font.
type Label struct {
	Size   float64
	Bold   bool
	Anchor Anchor
	Header bool // drawn on the entity title band
	Lines  []TextLine
}

// NodeLabels lays out all text of a node: the fitted label, plus the field
// rows of an entity box.
func NodeLabels(kind diagram.Kind, n diagram.Node, s Style, m fonts.Measurer) []Label {
	cfg := s.Config.WithDefaults()
	if !n.IsEntity() {
		inner := n.Rect().Inset(diagram.NodePadding)
		mode := ModeFor(kind, n)
		fit := FitFont(m, mode, n.Label, inner.W, inner.H, cfg.FontSize, MinFontSize, false)
		lines := fit.Lines
		if mode == ModeSingle && !fit.Fits {
			lines = []string{Truncate(m, n.Label, inner.W, fit.Size, false)}
		}
		return []Label{centered(lines, fit.Size, false, inner.Center(), m)}
	}

	header := n.HeaderHeight()
	band := diagram.Rect{X: n.X, Y: n.Y, W: n.Width, H: header}.Inset(diagram.NodePadding / 2)
	fit := FitFont(m, ModeSingle, n.Label, band.W, band.H, cfg.FontSize, MinFontSize, true)
	title := Truncate(m, n.Label, band.W, fit.Size, true)
	out := []Label{centered([]string{title}, fit.Size, true, band.Center(), m)}
	out[0].Header = true

	if len(n.Fields) == 0 {
		return out
	}
	rowH := n.RowHeight()
	inner := n.Width - 2*diagram.NodePadding
	size := FieldFontSize(cfg.FontSize, rowH)
	rows := Label{Size: size, Anchor: AnchorStart}
	for i, f := range n.Fields {
		rows.Lines = append(rows.Lines, TextLine{
			Text: Truncate(m, f, inner, size, false),
			X:    n.X + diagram.NodePadding,
			Y:    n.Y + header + rowH*float64(i) + rowH/2,
		})
	}
	return append(out, rows)
}

// FieldFontSize returns the font size of entity field rows: one step below
// the label size, limited by the row height, never below MinFontSize.
func FieldFontSize(preferred, rowHeight float64) float64 {
	size := math.Min(preferred-1, math.Floor(rowHeight*0.62))
	return math.Max(size, MinFontSize)
}

// EdgeLabelSize returns the font size of edge labels.
func EdgeLabelSize(cfg diagram.RenderConfig) float64 {
	return math.Max(cfg.WithDefaults().FontSize-3, MinFontSize)
}

func centered(lines []string, size float64, bold bool, c diagram.Point, m fonts.Measurer) Label {
	lh := m.LineHeight(size)
	top := c.Y - lh*float64(len(lines))/2
	l := Label{Size: size, Bold: bold, Anchor: AnchorMiddle}
	for i, ln := range lines {
		l.Lines = append(l.Lines, TextLine{Text: ln, X: c.X, Y: top + lh*float64(i) + lh/2})
	}
	return l
}

// Accented reports whether a node is drawn on the accent color: tree roots
// and nothing else. Entity title bands use the accent color separately.
func Accented(kind diagram.Kind, n diagram.Node) bool {
	return kind.IsTree() && n.Level == 0 && !n.IsEntity()
}
