// Package fonts provides the embedded fonts shared by the vector and raster
// renderers, and the text metrics used by layout and font fitting.
//
// Both renderers measure labels through the same [Measurer] so that a label
// wraps at the same positions in an SVG preview and in a PNG export. The
// default measurer is backed by the Go font family (golang.org/x/image),
// parsed once with golang/freetype.
//
// East Asian wide runes are measured as exactly one em. The embedded Go fonts
// carry no CJK glyphs, so the raster renderer draws them with a replacement
// glyph unless a CJK-capable TrueType font is configured via [EnvFont].
package fonts

import (
	"fmt"
	"os"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/text/width"
)

// EnvFont names an environment variable holding the path of a TrueType font
// that replaces the embedded regular face (bold falls back to it as well).
const EnvFont = "FIGURA_FONT"

// FontFamily is the CSS font-family used in vector output. The Go font comes
// first so browsers that have it match the raster metrics exactly.
const FontFamily = `Go, 'Helvetica Neue', Arial, 'PingFang SC', 'Hiragino Sans', 'Microsoft YaHei', 'Noto Sans CJK SC', sans-serif`

// LineSpacing is the line height as a multiple of the font size.
const LineSpacing = 1.25

var (
	loadOnce sync.Once
	regular  *truetype.Font
	bold     *truetype.Font
	custom   bool
	loadErr  error
)

func load() {
	loadOnce.Do(func() {
		if path := os.Getenv(EnvFont); path != "" {
			f, err := Load(path)
			if err == nil {
				regular, bold, custom = f, f, true
				return
			}
			loadErr = err
		}
		regular = mustParse(goregular.TTF)
		bold = mustParse(gobold.TTF)
	})
}

func mustParse(ttf []byte) *truetype.Font {
	f, err := truetype.Parse(ttf)
	if err != nil {
		panic(fmt.Sprintf("fonts: embedded font: %v", err))
	}
	return f
}

// Load parses a TrueType font file.
func Load(path string) (*truetype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	return f, nil
}

// LoadError reports why the font named by [EnvFont] was not used, if it was
// set and failed to load.
func LoadError() error {
	load()
	return loadErr
}

// Custom reports whether a font from [EnvFont] replaced the embedded faces.
func Custom() bool {
	load()
	return custom
}

// Font returns the parsed regular or bold font.
func Font(isBold bool) *truetype.Font {
	load()
	if isBold {
		return bold
	}
	return regular
}

// Face returns a new face at size (in pixels). Faces are not safe for
// concurrent use; each caller owns the returned face.
func Face(size float64, isBold bool) font.Face {
	return truetype.NewFace(Font(isBold), &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// IsWide reports whether r occupies a full em (East Asian wide or fullwidth).
func IsWide(r rune) bool {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return true
	}
	return false
}

// HasWide reports whether s contains any wide rune.
func HasWide(s string) bool {
	for _, r := range s {
		if IsWide(r) {
			return true
		}
	}
	return false
}

// =============================================================================
// Measurer
// =============================================================================

// Measurer measures text for layout and font fitting.
type Measurer interface {
	// Width returns the advance width of text at size, in pixels.
	Width(text string, size float64, bold bool) float64
	// LineHeight returns the distance between baselines at size.
	LineHeight(size float64) float64
}

type faceKey struct {
	size float64
	bold bool
}

// metrics is the font-backed Measurer. It caches one face per size and
// weight; faces are guarded by mu because font.Face is not goroutine-safe.
type metrics struct {
	mu    sync.Mutex
	faces map[faceKey]font.Face
}

var (
	defaultOnce     sync.Once
	defaultMeasurer *metrics
)

// Default returns the shared font-backed measurer. It is safe for concurrent
// use.
func Default() Measurer {
	defaultOnce.Do(func() {
		defaultMeasurer = &metrics{faces: make(map[faceKey]font.Face)}
	})
	return defaultMeasurer
}

func (m *metrics) Width(text string, size float64, isBold bool) float64 {
	if text == "" || size <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := faceKey{size: size, bold: isBold}
	face, ok := m.faces[key]
	if !ok {
		face = Face(size, isBold)
		m.faces[key] = face
	}

	var w float64
	var run []rune
	flush := func() {
		if len(run) > 0 {
			w += float64(font.MeasureString(face, string(run))) / 64
			run = run[:0]
		}
	}
	for _, r := range text {
		if IsWide(r) {
			flush()
			w += size
			continue
		}
		run = append(run, r)
	}
	flush()
	return w
}

func (m *metrics) LineHeight(size float64) float64 {
	return size * LineSpacing
}
