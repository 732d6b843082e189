package export

import (
	"bytes"
	"context"
	stderrors "errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/figura/pkg/diagram"
	"github.com/matzehuels/figura/pkg/errors"
	"github.com/matzehuels/figura/pkg/fonts"
	"github.com/matzehuels/figura/pkg/layout"
	"github.com/matzehuels/figura/pkg/parse"
	"github.com/matzehuels/figura/pkg/render/raster"
	"github.com/matzehuels/figura/pkg/render/styles"
)

// gridMeasurer gives every rune a width of size/2.
type gridMeasurer struct{}

func (gridMeasurer) Width(text string, size float64, _ bool) float64 {
	return float64(len([]rune(text))) * size / 2
}

func (gridMeasurer) LineHeight(size float64) float64 { return size }

func sampleDoc(t *testing.T) diagram.Document {
	t.Helper()
	res, err := parse.Parse(diagram.KindHierarchy, "Root\n  A\n  B\n    C", parse.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	return layout.Build(res, diagram.DefaultRenderConfig(), layout.DefaultOptions(), nil).WithTitle("Org Chart")
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return img
}

func TestExportDimensions(t *testing.T) {
	doc := sampleDoc(t)
	tests := []struct {
		scale, ratio float64
	}{
		{1, 1}, {2, 1}, {3, 2}, {4, 1.5},
	}
	for _, tt := range tests {
		req := Request{
			Document: doc, Style: styles.Default(), Width: 400, Height: 300,
			Options: Options{Format: FormatPNG, Scale: tt.scale, PixelRatio: tt.ratio},
		}
		art, err := Export(context.Background(), req)
		if err != nil {
			t.Fatal(err)
		}
		wantW, wantH := int(400*tt.scale*tt.ratio+0.5), int(300*tt.scale*tt.ratio+0.5)
		img := decodePNG(t, art.Data)
		if b := img.Bounds(); b.Dx() != wantW || b.Dy() != wantH {
			t.Errorf("scale %v ratio %v: size %dx%d, want %dx%d", tt.scale, tt.ratio, b.Dx(), b.Dy(), wantW, wantH)
		}
		if art.Width != wantW || art.Height != wantH {
			t.Errorf("artifact size %dx%d", art.Width, art.Height)
		}
	}
}

func TestExportMatchesLiveRender(t *testing.T) {
	doc := sampleDoc(t)
	st := styles.Default()
	live, err := raster.Render(doc, raster.Options{Style: st, Frame: raster.Frame{PixelRatio: 2}})
	if err != nil {
		t.Fatal(err)
	}
	before := append([]byte(nil), live.Pix...)

	art, err := Export(context.Background(), Request{
		Document: doc, Style: st, Source: live,
		Options: Options{Format: FormatPNG, Scale: 1, PixelRatio: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, live.Pix) {
		t.Error("export modified the live buffer")
	}
	img := decodePNG(t, art.Data)
	if img.Bounds() != live.Bounds() {
		t.Fatalf("export %v, live %v", img.Bounds(), live.Bounds())
	}
	for _, p := range []image.Point{{0, 0}, {live.Bounds().Dx() / 2, 60}, {live.Bounds().Dx() - 1, live.Bounds().Dy() - 1}} {
		a := color.NRGBAModel.Convert(img.At(p.X, p.Y))
		b := color.NRGBAModel.Convert(live.At(p.X, p.Y))
		if a != b {
			t.Errorf("pixel %v: export %v, live %v", p, a, b)
		}
	}
}

func TestExportCaptionBand(t *testing.T) {
	doc := sampleDoc(t)
	req := Request{
		Document: doc, Style: styles.Default(), Width: 300, Height: 200,
		Options: Options{Format: FormatPNG, Scale: 2, Caption: Caption{Number: "Figure 1", Title: "Org chart"}},
	}
	art, err := Export(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	b := decodePNG(t, art.Data).Bounds()
	if b.Dx() != 600 || b.Dy() != 400+96 {
		t.Errorf("size = %dx%d, want 600x496", b.Dx(), b.Dy())
	}
}

func TestExportCaptionFollowsPixelRatio(t *testing.T) {
	doc := sampleDoc(t)
	req := Request{
		Document: doc, Style: styles.Default(), Width: 300, Height: 200,
		Options: Options{Format: FormatPNG, Scale: 1, PixelRatio: 2, Caption: Caption{Title: "Org chart"}},
	}
	art, err := Export(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	b := decodePNG(t, art.Data).Bounds()
	if b.Dx() != 600 || b.Dy() != 400+96 {
		t.Errorf("size = %dx%d, want 600x496", b.Dx(), b.Dy())
	}
}

func TestExportRejectsOversizeRaster(t *testing.T) {
	doc := diagram.Build("one", diagram.KindHierarchy, []diagram.Node{
		{ID: "a", Label: "A", Kind: diagram.NodeGeneric, X: 0, Y: 0, Width: 80, Height: 40},
	}, nil)
	tests := []struct {
		name string
		req  Request
	}{
		{"huge logical size", Request{Width: 1 << 22, Height: 1 << 22,
			Options: Options{Format: FormatPNG, Scale: 4, PixelRatio: 4}}},
		{"side over limit after scaling", Request{Width: 5000, Height: 100,
			Options: Options{Format: FormatJPEG, Scale: 4}}},
		{"oversize source buffer", Request{Source: image.NewRGBA(image.Rect(0, 0, 5000, 10)),
			Options: Options{Format: FormatPNG, Scale: 4}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Document = doc
			tt.req.Style = styles.Default()
			_, err := Export(context.Background(), tt.req)
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("Export() = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestExportFormats(t *testing.T) {
	doc := sampleDoc(t)
	now := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

	jpg, err := Export(context.Background(), Request{Document: doc, Style: styles.Default(), Now: now, Options: Options{Format: FormatJPEG}})
	if err != nil {
		t.Fatal(err)
	}
	if jpg.ContentType != "image/jpeg" || jpg.Filename != "org-chart-20261017-093000.jpg" {
		t.Errorf("jpeg artifact = %s %s", jpg.ContentType, jpg.Filename)
	}
	if !bytes.HasPrefix(jpg.Data, []byte{0xff, 0xd8}) {
		t.Error("not a JPEG stream")
	}

	vec, err := Export(context.Background(), Request{Document: doc, Style: styles.Default(), Now: now, Options: Options{Format: FormatSVG, Monochrome: true}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(vec.Data), "<svg") || vec.ContentType != "image/svg+xml" {
		t.Errorf("svg artifact = %s", vec.ContentType)
	}
}

func TestExportAborted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Export(ctx, Request{Document: sampleDoc(t), Style: styles.Default()})
	if !errors.IsAborted(err) || !stderrors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want abort", err)
	}
}

func TestExportRejectsBadOptions(t *testing.T) {
	for _, opts := range []Options{{Scale: 5}, {Scale: 0.5}, {Format: "bmp"}, {Quality: 101}} {
		_, err := Export(context.Background(), Request{Document: sampleDoc(t), Options: opts})
		if !errors.Is(err, errors.ErrCodeInvalidConfig) {
			t.Errorf("options %+v: err = %v", opts, err)
		}
	}
}

func TestMonochrome(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 200, B: 30, A: 8})     // transparent
	src.SetNRGBA(1, 0, color.NRGBA{R: 240, G: 236, B: 250, A: 255}) // near white
	src.SetNRGBA(2, 0, color.NRGBA{R: 240, G: 200, B: 250, A: 255}) // colored
	src.SetNRGBA(3, 0, color.NRGBA{R: 128, G: 128, B: 128, A: 128}) // half alpha grey

	once := Monochrome(src)
	want := []uint8{0xff, 0xff, 0, 0}
	for x, w := range want {
		got := once.NRGBAAt(x, 0)
		if got != (color.NRGBA{R: w, G: w, B: w, A: 0xff}) {
			t.Errorf("pixel %d = %v, want %d", x, got, w)
		}
	}
	if src.NRGBAAt(2, 0).G != 200 {
		t.Error("source was modified")
	}

	twice := Monochrome(once)
	if !bytes.Equal(once.Pix, twice.Pix) {
		t.Error("Monochrome is not idempotent")
	}
}

func TestMonochromeRenderIdempotent(t *testing.T) {
	img, err := raster.Render(sampleDoc(t), raster.Options{Style: styles.Default()})
	if err != nil {
		t.Fatal(err)
	}
	once := Monochrome(img)
	if !bytes.Equal(once.Pix, Monochrome(once).Pix) {
		t.Error("Monochrome is not idempotent on a render")
	}
}

func TestAddCaption(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 200, 100))
	if got := AddCaption(src, "  ", 1, nil); got != image.Image(src) {
		t.Error("empty caption should pass the buffer through")
	}
	out := AddCaption(src, "Figure 2 Flow", 2, nil)
	if b := out.Bounds(); b.Dx() != 200 || b.Dy() != 196 {
		t.Errorf("size = %v", b)
	}
}

func TestCaptionFontSize(t *testing.T) {
	m := gridMeasurer{}
	tests := []struct {
		name  string
		text  string
		width int
		scale float64
		want  float64
	}{
		{"fits at max", "short", 400, 1, 18},
		{"scaled max", "short", 800, 2, 36},
		// 20 runes need 10·size ≤ 200-32 → 16.
		{"shrinks", strings.Repeat("x", 20), 200, 1, 16},
		{"floor", strings.Repeat("x", 200), 200, 1, 8},
		{"scaled floor", strings.Repeat("x", 200), 200, 3, 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CaptionFontSize(m, tt.text, tt.width, tt.scale); got != tt.want {
				t.Errorf("CaptionFontSize() = %v, want %v", got, tt.want)
			}
		})
	}
	if got := CaptionFontSize(fonts.Default(), "Figure 1 Overview", 1000, 1); got != 18 {
		t.Errorf("default measurer size = %v", got)
	}
}

func TestCaptionText(t *testing.T) {
	tests := []struct {
		c    Caption
		want string
	}{
		{Caption{}, ""},
		{Caption{Number: "Figure 1"}, "Figure 1"},
		{Caption{Title: " Overview "}, "Overview"},
		{Caption{Number: FigureNumber(3), Title: "Flow"}, "Figure 3 Flow"},
	}
	for _, tt := range tests {
		if got := tt.c.Text(); got != tt.want {
			t.Errorf("Text() = %q, want %q", got, tt.want)
		}
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Org Chart":         "org-chart",
		"  --Hello, World!": "hello-world",
		"":                  DefaultBasename,
		"???":               DefaultBasename,
		"订单 系统 v2":          "订单-系统-v2",
	}
	for in, want := range tests {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
	if got := Slug(strings.Repeat("a", 100)); len(got) != maxSlug {
		t.Errorf("slug length = %d", len(got))
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"PNG": FormatPNG, ".jpg": FormatJPEG, "jpeg": FormatJPEG, "svg": FormatSVG, "pdf": FormatPDF} {
		if got, err := ParseFormat(in); err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("gif"); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("gif: err = %v", err)
	}
}

func TestArtifactSave(t *testing.T) {
	dir := t.TempDir()
	a := Artifact{Filename: "x-1.png", Data: []byte("data")}
	path, err := a.Save(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := os.ReadFile(path); string(got) != "data" || filepath.Dir(path) != dir {
		t.Errorf("saved %q at %s", got, path)
	}
	if _, err := (Artifact{Filename: "../evil.png"}).Save(dir); err == nil {
		t.Error("path traversal accepted")
	}
}

func TestExportAll(t *testing.T) {
	req := Request{Document: sampleDoc(t), Style: styles.Default(), Options: Options{Scale: 1}}
	arts, err := ExportAll(context.Background(), req, []Format{FormatPNG, FormatSVG, FormatJPEG})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"image/png", "image/svg+xml", "image/jpeg"}
	for i, a := range arts {
		if a.ContentType != want[i] {
			t.Errorf("artifact %d = %s, want %s", i, a.ContentType, want[i])
		}
	}

	if _, err := ExportAll(context.Background(), req, []Format{FormatPNG, "tiff"}); err == nil {
		t.Error("expected error for unknown format")
	}
}
