package styles

import (
	"testing"

	"github.com/matzehuels/figura/pkg/diagram"
)

func flowDoc() diagram.Document {
	return diagram.Build("Flow", diagram.KindFlow,
		[]diagram.Node{
			{ID: "a", Label: "Idea", Kind: diagram.NodeGeneric, X: 0, Y: 0, Width: 120, Height: 40},
			{ID: "b", Label: "Draft", Kind: diagram.NodeGeneric, X: 200, Y: 0, Width: 120, Height: 40},
		},
		[]diagram.Edge{{Source: "a", Target: "b", Label: "write"}},
	)
}

func TestComposePaintOrder(t *testing.T) {
	doc := flowDoc()
	sc := Compose(doc, Default(), gridMeasurer{})

	if len(sc.Shadows) != 2 {
		t.Errorf("shadows = %d, want one per node", len(sc.Shadows))
	}
	if sc.Background != DefaultTone.Palette().Background {
		t.Errorf("background = %v", sc.Background)
	}
	// Edge stroke and arrowhead come first, the edge label last.
	if sc.Shapes[0].Kind != ShapePath || sc.Shapes[1].Kind != ShapePath || !sc.Shapes[1].Closed {
		t.Errorf("first shapes = %+v %+v", sc.Shapes[0].Kind, sc.Shapes[1].Kind)
	}
	last := sc.Shapes[len(sc.Shapes)-1]
	if last.Kind != ShapeText || last.Text != "write" {
		t.Errorf("last shape = %+v, want edge label", last)
	}
	var texts []string
	for _, s := range sc.Shapes {
		if s.Kind == ShapeText {
			texts = append(texts, s.Text)
		}
	}
	if len(texts) != 3 || texts[0] != "Idea" || texts[1] != "Draft" {
		t.Errorf("texts = %q", texts)
	}
}

func TestComposeWithoutShadow(t *testing.T) {
	st := New(diagram.DefaultRenderConfig().WithShadow(false), ToneOcean)
	if sc := Compose(flowDoc(), st, gridMeasurer{}); len(sc.Shadows) != 0 {
		t.Errorf("shadows = %d, want 0", len(sc.Shadows))
	}
}

func TestComposeEntityRules(t *testing.T) {
	n := diagram.Node{
		ID: "users", Label: "users", Kind: diagram.NodeEntity,
		Width: 200, Height: diagram.EntityHeaderHeight + 3*24,
		Fields: []string{"PK id", "name", "email"},
	}
	doc := diagram.Build("", diagram.KindEntity, []diagram.Node{n}, nil)
	sc := Compose(doc, Default(), gridMeasurer{})

	var rules, rects int
	for _, s := range sc.Shapes {
		switch s.Kind {
		case ShapeLine:
			rules++
		case ShapeRect:
			rects++
		}
	}
	if rules != 2 {
		t.Errorf("field rules = %d, want 2", rules)
	}
	// fill, header band, header square-off, outline
	if rects != 4 {
		t.Errorf("rects = %d, want 4", rects)
	}
}

func TestViewTransform(t *testing.T) {
	cfg := diagram.DefaultRenderConfig().WithZoom(2)
	if tr := ViewTransform(diagram.DefaultRenderConfig(), nil); !tr.IsIdentity() {
		t.Errorf("default transform = %+v", tr)
	}
	vp := diagram.Viewport{Zoom: 1.5, OffsetX: 4, OffsetY: 8}
	tr := ViewTransform(cfg, &vp)
	if tr.Scale != 3 || tr.TX != 4 || tr.TY != 8 {
		t.Errorf("transform = %+v", tr)
	}
	if w, h := tr.Size(100, 33.4); w != 300 || h != 101 {
		t.Errorf("Size() = %d, %d", w, h)
	}
}
