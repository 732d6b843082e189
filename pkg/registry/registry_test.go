package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/figura/pkg/diagram"
	"github.com/matzehuels/figura/pkg/errors"
	"github.com/matzehuels/figura/pkg/parse"
	"github.com/matzehuels/figura/pkg/render/styles"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	if c.Len() != 4 {
		t.Fatalf("tools = %d", c.Len())
	}
	ids := []string{}
	for _, tool := range c.All() {
		ids = append(ids, tool.ID)
		if err := tool.Validate(); err != nil {
			t.Errorf("%s: %v", tool.ID, err)
		}
		res, err := parse.Parse(tool.ParserKind, tool.DefaultInput, parse.DefaultOptions())
		if err != nil || res.IsEmpty() {
			t.Errorf("%s: default input parses to %d items, %v", tool.ID, len(res.Items), err)
		}
		if len(tool.Chips) == 0 {
			t.Errorf("%s: no chips", tool.ID)
		}
	}
	if ids[0] != "er-diagram" || ids[3] != "process-flow" {
		t.Errorf("order = %v", ids)
	}
	for _, kind := range diagram.ValidKinds {
		if _, ok := c.ForKind(kind); !ok {
			t.Errorf("no tool for %s", kind)
		}
	}
}

func TestLookup(t *testing.T) {
	c := Default()
	tool, err := c.Lookup("er-diagram")
	if err != nil || tool.ParserKind != diagram.KindEntity || tool.SurfaceTone != styles.ToneForest {
		t.Errorf("Lookup() = %+v, %v", tool, err)
	}
	if _, err := c.Lookup("nope"); !errors.Is(err, errors.ErrCodeToolNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestLoadYAMLAndTOML(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "tools.yaml")
	os.WriteFile(yml, []byte(`tools:
  - id: tree
    title: Tree
    parser_kind: Hierarchy
    chips: [a, b]
`), 0o644)
	c, err := Load(yml)
	if err != nil {
		t.Fatal(err)
	}
	tool, _ := c.Lookup("tree")
	if tool.ParserKind != diagram.KindHierarchy || tool.SurfaceTone != styles.DefaultTone {
		t.Errorf("tool = %+v", tool)
	}

	tml := filepath.Join(dir, "tools.toml")
	os.WriteFile(tml, []byte("[[tools]]\nid = \"f\"\ntitle = \"F\"\nparser_kind = \"flow\"\nsurface_tone = \"ink\"\n"), 0o644)
	if c, err := Load(tml); err != nil || c.Len() != 1 {
		t.Errorf("Load(toml) = %v, %v", c, err)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad kind", "[[tools]]\nid = \"x\"\ntitle = \"X\"\nparser_kind = \"gantt\"\n"},
		{"bad tone", "[[tools]]\nid = \"x\"\ntitle = \"X\"\nparser_kind = \"flow\"\nsurface_tone = \"neon\"\n"},
		{"bad id", "[[tools]]\nid = \"X Y\"\ntitle = \"X\"\nparser_kind = \"flow\"\n"},
		{"no title", "[[tools]]\nid = \"x\"\nparser_kind = \"flow\"\n"},
		{"duplicate", "[[tools]]\nid = \"x\"\ntitle = \"X\"\nparser_kind = \"flow\"\n[[tools]]\nid = \"x\"\ntitle = \"Y\"\nparser_kind = \"mind\"\n"},
		{"syntax", "[[tools]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data), "toml"); !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("err = %v", err)
			}
		})
	}
	if _, err := Parse(nil, "ini"); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("ini: err = %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("missing: err = %v", err)
	}
}

func TestLoadExampleYAML(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "examples", "tools.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	tool, err := c.Lookup("pipeline")
	if err != nil {
		t.Fatal(err)
	}
	if tool.ParserKind != diagram.KindFlow || tool.SurfaceTone != styles.ToneSunset {
		t.Errorf("pipeline = %+v", tool)
	}
	if board, _ := c.Lookup("team-board"); len(board.Chips) != 2 {
		t.Errorf("team-board chips = %v", board.Chips)
	}
}
