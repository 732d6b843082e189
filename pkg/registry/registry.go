// Package registry holds the catalog of diagram tool presets.
//
// A tool couples a parser kind with its presentation: title, input
// placeholders, a default input, suggestion chips and a surface tone. The
// pipeline treats tools as opaque configuration; only the parser kind and
// the tone are checked when a catalog is loaded.
package registry

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/figura/pkg/diagram"
	"github.com/matzehuels/figura/pkg/errors"
	"github.com/matzehuels/figura/pkg/render/styles"
)

//go:embed tools.toml
var builtin []byte

// Tool is one diagram preset.
type Tool struct {
	ID                string       `json:"toolId" toml:"id" yaml:"id"`
	Title             string       `json:"title" toml:"title" yaml:"title"`
	ParserKind        diagram.Kind `json:"parserKind" toml:"parser_kind" yaml:"parser_kind"`
	AIPlaceholder     string       `json:"aiPlaceholder" toml:"ai_placeholder" yaml:"ai_placeholder"`
	ManualPlaceholder string       `json:"manualPlaceholder" toml:"manual_placeholder" yaml:"manual_placeholder"`
	DefaultInput      string       `json:"defaultInput" toml:"default_input" yaml:"default_input"`
	Chips             []string     `json:"chips" toml:"chips" yaml:"chips"`
	SurfaceTone       styles.Tone  `json:"surfaceTone" toml:"surface_tone" yaml:"surface_tone"`
}

// Validate checks the id, kind and tone of a tool.
func (t Tool) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.ID, validation.Required, validation.By(func(v any) error {
			return errors.ValidateIdentifier(v.(string))
		})),
		validation.Field(&t.Title, validation.Required),
		validation.Field(&t.ParserKind, validation.Required, validation.By(func(v any) error {
			_, err := diagram.ParseKind(string(v.(diagram.Kind)))
			return err
		})),
		validation.Field(&t.SurfaceTone, validation.By(func(v any) error {
			_, err := styles.ParseTone(string(v.(styles.Tone)))
			return err
		})),
	)
}

// Catalog is a validated set of tools.
type Catalog struct {
	tools map[string]Tool
}

type file struct {
	Tools []Tool `toml:"tools" yaml:"tools"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(builtin, "toml")
	if err != nil {
		panic(fmt.Sprintf("registry: built-in catalog: %v", err))
	}
	return c
}

// Load reads a catalog file. The format follows the extension: .yaml or
// .yml for YAML, anything else TOML.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "read tool registry %s", path)
	}
	format := "toml"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	return Parse(data, format)
}

// Parse decodes and validates a catalog in "toml" or "yaml" format.
func Parse(data []byte, format string) (*Catalog, error) {
	var f file
	var err error
	switch format {
	case "yaml":
		err = yaml.Unmarshal(data, &f)
	case "toml":
		_, err = toml.Decode(string(data), &f)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown registry format %q", format)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode tool registry")
	}

	c := &Catalog{tools: make(map[string]Tool, len(f.Tools))}
	for _, t := range f.Tools {
		t.ParserKind = diagram.Kind(strings.ToLower(strings.TrimSpace(string(t.ParserKind))))
		if t.SurfaceTone == "" {
			t.SurfaceTone = styles.DefaultTone
		}
		if err := t.Validate(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "tool %q", t.ID)
		}
		if _, dup := c.tools[t.ID]; dup {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "duplicate tool id %q", t.ID)
		}
		c.tools[t.ID] = t
	}
	return c, nil
}

// Lookup returns the tool with the given id.
func (c *Catalog) Lookup(id string) (Tool, error) {
	t, ok := c.tools[id]
	if !ok {
		return Tool{}, errors.New(errors.ErrCodeToolNotFound, "unknown tool: %q", id)
	}
	return t, nil
}

// ForKind returns the first tool, by id, using the given parser kind.
func (c *Catalog) ForKind(kind diagram.Kind) (Tool, bool) {
	for _, t := range c.All() {
		if t.ParserKind == kind {
			return t, true
		}
	}
	return Tool{}, false
}

// All returns every tool sorted by id.
func (c *Catalog) All() []Tool {
	out := make([]Tool, 0, len(c.tools))
	for _, t := range c.tools {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b Tool) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Len returns the number of tools.
func (c *Catalog) Len() int { return len(c.tools) }
