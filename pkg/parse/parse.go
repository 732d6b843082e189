package parse

import (
	"strings"

	"github.com/matzehuels/figura/pkg/diagram"
	"github.com/matzehuels/figura/pkg/errors"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultIndentSize is the number of spaces that make up one outline level.
	DefaultIndentSize = 2

	// DefaultTabWidth is the number of spaces a tab expands to.
	DefaultTabWidth = 4
)

// =============================================================================
// Types
// =============================================================================

// Column is one field of an entity table.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type,omitempty"`
	Length     string `json:"length,omitempty"`
	PrimaryKey bool   `json:"primaryKey,omitempty"`
	Comment    string `json:"comment,omitempty"`
}

// Row formats the column as a single display row, e.g. "PK id bigint(20)".
func (c Column) Row() string {
	var b strings.Builder
	if c.PrimaryKey {
		b.WriteString("PK ")
	}
	b.WriteString(c.Name)
	if c.Type != "" {
		b.WriteString(" ")
		b.WriteString(strings.ToLower(c.Type))
		if c.Length != "" {
			b.WriteString("(" + c.Length + ")")
		}
	}
	if c.Comment != "" {
		b.WriteString("  ")
		b.WriteString(c.Comment)
	}
	return b.String()
}

// Item is one parsed element, in parse order.
type Item struct {
	ID       string           `json:"id"`
	Label    string           `json:"label"`
	Level    int              `json:"level"`
	Parent   string           `json:"parent,omitempty"` // tree parent id, empty for roots
	NodeKind diagram.NodeKind `json:"nodeKind"`
	Columns  []Column         `json:"columns,omitempty"`
}

// Fields returns the display rows of an entity item.
func (it Item) Fields() []string {
	if len(it.Columns) == 0 {
		return nil
	}
	rows := make([]string, len(it.Columns))
	for i, c := range it.Columns {
		rows[i] = c.Row()
	}
	return rows
}

// Link is a directed relation between two items, referenced by id. Links may
// point at ids that no item defines; the layout engine drops them.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// Result is the output of a parser.
type Result struct {
	Kind   diagram.Kind `json:"parserKind"`
	Title  string       `json:"title,omitempty"`
	Items  []Item       `json:"items"`
	Links  []Link       `json:"links"`
	Sample bool         `json:"sample,omitempty"` // built-in sample was used
}

// IsEmpty returns true if nothing was parsed.
func (r Result) IsEmpty() bool { return len(r.Items) == 0 }

// Options configures parsing.
type Options struct {
	IndentSize int  `json:"indentSize,omitempty"`
	TabWidth   int  `json:"tabWidth,omitempty"`
	Live       bool `json:"live,omitempty"`
}

// DefaultOptions returns the default parse options.
func DefaultOptions() Options {
	return Options{IndentSize: DefaultIndentSize, TabWidth: DefaultTabWidth}
}

func (o Options) withDefaults() Options {
	if o.IndentSize <= 0 {
		o.IndentSize = DefaultIndentSize
	}
	if o.TabWidth <= 0 {
		o.TabWidth = DefaultTabWidth
	}
	return o
}

// =============================================================================
// Dispatch
// =============================================================================

// Parser reads source text for one kind.
type Parser func(src string, opts Options) Result

var parsers = map[diagram.Kind]Parser{
	diagram.KindHierarchy: parseHierarchy,
	diagram.KindMind:      parseMind,
	diagram.KindFlow:      parseFlow,
	diagram.KindEntity:    parseEntity,
}

// Lookup returns the parser registered for kind.
func Lookup(kind diagram.Kind) (Parser, bool) {
	p, ok := parsers[kind]
	return p, ok
}

// Parse runs the parser for kind. It fails only for unknown kinds.
func Parse(kind diagram.Kind, src string, opts Options) (Result, error) {
	p, ok := Lookup(kind)
	if !ok {
		return Result{}, errors.New(errors.ErrCodeInvalidKind, "unknown parser kind: %q", kind)
	}
	opts = opts.withDefaults()

	src = normalize(src)
	sample := opts.Live && strings.TrimSpace(src) == ""
	if sample {
		src = normalize(Sample(kind))
	}

	res := p(src, opts)
	res.Kind = kind
	res.Sample = sample
	if res.Items == nil {
		res.Items = []Item{}
	}
	if res.Links == nil {
		res.Links = []Link{}
	}
	return res, nil
}

// normalize unifies line endings and removes a leading byte order mark.
func normalize(src string) string {
	src = strings.TrimPrefix(src, "\ufeff")
	src = strings.ReplaceAll(src, "\r\n", "\n")
	return strings.ReplaceAll(src, "\r", "\n")
}
