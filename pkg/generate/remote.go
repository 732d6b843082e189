package generate

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/matzehuels/figura/pkg/diagram"
	"github.com/matzehuels/figura/pkg/httputil"
)

// ErrInvalidResponse marks a remote body that failed structural validation.
var ErrInvalidResponse = stderrors.New("invalid generator response")

// Generator produces documents remotely, for example from free text with
// a language model behind an HTTP endpoint.
type Generator interface {
	Generate(ctx context.Context, req Request) (diagram.Document, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (diagram.Document, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (diagram.Document, error) {
	return f(ctx, req)
}

// HTTPGenerator posts requests as JSON and expects a body of the form
// {"document": {...}}.
type HTTPGenerator struct {
	URL    string
	Client *httputil.Client
}

// NewHTTPGenerator returns a generator posting to url.
func NewHTTPGenerator(url string, timeout time.Duration, attempts int) *HTTPGenerator {
	c := httputil.NewClient(timeout)
	if attempts > 0 {
		c.Attempts = attempts
	}
	return &HTTPGenerator{URL: url, Client: c}
}

// Generate implements Generator.
func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (diagram.Document, error) {
	client := g.Client
	if client == nil {
		client = httputil.NewClient(0)
	}
	body, err := client.PostJSON(ctx, g.URL, req)
	if err != nil {
		return diagram.Document{}, err
	}
	return DecodeDocument(body, req.Kind)
}

// DecodeDocument validates a generator response body. The body must be a
// JSON object whose "document" member is a valid, non-empty Document of
// the requested kind.
func DecodeDocument(body []byte, kind diagram.Kind) (diagram.Document, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil || envelope == nil {
		return diagram.Document{}, fmt.Errorf("%w: not a JSON object", ErrInvalidResponse)
	}
	raw, ok := envelope["document"]
	if !ok || string(raw) == "null" {
		return diagram.Document{}, fmt.Errorf("%w: missing document", ErrInvalidResponse)
	}
	doc, err := diagram.Unmarshal(raw)
	if err != nil {
		return diagram.Document{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if doc.IsEmpty() {
		return diagram.Document{}, fmt.Errorf("%w: document has no nodes", ErrInvalidResponse)
	}
	if doc.Kind == "" {
		doc.Kind = kind
	}
	if doc.Kind != kind {
		return diagram.Document{}, fmt.Errorf("%w: got %s document, want %s", ErrInvalidResponse, doc.Kind, kind)
	}
	return doc, nil
}

// generateRemote asks the remote generator and stamps the result.
func (r *Runner) generateRemote(ctx context.Context, req Request) (diagram.Document, error) {
	doc, err := r.Remote.Generate(ctx, req)
	if err != nil {
		return diagram.Document{}, err
	}
	if err := doc.Validate(); err != nil {
		return diagram.Document{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if req.Title != "" {
		doc = doc.WithTitle(req.Title)
	}
	if doc.GeneratedAt.IsZero() {
		doc.GeneratedAt = r.now().UTC()
	}
	return doc, nil
}
