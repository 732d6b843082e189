package cache

// DocumentKeyOpts holds everything besides kind and input that changes a
// generated document.
type DocumentKeyOpts struct {
	Title  string `json:"title,omitempty"`
	Config any    `json:"config,omitempty"` // geometry-relevant render settings
	Layout any    `json:"layout,omitempty"`
	Parse  any    `json:"parse,omitempty"`
}

// ArtifactKeyOpts holds everything that changes an export of a document.
type ArtifactKeyOpts struct {
	Format     string  `json:"format"`
	Scale      float64 `json:"scale,omitempty"`
	PixelRatio float64 `json:"pixelRatio,omitempty"`
	Monochrome bool    `json:"monochrome,omitempty"`
	Caption    string  `json:"caption,omitempty"`
	Style      any     `json:"style,omitempty"`
	Viewport   any     `json:"viewport,omitempty"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
}

// Keyer derives cache keys.
type Keyer interface {
	// DocumentKey keys a generated document.
	DocumentKey(kind, input string, opts DocumentKeyOpts) string

	// ArtifactKey keys an export of the document with the given hash.
	ArtifactKey(documentHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes all key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// DocumentKey returns "document:<hash>".
func (DefaultKeyer) DocumentKey(kind, input string, opts DocumentKeyOpts) string {
	return hashKey("document", kind, input, opts)
}

// ArtifactKey returns "artifact:<hash>".
func (DefaultKeyer) ArtifactKey(documentHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", documentHash, opts)
}
