package cache

// ScopedKeyer wraps a Keyer with a prefix, giving each tenant or
// environment its own namespace in a shared backend.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// DocumentKey generates a prefixed document key.
func (k *ScopedKeyer) DocumentKey(kind, input string, opts DocumentKeyOpts) string {
	return k.prefix + k.inner.DocumentKey(kind, input, opts)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(documentHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(documentHash, opts)
}
