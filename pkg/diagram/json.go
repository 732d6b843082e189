package diagram

import (
	"encoding/json"
	"fmt"
	"os"
)

// =============================================================================
// Document Serialization API
// =============================================================================

// Marshal serializes a Document to pretty-printed JSON bytes.
func Marshal(d Document) ([]byte, error) {
	if d.Nodes == nil {
		d.Nodes = []Node{}
	}
	if d.Edges == nil {
		d.Edges = []Edge{}
	}
	return json.MarshalIndent(d, "", "  ")
}

// Unmarshal deserializes JSON bytes into a Document and validates it.
func Unmarshal(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return Document{}, fmt.Errorf("unmarshal document: %w", err)
	}
	for i := range d.Nodes {
		if d.Nodes[i].Kind == "" {
			d.Nodes[i].Kind = NodeGeneric
		}
	}
	if err := d.Validate(); err != nil {
		return Document{}, fmt.Errorf("invalid document: %w", err)
	}
	return d, nil
}

// WriteFile writes a Document to a JSON file.
func WriteFile(d Document, path string) error {
	data, err := Marshal(d)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadFile reads a Document from a JSON file.
func ReadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Unmarshal(data)
}
