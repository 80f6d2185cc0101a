// Package yaml provides the YAML codec for configuration documents.
//
// YAML is the default on-disk format; documents are written with two-space
// indentation and block style, matching what the config file has always
// looked like.
package yaml

import (
	"bytes"
	"fmt"

	"github.com/yacchi/assigner/document"
	"github.com/yacchi/assigner/mapdoc"
	"gopkg.in/yaml.v3"
)

// Document is the YAML codec. It is stateless.
type Document struct{}

// Ensure Document implements document.Document interface.
var _ document.Document = (*Document)(nil)

// New returns a YAML Document.
func New() *Document {
	return &Document{}
}

// Format returns document.FormatYAML.
func (d *Document) Format() document.DocumentFormat {
	return document.FormatYAML
}

// Get parses YAML bytes into a normalized document tree.
func (d *Document) Get(data []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}

	var root any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &document.ParseError{Format: document.FormatYAML, Err: err}
	}

	switch v := root.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return mapdoc.Normalize(v), nil
	default:
		return nil, &document.RootTypeError{Format: document.FormatYAML, Actual: fmt.Sprintf("%T", root)}
	}
}

// Marshal writes the tree as block-style YAML with two-space indentation.
func (d *Document) Marshal(data map[string]any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return buf.Bytes(), nil
}
