// Package toml provides the TOML codec for configuration documents, built on
// github.com/pelletier/go-toml/v2.
//
// TOML has no null, so Marshal rejects trees that contain nil values instead
// of silently dropping them.
package toml

import (
	"bytes"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/yacchi/assigner/document"
	"github.com/yacchi/assigner/jsonptr"
	"github.com/yacchi/assigner/mapdoc"
)

// Document is the TOML codec. It is stateless.
type Document struct{}

// Ensure Document implements document.Document interface.
var _ document.Document = (*Document)(nil)

var (
	tomlMarshal   = toml.Marshal
	tomlUnmarshal = toml.Unmarshal
)

// New returns a TOML Document.
func New() *Document {
	return &Document{}
}

// Format returns document.FormatTOML.
func (d *Document) Format() document.DocumentFormat {
	return document.FormatTOML
}

// Get parses TOML bytes into a normalized document tree.
func (d *Document) Get(data []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}

	var result map[string]any
	if err := tomlUnmarshal(data, &result); err != nil {
		return nil, &document.ParseError{Format: document.FormatTOML, Err: err}
	}
	if result == nil {
		return map[string]any{}, nil
	}
	return mapdoc.Normalize(result), nil
}

// Marshal writes the tree as TOML. Arrays of mappings (the roster) become
// arrays of tables.
func (d *Document) Marshal(data map[string]any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}
	if err := checkNil("", data); err != nil {
		return nil, err
	}

	out, err := tomlMarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TOML: %w", err)
	}
	return out, nil
}

func checkNil(path string, v any) error {
	switch val := v.(type) {
	case nil:
		return document.UnsupportedAt(document.FormatTOML, path, "null values")
	case map[string]any:
		for k, item := range val {
			if err := checkNil(jsonptr.Append(path, k), item); err != nil {
				return err
			}
		}
	case []any:
		for i, item := range val {
			if err := checkNil(jsonptr.Append(path, i), item); err != nil {
				return err
			}
		}
	}
	return nil
}
