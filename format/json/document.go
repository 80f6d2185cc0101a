// Package json provides the JSON codec for configuration documents, built on
// github.com/goccy/go-json.
//
// Numbers are decoded as json.Number so that large integer identifiers keep
// their precision before the tree is normalized.
package json

import (
	"bytes"
	"fmt"

	gojson "github.com/goccy/go-json"
	"github.com/yacchi/assigner/document"
	"github.com/yacchi/assigner/mapdoc"
)

// Document is the JSON codec. It is stateless.
type Document struct{}

// Ensure Document implements document.Document interface.
var _ document.Document = (*Document)(nil)

// New returns a JSON Document.
func New() *Document {
	return &Document{}
}

// Format returns document.FormatJSON.
func (d *Document) Format() document.DocumentFormat {
	return document.FormatJSON
}

// Get parses JSON bytes into a normalized document tree.
func (d *Document) Get(data []byte) (map[string]any, error) {
	return Decode(data, document.FormatJSON)
}

// Marshal writes indented JSON followed by a newline.
func (d *Document) Marshal(data map[string]any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}
	out, err := gojson.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(out, '\n'), nil
}

// Decode parses standard JSON into a normalized tree. format is reported in
// errors so codecs layered on top of JSON (JSONC) keep their own name.
func Decode(data []byte, format document.DocumentFormat) (map[string]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return map[string]any{}, nil
	}

	dec := gojson.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, &document.ParseError{Format: format, Err: err}
	}

	switch v := root.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return mapdoc.Normalize(resolveNumbers(v).(map[string]any)), nil
	default:
		return nil, &document.RootTypeError{Format: format, Actual: fmt.Sprintf("%T", root)}
	}
}

// resolveNumbers replaces json.Number leaves with int64 or float64.
func resolveNumbers(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = resolveNumbers(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = resolveNumbers(item)
		}
		return val
	case gojson.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	default:
		return v
	}
}
