// Package jsonc provides the JSONC (JSON with comments) codec for
// configuration documents, built on github.com/tailscale/hujson.
//
// Comments and trailing commas are accepted on read. The configuration is
// saved as a whole-document overwrite, so comments do not survive a save;
// output is formatted with hujson so it stays pleasant to edit by hand.
package jsonc

import (
	"bytes"
	"fmt"

	"github.com/tailscale/hujson"
	"github.com/yacchi/assigner/document"
	"github.com/yacchi/assigner/format/json"
)

// Document is the JSONC codec. It is stateless.
type Document struct{}

// Ensure Document implements document.Document interface.
var _ document.Document = (*Document)(nil)

// New returns a JSONC Document.
func New() *Document {
	return &Document{}
}

// Format returns document.FormatJSONC.
func (d *Document) Format() document.DocumentFormat {
	return document.FormatJSONC
}

// Get parses JSONC bytes into a normalized document tree.
func (d *Document) Get(data []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return map[string]any{}, nil
	}

	v, err := hujson.Parse(trimmed)
	if err != nil {
		return nil, &document.ParseError{Format: document.FormatJSONC, Err: err}
	}
	v.Standardize()

	return json.Decode(v.Pack(), document.FormatJSONC)
}

// Marshal writes the tree as hujson-formatted JSON.
func (d *Document) Marshal(data map[string]any) ([]byte, error) {
	raw, err := json.New().Marshal(data)
	if err != nil {
		return nil, err
	}

	out, err := hujson.Format(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to format JSONC: %w", err)
	}
	return out, nil
}
