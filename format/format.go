// Package format selects a document codec for a configuration location.
package format

import (
	"fmt"
	"path"
	"strings"

	"github.com/yacchi/assigner/document"
	"github.com/yacchi/assigner/format/json"
	"github.com/yacchi/assigner/format/jsonc"
	"github.com/yacchi/assigner/format/toml"
	"github.com/yacchi/assigner/format/yaml"
)

// Default is the format used when a location carries no recognizable
// extension, such as a bare dotfile.
const Default = document.FormatYAML

var extensions = map[string]document.DocumentFormat{
	".yml":   document.FormatYAML,
	".yaml":  document.FormatYAML,
	".toml":  document.FormatTOML,
	".json":  document.FormatJSON,
	".jsonc": document.FormatJSONC,
}

// New returns the codec for format.
func New(format document.DocumentFormat) (document.Document, error) {
	switch format {
	case document.FormatYAML:
		return yaml.New(), nil
	case document.FormatTOML:
		return toml.New(), nil
	case document.FormatJSON:
		return json.New(), nil
	case document.FormatJSONC:
		return jsonc.New(), nil
	default:
		return nil, fmt.Errorf("unsupported document format %q", format)
	}
}

// Detect infers the format from the extension of location, which may be a
// file path or an s3:// URL. Unknown extensions fall back to Default.
func Detect(location string) document.DocumentFormat {
	ext := strings.ToLower(path.Ext(location))
	if f, ok := extensions[ext]; ok {
		return f
	}
	return Default
}

// ForLocation is New(Detect(location)).
func ForLocation(location string) document.Document {
	doc, _ := New(Detect(location))
	return doc
}
