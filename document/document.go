// Package document defines how configuration bytes are turned into the
// untyped document tree and back.
//
// A Document is a stateless codec for one on-disk format. The in-memory tree
// is always map[string]any normalized by mapdoc.Normalize, so code that works
// on the tree never needs to know which format the file used.
package document

// Document converts between raw bytes of one format and the document tree.
type Document interface {
	// Get parses data into a document tree. Empty or whitespace-only input
	// yields an empty, non-nil map.
	//
	// Example:
	//   tree, err := doc.Get([]byte("namespace: ns\n"))
	//   ns := tree["namespace"].(string)
	Get(data []byte) (map[string]any, error)

	// Marshal serializes the tree. Parsing the output with Get yields a tree
	// structurally equal to data.
	Marshal(data map[string]any) ([]byte, error)

	// Format reports which format this codec handles.
	Format() DocumentFormat
}

// DocumentFormat names a serialization format.
type DocumentFormat string

const (
	// FormatYAML is YAML via gopkg.in/yaml.v3. It is the default format.
	FormatYAML DocumentFormat = "yaml"

	// FormatTOML is TOML via github.com/pelletier/go-toml/v2.
	FormatTOML DocumentFormat = "toml"

	// FormatJSON is plain JSON via github.com/goccy/go-json.
	FormatJSON DocumentFormat = "json"

	// FormatJSONC is JSON with comments and trailing commas via
	// github.com/tailscale/hujson.
	FormatJSONC DocumentFormat = "jsonc"
)
