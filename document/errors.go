package document

import "fmt"

// ParseError is returned when bytes cannot be decoded as the expected format.
type ParseError struct {
	Format DocumentFormat
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// RootTypeError is returned when a document's top-level value is not a mapping.
type RootTypeError struct {
	Format DocumentFormat
	Actual string
}

func (e *RootTypeError) Error() string {
	return fmt.Sprintf("%s document root must be a mapping, got %s", e.Format, e.Actual)
}

// UnsupportedStructureError is returned by Marshal when the tree holds a value
// the target format cannot represent, such as null in TOML.
type UnsupportedStructureError struct {
	Format DocumentFormat
	Path   string
	Reason string
}

func (e *UnsupportedStructureError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("unsupported %s structure: %s", e.Format, e.Reason)
	}
	return fmt.Sprintf("unsupported %s structure at %q: %s", e.Format, e.Path, e.Reason)
}

// UnsupportedAt creates an UnsupportedStructureError at a JSON Pointer path.
//
// Example:
//
//	return nil, document.UnsupportedAt(document.FormatTOML, "/roster/0/id", "null values")
func UnsupportedAt(format DocumentFormat, path, reason string) *UnsupportedStructureError {
	return &UnsupportedStructureError{Format: format, Path: path, Reason: reason}
}
