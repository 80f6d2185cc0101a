// Package bytes provides a read-only configuration source over a byte
// slice, used when the document is piped in (--config -).
package bytes

import (
	"context"

	"github.com/yacchi/assigner/source"
)

// Source serves a fixed document. Save always returns
// source.ErrSaveNotSupported.
type Source struct {
	data     []byte
	location string
}

// Ensure Source implements the source.Source interface.
var _ source.Source = (*Source)(nil)

// New creates a source from raw bytes. location names the document in
// messages and selects its format; data is copied.
//
// Example:
//
//	src := bytes.New(data, "stdin.yml")
func New(data []byte, location string) *Source {
	return &Source{
		data:     append([]byte(nil), data...),
		location: location,
	}
}

// FromString creates a source from a string.
func FromString(data, location string) *Source {
	return New([]byte(data), location)
}

// Load returns a copy of the data.
func (s *Source) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := make([]byte, len(s.data))
	copy(result, s.data)
	return result, nil
}

// Save always returns source.ErrSaveNotSupported.
func (s *Source) Save(ctx context.Context, updateFunc source.UpdateFunc) error {
	return source.ErrSaveNotSupported
}

// CanSave returns false.
func (s *Source) CanSave() bool {
	return false
}

// Location returns the name given to New.
func (s *Source) Location() string {
	return s.location
}
