// Package decoder converts between untyped configuration trees and typed
// Go values.
package decoder

// Func decodes a map[string]any into target, which must be a pointer.
type Func func(data map[string]any, target any) error

// EncodeFunc converts a typed value back into a tree fragment.
type EncodeFunc func(v any) (any, error)
