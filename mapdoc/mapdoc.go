// Package mapdoc provides helpers for the untyped configuration document: a
// map[string]any tree whose leaves are strings, integers, booleans, floats or
// nil and whose inner nodes are map[string]any and []any.
//
// Each format decodes into this shape slightly differently (TOML yields int64,
// JSON yields float64), so parsers run Normalize before handing a document to
// the rest of the program.
package mapdoc

import (
	"math"
	"reflect"
	"sort"
)

// DeepCopy returns a copy of doc that shares no maps or slices with it.
func DeepCopy(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return DeepCopy(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}

// Normalize rewrites doc in place into the canonical shape: every integral
// number becomes int, map[any]any and typed slices become map[string]any and
// []any. It returns doc for convenience.
func Normalize(doc map[string]any) map[string]any {
	for k, v := range doc {
		doc[k] = normalizeValue(v)
	}
	return doc
}

// NormalizeValue is Normalize for an arbitrary tree fragment.
func NormalizeValue(v any) any {
	return normalizeValue(v)
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return Normalize(val)
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if ks, ok := k.(string); ok {
				out[ks] = normalizeValue(item)
			}
		}
		return out
	case []any:
		for i, item := range val {
			val[i] = normalizeValue(item)
		}
		return val
	case []map[string]any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Normalize(item)
		}
		return out
	case int64:
		if val >= math.MinInt && val <= math.MaxInt {
			return int(val)
		}
		return val
	case int32:
		return int(val)
	case uint64:
		if val <= math.MaxInt {
			return int(val)
		}
		return val
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return int(val)
		}
		return val
	default:
		return v
	}
}

// Equal reports whether two documents are structurally equal.
func Equal(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

// Keys returns the top-level keys of doc in sorted order.
func Keys(doc map[string]any) []string {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Int converts a decoded number into an int. Floats are accepted only when
// they carry no fractional part.
func Int(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		if n < math.MinInt || n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case uint:
		if uint64(n) > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case float32:
		if float32(math.Trunc(float64(n))) != n {
			return 0, false
		}
		return int(n), true
	case float64:
		if math.Trunc(n) != n || math.Abs(n) >= 1<<53 {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
