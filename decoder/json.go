package decoder

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/yacchi/assigner/mapdoc"
)

var _ Func = JSON

// JSON decodes m into target by round-tripping through JSON, honoring json
// struct tags.
func JSON(m map[string]any, target any) error {
	return Value(m, target)
}

// Value decodes an arbitrary tree fragment (a mapping, a sequence or a
// scalar) into target.
func Value(v any, target any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal map: %w", err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to unmarshal to target type: %w", err)
	}

	return nil
}

// Encode converts a typed value into a normalized tree fragment. Integers
// come back as int so the result compares equal to parsed documents.
func Encode(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	return mapdoc.NormalizeValue(numbers(out)), nil
}

func numbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		for k, item := range val {
			val[k] = numbers(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = numbers(item)
		}
		return val
	default:
		return v
	}
}
