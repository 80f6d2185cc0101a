package decoder

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

var _ Func = Weak

// Weak decodes m into target with mapstructure, reading json struct tags.
// Scalars are converted where possible, so a hand-edited "12" still fills
// an int field.
func Weak(m map[string]any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(m); err != nil {
		return fmt.Errorf("failed to decode to target type: %w", err)
	}
	return nil
}
