package config

import (
	"github.com/yacchi/assigner/jsonptr"
	"github.com/yacchi/assigner/mapdoc"
)

// SensitiveMaskFunc replaces a sensitive value for display.
type SensitiveMaskFunc func(value any) any

// DefaultMaskString replaces sensitive values in MaskSecrets.
const DefaultMaskString = "********"

// SensitivePaths lists the JSON Pointers of access tokens across every
// schema version.
var SensitivePaths = []string{
	"/" + LegacyTokenField,
	"/gitlab-token",
	"/backend/token",
	"/canvas-token",
}

// IsSensitive reports whether key addresses an access token.
func IsSensitive(key string) bool {
	ptr := pointer(key)
	for _, p := range SensitivePaths {
		if p == ptr {
			return true
		}
	}
	return false
}

// Masked returns a copy of the document with every sensitive value
// passed through mask. Absent and empty values are left alone.
func (c *Config) Masked(mask SensitiveMaskFunc) map[string]any {
	out := mapdoc.DeepCopy(c.data)
	for _, p := range SensitivePaths {
		v, ok := jsonptr.Get(out, p)
		if !ok || v == nil || v == "" {
			continue
		}
		jsonptr.Set(out, p, mask(v))
	}
	return out
}

// MaskSecrets is Masked with DefaultMaskString.
func (c *Config) MaskSecrets() map[string]any {
	return c.Masked(func(any) any { return DefaultMaskString })
}
