package config

import (
	"fmt"

	"github.com/yacchi/assigner/decoder"
	"github.com/yacchi/assigner/roster"
)

// Backend is the tagged backend descriptor. Token and Host are only
// meaningful for BackendGitLab.
type Backend struct {
	Name  string `json:"name"`
	Token string `json:"token,omitempty"`
	Host  string `json:"host,omitempty"`
}

// Settings is the typed view of a latest-version document.
type Settings struct {
	Version       int              `json:"version"`
	Backend       Backend          `json:"backend"`
	Namespace     string           `json:"namespace"`
	NamespaceID   int              `json:"namespace-id,omitempty"`
	CourseName    string           `json:"course-name,omitempty"`
	Semester      string           `json:"semester"`
	Roster        []roster.Student `json:"roster"`
	CanvasToken   string           `json:"canvas-token,omitempty"`
	CanvasHost    string           `json:"canvas-host,omitempty"`
	CanvasCourses []CanvasCourse   `json:"canvas-courses,omitempty"`
}

// Settings decodes the document. Only documents at the latest version can
// be decoded; older ones must go through Upgrade first. Scalars stored with
// the wrong type, as `set --string` can produce, are converted.
func (c *Config) Settings() (*Settings, error) {
	if v := c.Version(); v != c.migrator.Latest() {
		return nil, &VersionError{Version: v, Latest: c.migrator.Latest(), Value: c.data[VersionField]}
	}

	var s Settings
	if err := decoder.Weak(c.data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return &s, nil
}

// Backend decodes the backend descriptor.
func (c *Config) Backend() (Backend, error) {
	var b Backend
	raw, ok := c.data["backend"]
	if !ok {
		return b, fmt.Errorf("configuration has no backend")
	}
	if err := decoder.Value(raw, &b); err != nil {
		return b, fmt.Errorf("failed to decode backend: %w", err)
	}
	return b, nil
}
