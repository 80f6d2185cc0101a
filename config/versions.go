package config

import (
	"github.com/yacchi/assigner/mapdoc"
)

const (
	// VersionField records the schema version from version 2 on.
	VersionField = "version"

	// LegacyTokenField holds the GitLab token in version 0 documents.
	LegacyTokenField = "token"

	// UnknownVersion is reported for a version field that is not an integer.
	UnknownVersion = -1

	// FirstExplicitVersion is the first version that records VersionField.
	// Older versions are only ever inferred.
	FirstExplicitVersion = 2
)

// GetVersion infers the schema version of doc. An explicit version field is
// returned verbatim; documents without one are version 0 when they carry the
// legacy token field and version 1 otherwise.
func GetVersion(doc map[string]any) int {
	if raw, ok := doc[VersionField]; ok {
		v, ok := mapdoc.Int(raw)
		if !ok {
			return UnknownVersion
		}
		return v
	}
	if _, ok := doc[LegacyTokenField]; ok {
		return 0
	}
	return 1
}

// Latest is the newest schema version known to this build.
func Latest() int {
	return defaultRegistry().Latest()
}

// Validate checks doc against the schema of its own version.
func Validate(doc map[string]any) error {
	return NewMigrator().Validate(doc)
}

// ValidateVersion checks doc against the schema of version.
func ValidateVersion(doc map[string]any, version int) error {
	return NewMigrator().ValidateVersion(doc, version)
}

// Upgrade brings doc to the latest version using the default migrator.
func Upgrade(doc map[string]any) (map[string]any, error) {
	return NewMigrator().Upgrade(doc)
}
