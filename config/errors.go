package config

import (
	"errors"
	"fmt"
)

// ErrRosterNotList is returned when the roster field holds something other
// than a sequence. The value is left as it is.
var ErrRosterNotList = errors.New("roster is not a list")

// ValidationError reports a document that does not conform to the schema of
// Version. Err is the *schema.ValidationErrors produced by the validator.
type ValidationError struct {
	Version int
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration is not valid for schema version %d: %v", e.Version, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// VersionError reports a document whose version this build does not know:
// either newer than Latest or not an integer at all (Version is
// UnknownVersion and Value holds the raw field).
type VersionError struct {
	Version int
	Latest  int
	Value   any
}

func (e *VersionError) Error() string {
	if e.Version == UnknownVersion {
		return fmt.Sprintf("configuration version %v is not an integer", e.Value)
	}
	if e.Version > e.Latest {
		return fmt.Sprintf("configuration version %d is newer than the latest known version %d", e.Version, e.Latest)
	}
	return fmt.Sprintf("configuration version %d is not a known schema version", e.Version)
}

// UpgradeError reports an upgrade step that turned a valid document into an
// invalid one. It is a defect in the upgrade chain, never a user error.
type UpgradeError struct {
	From int
	To   int
	Err  error
}

func (e *UpgradeError) Error() string {
	return fmt.Sprintf("upgrading configuration from version %d to %d produced an invalid document: %v", e.From, e.To, e.Err)
}

func (e *UpgradeError) Unwrap() error {
	return e.Err
}

// DuplicateUserError is returned when a student with Username is already on
// the roster.
type DuplicateUserError struct {
	Username string
}

func (e *DuplicateUserError) Error() string {
	return fmt.Sprintf("student %q is already on the roster", e.Username)
}
