// Package source provides the storage locations a configuration document is
// loaded from and saved back to. Sources only move raw bytes; parsing is
// handled by a document.Document.
package source

import (
	"context"
	"errors"
	"fmt"
)

// ErrSaveNotSupported is returned when Save is called on a source that doesn't support saving.
var ErrSaveNotSupported = errors.New("save not supported for this source")

// ErrSourceModified is returned when optimistic locking detects that the source
// has been modified since the last Load. This prevents overwriting external changes.
var ErrSourceModified = errors.New("source has been modified since last load")

// ErrNotExist matches, via errors.Is, every error a source returns when the
// configuration has never been written.
var ErrNotExist = errors.New("configuration does not exist")

// NotExistError reports a missing configuration at Location.
type NotExistError struct {
	Location string
	Err      error
}

func (e *NotExistError) Error() string {
	return fmt.Sprintf("configuration %q does not exist", e.Location)
}

func (e *NotExistError) Unwrap() error {
	return e.Err
}

// Is reports ErrNotExist as a match.
func (e *NotExistError) Is(target error) bool {
	return target == ErrNotExist
}

// UpdateFunc is a function that generates new data to save.
// It receives the current bytes from the source (captured at a safe point)
// and returns the new bytes to write. current is nil when nothing has been
// written yet.
type UpdateFunc func(current []byte) ([]byte, error)

// Source loads and optionally saves raw configuration data.
type Source interface {
	// Load reads the raw configuration data from the source.
	// A missing configuration is reported with an error matching ErrNotExist.
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the stored data with the bytes returned by updateFunc.
	//
	// The updateFunc receives the current bytes captured at a safe checkpoint.
	// Sources that can detect a concurrent writer return ErrSourceModified
	// and write nothing.
	//
	// Returns ErrSaveNotSupported if the source doesn't support saving.
	Save(ctx context.Context, updateFunc UpdateFunc) error

	// CanSave returns true if the source supports saving.
	CanSave() bool

	// Location identifies the source in messages and selects its format.
	Location() string
}

// NotifyFunc receives change notifications from a Subscriber. err is nil
// for a plain change event.
type NotifyFunc func(err error)

// StopFunc releases the resources held by a subscription.
type StopFunc func() error

// Subscriber is implemented by sources that can push change notifications.
// Sources without it are watched by polling Load.
type Subscriber interface {
	Subscribe(ctx context.Context, notify NotifyFunc) (StopFunc, error)
}
