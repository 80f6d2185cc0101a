// Package config loads, versions, validates and persists the assigner
// configuration document.
//
// A document is an untyped map[string]any read through a source.Source and a
// document.Document codec. On Open it is brought to the latest schema
// version by the Migrator; validation problems found at that point are
// logged rather than returned so the tool stays usable against a slightly
// malformed file. Use wraps a unit of work so that the document is written
// back on every exit path.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yacchi/assigner/document"
	"github.com/yacchi/assigner/format"
	"github.com/yacchi/assigner/jsonptr"
	"github.com/yacchi/assigner/mapdoc"
	"github.com/yacchi/assigner/source"
	awssource "github.com/yacchi/assigner/source/aws"
	"github.com/yacchi/assigner/source/fs"
)

// DefaultPath is the configuration location used when none is given.
const DefaultPath = "_config.yml"

// Config is a loaded configuration document bound to the place it came from.
// It is not safe for concurrent use.
type Config struct {
	src      source.Source
	doc      document.Document
	data     map[string]any
	migrator *Migrator
	logger   *zap.Logger
}

// Resolve picks the source and codec for location: s3:// URLs are read from
// S3, anything else is a local path. The codec follows the extension.
func Resolve(location string) (source.Source, document.Document, error) {
	var src source.Source
	if awssource.IsS3URL(location) {
		s3src, err := awssource.FromURL(location)
		if err != nil {
			return nil, nil, err
		}
		src = s3src
	} else {
		src = fs.New(location)
	}
	return src, format.ForLocation(location), nil
}

// Open loads the document from src, upgrades it to the latest version and
// validates it.
//
// A missing document yields an empty one. Parse errors and *UpgradeError are
// returned; *ValidationError and *VersionError are logged as warnings.
func Open(ctx context.Context, src source.Source, doc document.Document, opts ...Option) (*Config, error) {
	o := newOptions(opts)
	m := NewMigrator(opts...)
	logger := o.logger.With(zap.String("config", src.Location()))

	raw, err := src.Load(ctx)
	if err != nil {
		if !errors.Is(err, source.ErrNotExist) {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		logger.Debug("configuration does not exist yet, starting empty")
		raw = nil
	}

	data, err := doc.Get(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration %s: %w", src.Location(), err)
	}

	data, err = m.Upgrade(data)
	if err != nil {
		return nil, err
	}

	if err := m.Validate(data); err != nil {
		logger.Warn("Your configuration is not valid", zap.Error(err))
		var versionErr *VersionError
		if errors.As(err, &versionErr) {
			logger.Warn("Is your installation of assigner up to date?")
		}
		logger.Warn("Attempting to continue anyway...")
	}

	return &Config{
		src:      src,
		doc:      doc,
		data:     data,
		migrator: m,
		logger:   logger,
	}, nil
}

// Use opens the document, runs fn and saves the document afterwards, also
// when fn returns an error or panics. The save error is joined with fn's.
func Use(ctx context.Context, src source.Source, doc document.Document, fn func(*Config) error, opts ...Option) error {
	c, err := Open(ctx, src, doc, opts...)
	if err != nil {
		return err
	}

	saveCtx := context.WithoutCancel(ctx)
	defer func() {
		if r := recover(); r != nil {
			if err := c.Save(saveCtx); err != nil {
				c.logger.Error("failed to save configuration", zap.Error(err))
			}
			panic(r)
		}
	}()

	fnErr := fn(c)
	return errors.Join(fnErr, c.Save(saveCtx))
}

// UseFile is Use for the source and codec chosen by Resolve.
func UseFile(ctx context.Context, location string, fn func(*Config) error, opts ...Option) error {
	src, doc, err := Resolve(location)
	if err != nil {
		return err
	}
	return Use(ctx, src, doc, fn, opts...)
}

// Save writes the whole document back to its source.
func (c *Config) Save(ctx context.Context) error {
	if !c.src.CanSave() {
		return source.ErrSaveNotSupported
	}

	out, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	err = c.src.Save(ctx, func([]byte) ([]byte, error) {
		return out, nil
	})
	if err != nil {
		return fmt.Errorf("failed to save configuration %s: %w", c.src.Location(), err)
	}
	c.logger.Debug("configuration saved")
	return nil
}

// Marshal encodes the document in its own format.
func (c *Config) Marshal() ([]byte, error) {
	return c.doc.Marshal(c.data)
}

// Location identifies where the document is stored.
func (c *Config) Location() string {
	return c.src.Location()
}

// Format is the codec format of the document.
func (c *Config) Format() document.DocumentFormat {
	return c.doc.Format()
}

// Document returns the codec the document is read and written with.
func (c *Config) Document() document.Document {
	return c.doc
}

// Data returns the live document. Changes to it are saved.
func (c *Config) Data() map[string]any {
	return c.data
}

// Version is the schema version of the document.
func (c *Config) Version() int {
	return GetVersion(c.data)
}

// Validate checks the document against the schema of its version.
func (c *Config) Validate() error {
	return c.migrator.Validate(c.data)
}

// Migrator returns the migrator the document was opened with.
func (c *Config) Migrator() *Migrator {
	return c.migrator
}

// pointer maps a key to a JSON Pointer. Keys starting with "/" already are
// pointers; anything else names a top-level field, with "_" standing in
// for "-".
func pointer(key string) string {
	if strings.HasPrefix(key, "/") {
		return key
	}
	return "/" + jsonptr.Escape(strings.ReplaceAll(key, "_", "-"))
}

// Get returns the value stored under key.
func (c *Config) Get(key string) (any, bool) {
	ptr := pointer(key)
	if ptr == "/roster" {
		return c.Roster(), true
	}
	return jsonptr.Get(c.data, ptr)
}

// GetString returns the value under key when it is a string.
func (c *Config) GetString(key string) string {
	v, _ := c.Get(key)
	s, _ := v.(string)
	return s
}

// Set stores value under key, creating intermediate objects as needed.
func (c *Config) Set(key string, value any) error {
	if !jsonptr.Set(c.data, pointer(key), mapdoc.NormalizeValue(value)) {
		return fmt.Errorf("cannot set %q", key)
	}
	return nil
}

// Delete removes key and reports whether it was present.
func (c *Config) Delete(key string) bool {
	return jsonptr.Delete(c.data, pointer(key))
}

// Roster returns the roster sequence, storing an empty one first when the
// document has none.
func (c *Config) Roster() []any {
	if entries, ok := c.data["roster"].([]any); ok {
		return entries
	}
	if v, ok := c.data["roster"]; ok && v != nil {
		c.logger.Warn("roster is not a list, ignoring it", zap.Any("roster", v))
		return nil
	}
	entries := []any{}
	c.data["roster"] = entries
	return entries
}
