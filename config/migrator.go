package config

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/yacchi/assigner/mapdoc"
	"github.com/yacchi/assigner/schema"
)

// Registry pairs the schema of every version with the steps between them.
// Steps[v] upgrades documents from Schemas[v] to Schemas[v+1].
type Registry struct {
	Schemas []*schema.Schema
	Steps   []Step
}

var defaultRegistry = sync.OnceValue(func() Registry {
	return Registry{Schemas: Schemas(), Steps: Steps()}
})

// DefaultRegistry returns the registry compiled into this build. The
// slices are copies; the schemas themselves are shared and must not be
// modified.
func DefaultRegistry() Registry {
	r := defaultRegistry()
	return Registry{Schemas: slices.Clone(r.Schemas), Steps: slices.Clone(r.Steps)}
}

// Latest is the newest version described by r.
func (r Registry) Latest() int {
	return len(r.Schemas) - 1
}

func (r Registry) check() error {
	if len(r.Schemas) == 0 {
		return fmt.Errorf("registry has no schemas")
	}
	if len(r.Steps) != len(r.Schemas)-1 {
		return fmt.Errorf("registry has %d schemas but %d upgrade steps", len(r.Schemas), len(r.Steps))
	}
	for i, step := range r.Steps {
		if step.From != i {
			return fmt.Errorf("upgrade step %d starts from version %d", i, step.From)
		}
		if step.Apply == nil {
			return fmt.Errorf("upgrade step %d has no function", i)
		}
	}
	return nil
}

type options struct {
	logger   *zap.Logger
	registry *Registry
}

// Option configures a Migrator or a Config.
type Option func(*options)

// WithLogger sets the logger used for upgrade and validation warnings.
// The global zap logger is used by default.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRegistry replaces the default schema registry.
func WithRegistry(r Registry) Option {
	return func(o *options) {
		o.registry = &r
	}
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.L()
	}
	if o.registry == nil {
		r := defaultRegistry()
		o.registry = &r
	}
	return o
}

// Migrator validates documents and drives the upgrade chain.
type Migrator struct {
	registry   Registry
	validators []*schema.Validator
	logger     *zap.Logger
}

// NewMigrator creates a Migrator. It panics when the registry is malformed,
// which is a programming error.
func NewMigrator(opts ...Option) *Migrator {
	o := newOptions(opts)
	if err := o.registry.check(); err != nil {
		panic("config: " + err.Error())
	}

	validators := make([]*schema.Validator, len(o.registry.Schemas))
	for i, s := range o.registry.Schemas {
		validators[i] = schema.NewValidator(s)
	}
	return &Migrator{
		registry:   *o.registry,
		validators: validators,
		logger:     o.logger,
	}
}

// Latest is the newest version the migrator knows.
func (m *Migrator) Latest() int {
	return m.registry.Latest()
}

// Schema returns the schema of version.
func (m *Migrator) Schema(version int) (*schema.Schema, error) {
	if version < 0 || version > m.Latest() {
		return nil, &VersionError{Version: version, Latest: m.Latest(), Value: version}
	}
	return m.registry.Schemas[version], nil
}

// Validate checks doc against the schema of its own version.
func (m *Migrator) Validate(doc map[string]any) error {
	version := GetVersion(doc)
	if version == UnknownVersion {
		return &VersionError{Version: version, Latest: m.Latest(), Value: doc[VersionField]}
	}
	return m.ValidateVersion(doc, version)
}

// ValidateVersion checks doc against the schema of version. doc is never
// modified.
func (m *Migrator) ValidateVersion(doc map[string]any, version int) error {
	if version < 0 || version > m.Latest() {
		return &VersionError{Version: version, Latest: m.Latest(), Value: version}
	}
	if doc == nil {
		doc = map[string]any{}
	}
	if err := m.validators[version].Validate(doc); err != nil {
		return &ValidationError{Version: version, Err: err}
	}
	return nil
}

// Upgrade returns doc brought to the latest version. doc itself is never
// modified; the steps run on a deep copy.
//
// Documents whose version is unknown or newer than Latest are returned
// unchanged with a warning, and so are documents claiming an explicit
// version older than FirstExplicitVersion. When doc was valid for its own version, every
// intermediate result must validate too, otherwise an *UpgradeError is
// returned. A step that does not advance the version by exactly one panics.
func (m *Migrator) Upgrade(doc map[string]any) (map[string]any, error) {
	current := GetVersion(doc)
	latest := m.Latest()

	_, explicit := doc[VersionField]

	switch {
	case current < 0 || current > latest:
		m.logger.Warn("configuration version is not understood by this build, leaving it unchanged",
			zap.Any("version", doc[VersionField]),
			zap.Int("latest", latest))
		return doc, nil
	case explicit && current < FirstExplicitVersion:
		m.logger.Warn("configuration claims a version that never had a version field, leaving it unchanged",
			zap.Int("version", current),
			zap.Int("first_explicit", FirstExplicitVersion))
		return doc, nil
	case current == latest:
		return doc, nil
	}

	startingWasValid := m.ValidateVersion(doc, current) == nil

	upgraded := mapdoc.DeepCopy(doc)
	if upgraded == nil {
		upgraded = map[string]any{}
	}

	for v := current; v < latest; v++ {
		step := m.registry.Steps[v]
		upgraded = step.Apply(upgraded)

		if got := GetVersion(upgraded); got != v+1 {
			panic(fmt.Sprintf("config: upgrade step %q from version %d produced version %d", step.Description, v, got))
		}

		if startingWasValid {
			if err := m.ValidateVersion(upgraded, v+1); err != nil {
				return nil, &UpgradeError{From: v, To: v + 1, Err: err}
			}
		}

		m.logger.Debug("applied configuration upgrade",
			zap.Int("from", v),
			zap.Int("to", v+1),
			zap.String("step", step.Description))
	}

	m.logger.Info("configuration upgraded",
		zap.Int("from", current),
		zap.Int("to", latest))
	return upgraded, nil
}
