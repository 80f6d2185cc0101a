package watcher

import (
	"bytes"
	"context"
	"crypto/sha256"
	"time"
)

// DefaultPollInterval is the default polling interval for change detection.
const DefaultPollInterval = 30 * time.Second

// Type identifies how a Watcher detects changes.
type Type string

const (
	// TypePolling re-fetches the source at a fixed interval.
	TypePolling Type = "polling"

	// TypeSubscription fetches when the source pushes a change event.
	TypeSubscription Type = "subscription"
)

// CompareFunc compares two byte slices and returns true if they are different.
type CompareFunc func(old, new []byte) bool

// DefaultCompareFunc compares byte slices directly using bytes.Equal.
func DefaultCompareFunc(old, new []byte) bool {
	return !bytes.Equal(old, new)
}

// HashCompareFunc compares byte slices using SHA-256 hashes.
func HashCompareFunc(old, new []byte) bool {
	return sha256.Sum256(old) != sha256.Sum256(new)
}

// Config configures watcher behavior.
type Config struct {
	// PollInterval is the interval between polls. Only used by polling
	// watchers. Default is 30 seconds.
	PollInterval time.Duration

	// CompareFunc decides whether fetched data differs from the last
	// delivered data. Default is DefaultCompareFunc.
	CompareFunc CompareFunc
}

// Option is a functional option for Config.
type Option func(*Config)

// WithPollInterval sets the polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) {
		c.PollInterval = d
	}
}

// WithCompareFunc sets the comparison function for change detection.
func WithCompareFunc(f CompareFunc) Option {
	return func(c *Config) {
		c.CompareFunc = f
	}
}

// NewConfig creates a Config with the given options applied over the defaults.
func NewConfig(opts ...Option) Config {
	cfg := Config{
		PollInterval: DefaultPollInterval,
		CompareFunc:  DefaultCompareFunc,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.CompareFunc == nil {
		cfg.CompareFunc = DefaultCompareFunc
	}
	return cfg
}

// Result is one delivery from a Watcher: either the current data or an error.
type Result struct {
	Data []byte
	Err  error
}

// FetchFunc reads the current data from the watched source.
type FetchFunc func(ctx context.Context) ([]byte, error)

// tracker remembers the last delivered data.
type tracker struct {
	compare CompareFunc
	last    []byte
	seen    bool
}

// changed reports whether data should be delivered and records it if so.
// The first call always reports a change.
func (t *tracker) changed(data []byte) bool {
	if t.seen && !t.compare(t.last, data) {
		return false
	}
	t.seen = true
	t.last = data
	return true
}
