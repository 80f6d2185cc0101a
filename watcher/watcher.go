// Package watcher delivers the contents of a configuration source each time
// it changes. Sources that implement source.Subscriber are watched through
// their change events; all others are polled.
package watcher

import (
	"context"

	"github.com/yacchi/assigner/source"
)

// Watcher watches a source and delivers results on a channel.
type Watcher interface {
	// Type returns how the watcher detects changes.
	Type() Type

	// Start begins watching. The first result carries the data current at
	// start; later results are sent only when the data changes or an error
	// occurs. Results are delivered until ctx is done or Stop is called,
	// after which the Results channel is closed.
	Start(ctx context.Context) error

	// Stop stops watching and releases resources.
	Stop() error

	// Results returns the channel created by Start.
	Results() <-chan Result
}

// New returns the watcher suited to src.
func New(src source.Source, opts ...Option) Watcher {
	cfg := NewConfig(opts...)
	if sub, ok := src.(source.Subscriber); ok {
		return NewSubscription(sub, src.Load, cfg)
	}
	return NewPolling(src.Load, cfg)
}

// send delivers r unless the watcher is shutting down.
func send(ctx context.Context, stopCh <-chan struct{}, results chan<- Result, r Result) bool {
	select {
	case results <- r:
		return true
	case <-ctx.Done():
		return false
	case <-stopCh:
		return false
	}
}
