package watcher

import (
	"context"
	"sync"
	"time"
)

type pollingWatcher struct {
	fetch FetchFunc
	cfg   Config

	results chan Result
	stopCh  chan struct{}

	mu      sync.Mutex
	running bool
}

// NewPolling creates a Watcher that calls fetch every cfg.PollInterval.
// The first poll happens immediately.
func NewPolling(fetch FetchFunc, cfg Config) Watcher {
	return &pollingWatcher{fetch: fetch, cfg: cfg}
}

func (w *pollingWatcher) Type() Type {
	return TypePolling
}

func (w *pollingWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.results = make(chan Result)
	w.stopCh = make(chan struct{})
	results, stopCh := w.results, w.stopCh
	w.mu.Unlock()

	t := &tracker{compare: w.cfg.CompareFunc}

	go func() {
		defer close(results)

		for {
			startTime := time.Now()

			data, err := w.fetch(ctx)
			switch {
			case err != nil:
				if !send(ctx, stopCh, results, Result{Err: err}) {
					return
				}
			case t.changed(data):
				if !send(ctx, stopCh, results, Result{Data: data}) {
					return
				}
			}

			// Account for the time spent fetching.
			waitTime := w.cfg.PollInterval - time.Since(startTime)
			if waitTime <= 0 {
				continue
			}

			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			}
		}
	}()

	return nil
}

func (w *pollingWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	close(w.stopCh)
	return nil
}

func (w *pollingWatcher) Results() <-chan Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.results
}
