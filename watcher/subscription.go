package watcher

import (
	"context"
	"sync"

	"github.com/yacchi/assigner/source"
)

type subscriptionWatcher struct {
	sub   source.Subscriber
	fetch FetchFunc
	cfg   Config

	results chan Result
	stopCh  chan struct{}
	stopFn  source.StopFunc

	mu      sync.Mutex
	running bool
}

// NewSubscription creates a Watcher that calls fetch whenever sub reports a
// change. Bursts of events are coalesced into a single fetch.
func NewSubscription(sub source.Subscriber, fetch FetchFunc, cfg Config) Watcher {
	return &subscriptionWatcher{sub: sub, fetch: fetch, cfg: cfg}
}

func (w *subscriptionWatcher) Type() Type {
	return TypeSubscription
}

func (w *subscriptionWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	events := make(chan struct{}, 1)
	errs := make(chan error, 8)
	notify := func(err error) {
		if err != nil {
			select {
			case errs <- err:
			default:
			}
			return
		}
		select {
		case events <- struct{}{}:
		default:
		}
	}

	// Subscribe before the initial fetch so no change between the two is missed.
	stop, err := w.sub.Subscribe(ctx, notify)
	if err != nil {
		w.mu.Unlock()
		return err
	}

	w.running = true
	w.stopFn = stop
	w.results = make(chan Result)
	w.stopCh = make(chan struct{})
	results, stopCh := w.results, w.stopCh
	w.mu.Unlock()

	t := &tracker{compare: w.cfg.CompareFunc}
	fetch := func() bool {
		data, err := w.fetch(ctx)
		if err != nil {
			return send(ctx, stopCh, results, Result{Err: err})
		}
		if t.changed(data) {
			return send(ctx, stopCh, results, Result{Data: data})
		}
		return true
	}

	go func() {
		defer close(results)

		if !fetch() {
			return
		}
		for {
			select {
			case <-events:
				if !fetch() {
					return
				}
			case err := <-errs:
				if !send(ctx, stopCh, results, Result{Err: err}) {
					return
				}
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			}
		}
	}()

	return nil
}

func (w *subscriptionWatcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	stop := w.stopFn
	w.stopFn = nil
	w.mu.Unlock()

	if stop != nil {
		return stop()
	}
	return nil
}

func (w *subscriptionWatcher) Results() <-chan Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.results
}
