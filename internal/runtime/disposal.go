package runtime

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// Bag collects the cleanup obligations of one module instance: release
// callbacks, timers, tickers, context cancellations, closers and event
// subscriptions. Everything is released together, exactly once, during
// unload — regardless of whether the unload hook itself succeeded.
type Bag struct {
	logger *slog.Logger

	mu       sync.Mutex
	released bool
	items    []obligation
}

type obligation struct {
	kind    string
	release func() error
}

// NewBag creates an empty disposal bag.
func NewBag(logger *slog.Logger) *Bag {
	return &Bag{logger: logger}
}

func (b *Bag) add(kind string, release func() error) {
	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		// Late registration after unload: release immediately so nothing
		// leaks past the terminal state.
		b.runOne(obligation{kind: kind, release: release})
		return
	}
	b.items = append(b.items, obligation{kind: kind, release: release})
	b.mu.Unlock()
}

// Add registers an arbitrary release callback.
func (b *Bag) Add(release func()) {
	b.add("callback", func() error {
		release()
		return nil
	})
}

// AddCloser registers an io.Closer to be closed at unload.
func (b *Bag) AddCloser(c io.Closer) {
	b.add("closer", c.Close)
}

// AddCancel registers a context cancellation (deferred-value cancellation).
func (b *Bag) AddCancel(cancel func()) {
	b.add("cancel", func() error {
		cancel()
		return nil
	})
}

// AddTimer registers a timer to be stopped at unload.
func (b *Bag) AddTimer(t *time.Timer) {
	b.add("timer", func() error {
		t.Stop()
		return nil
	})
}

// AddTicker registers a ticker to be stopped at unload.
func (b *Bag) AddTicker(t *time.Ticker) {
	b.add("ticker", func() error {
		t.Stop()
		return nil
	})
}

// AddSubscription registers an event subscription cancel function.
func (b *Bag) AddSubscription(cancel func()) {
	b.add("subscription", func() error {
		cancel()
		return nil
	})
}

// Len returns the number of pending obligations.
func (b *Bag) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Release runs every obligation in reverse registration order, exactly once.
// Errors from individual obligations are logged, never propagated: disposal
// must not derail the unload path.
func (b *Bag) Release() {
	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		return
	}
	b.released = true
	items := b.items
	b.items = nil
	b.mu.Unlock()

	for i := len(items) - 1; i >= 0; i-- {
		b.runOne(items[i])
	}
}

func (b *Bag) runOne(o obligation) {
	if err := o.release(); err != nil {
		b.logger.Warn("disposal obligation failed", "kind", o.kind, "err", err)
	}
}
