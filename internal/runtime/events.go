package runtime

import (
	"log/slog"
	"sync"

	"github.com/aretw0/lattice/pkg/domain"
)

// eventBuffer is the per-subscriber channel capacity. Slow subscribers drop
// events rather than block a transition.
const eventBuffer = 16

// Bus is the broadcast channel set for one module instance: one stream per
// lifecycle topic, carrying both successful transition notifications and
// transition errors.
//
// External observers subscribe to buffered channels; the runtime itself
// (parent/child wiring) attaches synchronous observers so that ordering
// guarantees hold without racing a goroutine.
type Bus struct {
	logger *slog.Logger

	mu        sync.Mutex
	closed    bool
	channels  map[domain.Topic]map[chan domain.Event]struct{}
	observers map[domain.Topic]map[int]func(domain.Event)
	nextID    int
}

// NewBus creates an open bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		logger:    logger,
		channels:  make(map[domain.Topic]map[chan domain.Event]struct{}),
		observers: make(map[domain.Topic]map[int]func(domain.Event)),
	}
}

// Subscribe registers a read-only channel on a topic. The returned cancel
// function releases the subscription; it is safe to call more than once.
// After the bus closes (terminal did-unload), the channel is closed and
// delivers no further events.
func (b *Bus) Subscribe(topic domain.Topic) (<-chan domain.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan domain.Event, eventBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	if _, ok := b.channels[topic]; !ok {
		b.channels[topic] = make(map[chan domain.Event]struct{})
	}
	b.channels[topic][ch] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if subs, ok := b.channels[topic]; ok {
				if _, live := subs[ch]; live {
					delete(subs, ch)
					close(ch)
				}
			}
		})
	}
	return ch, cancel
}

// observe registers a synchronous callback on a topic. The callback runs in
// the publishing goroutine, so it must not block on the publisher's own
// transition. Used for parent/child lifecycle wiring.
func (b *Bus) observe(topic domain.Topic, fn func(domain.Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	if _, ok := b.observers[topic]; !ok {
		b.observers[topic] = make(map[int]func(domain.Event))
	}
	id := b.nextID
	b.nextID++
	b.observers[topic][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if obs, ok := b.observers[topic]; ok {
			delete(obs, id)
		}
	}
}

// Publish broadcasts an event to every observer and subscriber of the topic.
// Synchronous observers run first; their relative order is not guaranteed.
// Channel sends never block: a full subscriber drops the event.
func (b *Bus) Publish(event domain.Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	var fns []func(domain.Event)
	for _, fn := range b.observers[event.Topic] {
		fns = append(fns, fn)
	}
	var chs []chan domain.Event
	for ch := range b.channels[event.Topic] {
		chs = append(chs, ch)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
	for _, ch := range chs {
		select {
		case ch <- event:
		default:
			// Drop event if subscriber buffer is full (slow client)
			b.logger.Warn("event dropped: subscriber buffer full",
				"topic", event.Topic,
				"module", event.Module,
			)
		}
	}
}

// Close closes every subscriber channel and drops all observers. It is the
// last action of a terminal unload, after the did-unload emission. Safe to
// call more than once.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for topic, subs := range b.channels {
		for ch := range subs {
			close(ch)
		}
		delete(b.channels, topic)
	}
	for topic := range b.observers {
		delete(b.observers, topic)
	}
}
