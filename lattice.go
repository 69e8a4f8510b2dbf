package lattice

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/lattice/internal/runtime"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

// Convenience aliases so most consumers only import the root package.
type (
	// Transition is the asynchronous completion handle of a state change.
	Transition = runtime.Transition

	// Lifecycle is the overridable hook interface for payload authors.
	Lifecycle = ports.Lifecycle

	// Hooks provides no-op defaults for every lifecycle hook; embed it and
	// override only what the payload needs.
	Hooks = ports.BaseLifecycle

	// Event is delivered on lifecycle topic subscriptions.
	Event = domain.Event

	// Topic identifies one lifecycle signal stream.
	Topic = domain.Topic
)

// Module is a composable runtime unit with a managed
// load/suspend/resume/unload lifecycle. A module supports exactly one
// load→unload cycle; suspended↔loaded may cycle any number of times in
// between.
//
// Module is the high-level entry point of the library. It wraps the
// internal runtime coordinator and provides a simplified API for consumers.
type Module struct {
	coord *runtime.Coordinator
}

// Option defines a functional option for configuring a Module.
type Option func(*settings)

type settings struct {
	lifecycle ports.Lifecycle
	logger    *slog.Logger
	journal   ports.Journal
}

// WithLifecycle attaches the payload's hook implementation.
func WithLifecycle(l ports.Lifecycle) Option {
	return func(s *settings) {
		s.lifecycle = l
	}
}

// WithLogger sets a custom structured logger for the module.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithJournal wires a transition audit journal.
func WithJournal(j ports.Journal) Option {
	return func(s *settings) {
		s.journal = j
	}
}

// New creates a module in the instantiated state. The name identifies the
// module in logs, events, journal entries and module trees.
func New(name string, opts ...Option) *Module {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	m := &Module{}
	m.coord = runtime.New(name, s.lifecycle,
		runtime.WithLogger(s.logger),
		runtime.WithJournal(s.journal),
		runtime.WithSelf(m),
	)
	return m
}

// Name returns the module's name.
func (m *Module) Name() string { return m.coord.Name() }

// State returns the current lifecycle state.
func (m *Module) State() domain.LifecycleState { return m.coord.State() }

// Load moves the module from instantiated to loaded.
func (m *Module) Load(ctx context.Context) *Transition { return m.coord.Load(ctx) }

// Suspend quiesces the module and all of its children.
func (m *Module) Suspend(ctx context.Context) *Transition { return m.coord.Suspend(ctx) }

// Resume reactivates a suspended module and all of its children.
func (m *Module) Resume(ctx context.Context) *Transition { return m.coord.Resume(ctx) }

// Unload terminates the module after a successful negotiation with itself
// and all descendants. Any participant may veto; on veto the module rolls
// back to its pre-unload state and the returned handle fails with a
// *domain.VetoError.
func (m *Module) Unload(ctx context.Context) *Transition { return m.coord.Unload(ctx) }

// CanUnload polls the module and all descendants for unload eligibility
// without changing any state.
func (m *Module) CanUnload(ctx context.Context) domain.CanUnloadResult {
	return m.coord.CanUnload(ctx)
}

// RegisterChild composes a child module under this one and loads it.
func (m *Module) RegisterChild(ctx context.Context, child *Module) error {
	return m.coord.RegisterChild(ctx, child.coord)
}

// Children returns the active child modules in load order.
func (m *Module) Children() []*Module {
	coords := m.coord.Children()
	out := make([]*Module, 0, len(coords))
	for _, c := range coords {
		if child, ok := c.Module().(*Module); ok {
			out = append(out, child)
		}
	}
	return out
}

// Subscribe registers a read-only observer channel on a lifecycle topic.
// The cancel function releases the subscription. After the module unloads,
// the channel is closed and delivers no further events.
func (m *Module) Subscribe(topic Topic) (<-chan Event, func()) {
	return m.coord.Bus().Subscribe(topic)
}

// State predicates.

func (m *Module) IsInstantiated() bool { return m.State() == domain.StateInstantiated }
func (m *Module) IsLoading() bool      { return m.State() == domain.StateLoading }
func (m *Module) IsLoaded() bool       { return m.State() == domain.StateLoaded }
func (m *Module) IsSuspending() bool   { return m.State() == domain.StateSuspending }
func (m *Module) IsSuspended() bool    { return m.State() == domain.StateSuspended }
func (m *Module) IsResuming() bool     { return m.State() == domain.StateResuming }
func (m *Module) IsUnloading() bool    { return m.State() == domain.StateUnloading }
func (m *Module) IsUnloaded() bool     { return m.State() == domain.StateUnloaded }

// Disposal registration. Everything registered here is released
// automatically, exactly once, when the module unloads.

// OnDispose registers an arbitrary cleanup callback.
func (m *Module) OnDispose(release func()) { m.coord.Bag().Add(release) }

// DisposeCloser closes c at unload.
func (m *Module) DisposeCloser(c io.Closer) { m.coord.Bag().AddCloser(c) }

// DisposeCancel cancels a context (deferred-value cancellation) at unload.
func (m *Module) DisposeCancel(cancel context.CancelFunc) { m.coord.Bag().AddCancel(cancel) }

// DisposeTimer stops the timer at unload.
func (m *Module) DisposeTimer(t *time.Timer) { m.coord.Bag().AddTimer(t) }

// DisposeTicker stops the ticker at unload.
func (m *Module) DisposeTicker(t *time.Ticker) { m.coord.Bag().AddTicker(t) }

// DisposeSubscription releases an event subscription at unload.
func (m *Module) DisposeSubscription(cancel func()) { m.coord.Bag().AddSubscription(cancel) }
