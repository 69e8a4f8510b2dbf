package runtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

// Coordinator is the per-instance lifecycle state machine. It validates
// preconditions, serializes overlapping operations through a single pending
// transition handle, runs the hook and event-emission sequence, and commits
// the new state only if it was not concurrently advanced by a nested
// operation.
//
// All mutable fields are owned by the instance; external code never mutates
// them directly.
type Coordinator struct {
	name    string
	logger  *slog.Logger
	hooks   ports.Lifecycle
	journal ports.Journal
	self    ports.Module

	bus *Bus
	bag *Bag

	mu       sync.Mutex
	state    domain.LifecycleState
	prev     domain.LifecycleState // set only while unloading; restored on veto
	pending  *Transition
	children []*childLink
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithJournal wires a transition audit journal.
func WithJournal(j ports.Journal) Option {
	return func(c *Coordinator) {
		c.journal = j
	}
}

// WithSelf sets the module handle passed to hooks. Defaults to the
// coordinator itself.
func WithSelf(m ports.Module) Option {
	return func(c *Coordinator) {
		c.self = m
	}
}

// New creates a coordinator in the instantiated state.
func New(name string, hooks ports.Lifecycle, opts ...Option) *Coordinator {
	c := &Coordinator{
		name:   name,
		hooks:  hooks,
		logger: logging.NewNop(),
		state:  domain.StateInstantiated,
	}
	if c.hooks == nil {
		c.hooks = ports.BaseLifecycle{}
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("module", name)
	c.bus = NewBus(c.logger)
	c.bag = NewBag(c.logger)
	if c.self == nil {
		c.self = c
	}
	return c
}

// Name returns the module name.
func (c *Coordinator) Name() string { return c.name }

// State returns the current lifecycle state.
func (c *Coordinator) State() domain.LifecycleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Idle reports whether no transition is currently in flight.
func (c *Coordinator) Idle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending == nil
}

// Module returns the handle passed to hooks for this instance.
func (c *Coordinator) Module() ports.Module { return c.self }

// Bus exposes the instance's event channel set.
func (c *Coordinator) Bus() *Bus { return c.bus }

// Bag exposes the instance's disposal registry.
func (c *Coordinator) Bag() *Bag { return c.bag }

// admission carries the go-ahead data for an admitted operation.
type admission struct {
	t           *Transition
	predecessor *Transition
	from        domain.LifecycleState
}

// admit runs the common precondition protocol for an operation. A non-nil
// existing handle means no new transition starts: either the operation is a
// redundant no-op (already-pending or already-resolved handle) or it is
// illegal from the current state (handle resolved with the error). Illegal
// transitions never surface synchronously; the calling convention stays
// uniform.
func (c *Coordinator) admit(op domain.Operation) (admission, *Transition) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case op.Target():
		c.logger.Debug("redundant operation: already in target state",
			"op", op, "state", c.state)
		return admission{}, resolvedTransition(op, nil)
	case op.Intermediate():
		c.logger.Debug("redundant operation: already transitioning",
			"op", op, "state", c.state)
		if c.pending != nil {
			return admission{}, c.pending
		}
		// A previous attempt failed mid-flight and left the intermediate
		// state behind; nothing is pending anymore.
		return admission{}, resolvedTransition(op, nil)
	}

	if !domain.CanStartFrom(op, c.state) {
		err := &domain.IllegalTransitionError{
			Module:  c.name,
			Op:      op,
			Current: c.state,
			Target:  op.Target(),
			Allowed: domain.AllowedSources(op),
		}
		c.logger.Warn("illegal transition rejected", "op", op, "from", c.state)
		return admission{}, resolvedTransition(op, err)
	}

	adm := admission{
		from:        c.state,
		predecessor: c.pending,
		t:           newTransition(op),
	}
	if op == domain.OpUnload {
		c.prev = c.state
	}
	c.state = op.Intermediate()
	c.pending = adm.t
	return adm, nil
}

// execute runs a transition body on its own goroutine, after the captured
// predecessor (if any) has settled. This is what serializes back-to-back
// operations on one instance: no two bodies ever run interleaved.
func (c *Coordinator) execute(ctx context.Context, adm admission, body func(context.Context, domain.LifecycleState) error) {
	go func() {
		if adm.predecessor != nil {
			adm.predecessor.wait()
		}
		c.settle(adm.t, body(ctx, adm.from))
	}()
}

// settle clears the pending handle and resolves it.
func (c *Coordinator) settle(t *Transition, err error) {
	c.mu.Lock()
	if c.pending == t {
		c.pending = nil
	}
	c.mu.Unlock()
	t.resolve(err)
}

// Load moves the module from instantiated to loaded.
func (c *Coordinator) Load(ctx context.Context) *Transition {
	adm, existing := c.admit(domain.OpLoad)
	if existing != nil {
		return existing
	}
	c.logger.Debug("transition started", "op", domain.OpLoad, "from", adm.from)
	c.execute(ctx, adm, c.loadBody)
	return adm.t
}

// Suspend quiesces the module and all of its children.
func (c *Coordinator) Suspend(ctx context.Context) *Transition {
	adm, existing := c.admit(domain.OpSuspend)
	if existing != nil {
		return existing
	}
	c.logger.Debug("transition started", "op", domain.OpSuspend, "from", adm.from)
	c.execute(ctx, adm, c.suspendBody)
	return adm.t
}

// Resume reactivates a suspended module and all of its children.
func (c *Coordinator) Resume(ctx context.Context) *Transition {
	adm, existing := c.admit(domain.OpResume)
	if existing != nil {
		return existing
	}
	c.logger.Debug("transition started", "op", domain.OpResume, "from", adm.from)
	c.execute(ctx, adm, c.resumeBody)
	return adm.t
}

// Unload terminates the module after a successful negotiation. A veto rolls
// the instance back to its pre-unload state.
func (c *Coordinator) Unload(ctx context.Context) *Transition {
	adm, existing := c.admit(domain.OpUnload)
	if existing != nil {
		return existing
	}
	c.logger.Debug("transition started", "op", domain.OpUnload, "from", adm.from)
	c.execute(ctx, adm, c.unloadBody)
	return adm.t
}

func (c *Coordinator) loadBody(ctx context.Context, from domain.LifecycleState) error {
	c.publish(domain.TopicWillLoad, nil)

	err := c.hooks.OnLoad(ctx)

	to := c.commit(domain.StateLoading, domain.StateLoaded, err)
	c.record(ctx, domain.OpLoad, from, to, err)
	// The did-load emission precedes failure propagation to the caller.
	c.publish(domain.TopicDidLoad, err)
	return err
}

func (c *Coordinator) suspendBody(ctx context.Context, from domain.LifecycleState) error {
	return c.signalBody(ctx, from, domain.OpSuspend,
		domain.TopicWillSuspend, domain.TopicDidSuspend,
		c.hooks.OnSuspend,
		func(child *Coordinator) *Transition { return child.Suspend(ctx) },
	)
}

func (c *Coordinator) resumeBody(ctx context.Context, from domain.LifecycleState) error {
	return c.signalBody(ctx, from, domain.OpResume,
		domain.TopicWillResume, domain.TopicDidResume,
		c.hooks.OnResume,
		func(child *Coordinator) *Transition { return child.Resume(ctx) },
	)
}

// signalBody is the shared suspend/resume sequence: will-signal, concurrent
// child fan-out, own hook, conditional commit, did-signal. Child and hook
// errors are both preserved on the did-signal emission.
func (c *Coordinator) signalBody(ctx context.Context, from domain.LifecycleState, op domain.Operation,
	will, did domain.Topic, hook func(context.Context) error,
	dispatch func(*Coordinator) *Transition) error {

	c.publish(will, nil)

	childErr := fanOut(c.Children(), dispatch)
	hookErr := hook(ctx)
	err := errors.Join(childErr, hookErr)

	to := c.commit(op.Intermediate(), op.Target(), err)
	c.record(ctx, op, from, to, err)
	c.publish(did, err)
	return err
}

func (c *Coordinator) unloadBody(ctx context.Context, from domain.LifecycleState) error {
	// Negotiation runs before any observable unload effect.
	if result := c.CanUnload(ctx); !result.Eligible {
		c.rollback(from)
		veto := &domain.VetoError{Module: c.name, Reasons: result.Reasons}
		c.record(ctx, domain.OpUnload, from, c.State(), veto)
		c.logger.Info("unload vetoed", "reasons", result.Reasons)
		// No termination occurred: the veto reaches the caller but is never
		// emitted on the did-unload topic.
		return veto
	}

	c.publish(domain.TopicWillUnload, nil)

	// Detach children before the fan-out: this unload owns their teardown,
	// so their independent-unload listeners must not fire.
	links := c.detachChildren()
	children := make([]*Coordinator, len(links))
	for i, l := range links {
		children[i] = l.coord
	}

	childErr := fanOut(children, func(child *Coordinator) *Transition { return child.Unload(ctx) })
	hookErr := c.hooks.OnUnload(ctx)

	// Obligations are released on every post-negotiation path, success or
	// failure, exactly once.
	c.bag.Release()

	err := errors.Join(childErr, hookErr)
	to := c.commitUnload(err)
	c.record(ctx, domain.OpUnload, from, to, err)
	c.publish(domain.TopicDidUnload, err)
	if err == nil {
		// Closing the channel set is the last action after the terminal
		// did-unload emission.
		c.bus.Close()
	}
	return err
}

// commit advances to target only if the transition succeeded and the state
// was not concurrently advanced past the intermediate by a nested
// operation. Returns the state after the attempt.
func (c *Coordinator) commit(intermediate, target domain.LifecycleState, err error) domain.LifecycleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil && c.state == intermediate {
		c.state = target
	}
	return c.state
}

func (c *Coordinator) commitUnload(err error) domain.LifecycleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil && c.state == domain.StateUnloading {
		c.state = domain.StateUnloaded
	}
	c.prev = ""
	return c.state
}

// rollback restores the pre-unload state after a veto. Idempotent: a second
// call is a no-op because prev is cleared.
func (c *Coordinator) rollback(from domain.LifecycleState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	restored := c.prev
	if restored == "" {
		restored = from
	}
	c.state = restored
	c.prev = ""
}

// fanOut dispatches an operation to every given child concurrently and
// waits for all of them to finish. The first error encountered (in child
// order) is returned; siblings are never cancelled.
func fanOut(children []*Coordinator, dispatch func(*Coordinator) *Transition) error {
	if len(children) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(children))
	for i, child := range children {
		wg.Add(1)
		go func(i int, child *Coordinator) {
			defer wg.Done()
			t := dispatch(child)
			t.wait()
			errs[i] = t.Err()
		}(i, child)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) publish(topic domain.Topic, err error) {
	c.bus.Publish(domain.NewEvent(topic, c.name, err))
}

func (c *Coordinator) publishChild(topic domain.Topic, child *Coordinator, err error) {
	c.bus.Publish(domain.NewEvent(topic, c.name, err).WithChild(child.Name()))
}

// record appends a settled transition to the journal, if one is wired.
// Journal failures are logged, never propagated.
func (c *Coordinator) record(ctx context.Context, op domain.Operation, from, to domain.LifecycleState, err error) {
	if c.journal == nil {
		return
	}
	entry := domain.TransitionEntry{
		Module:    c.name,
		Op:        op,
		From:      from,
		To:        to,
		Timestamp: time.Now(),
	}
	if err != nil {
		entry.Error = err.Error()
		entry.Veto = domain.IsVeto(err)
	}
	if jErr := c.journal.Append(context.WithoutCancel(ctx), entry); jErr != nil {
		c.logger.Warn("journal append failed", "op", op, "err", jErr)
	}
}
