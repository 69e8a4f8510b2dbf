package runtime

import (
	"context"
	"sync"

	"github.com/aretw0/lattice/pkg/domain"
)

// Transition is the asynchronous completion handle of a state change.
// It settles exactly once, with or without an error, after the full effect
// of the operation (including descendant propagation) has landed.
//
// Redundant operation calls receive the already-pending (or an
// already-resolved) handle instead of starting new work.
type Transition struct {
	op   domain.Operation
	done chan struct{}
	once sync.Once
	err  error
}

func newTransition(op domain.Operation) *Transition {
	return &Transition{op: op, done: make(chan struct{})}
}

// resolvedTransition returns a handle that has already settled.
func resolvedTransition(op domain.Operation, err error) *Transition {
	t := newTransition(op)
	t.resolve(err)
	return t
}

func (t *Transition) resolve(err error) {
	t.once.Do(func() {
		t.err = err
		close(t.done)
	})
}

// Op returns the operation this handle belongs to.
func (t *Transition) Op() domain.Operation {
	return t.op
}

// Done returns a channel closed when the transition settles.
func (t *Transition) Done() <-chan struct{} {
	return t.done
}

// Await blocks until the transition settles or ctx is done, and returns the
// transition's error. Cancelling ctx abandons the wait, not the transition:
// the lifecycle core has no cancellation primitive of its own.
func (t *Transition) Await(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return t.err
	}
}

// wait blocks until the transition settles, ignoring its outcome. Used to
// chain a successor onto its predecessor for per-instance serialization.
func (t *Transition) wait() {
	<-t.done
}

// Err returns the settled error. Valid only after Done is closed.
func (t *Transition) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}
