package ports

import (
	"context"

	"github.com/aretw0/lattice/pkg/domain"
)

// Module is the minimal view of a module instance exposed to hooks and
// adapters. The concrete type is lattice.Module; the interface keeps this
// package free of a dependency on the facade.
type Module interface {
	// Name returns the module's unique name within its tree.
	Name() string

	// State returns the current lifecycle state.
	State() domain.LifecycleState
}

// Lifecycle is the capability interface payload authors implement to hook
// into a module's transitions. Embed BaseLifecycle to inherit no-op
// defaults and override only what the payload needs.
//
// Hook bodies for a single module instance never run interleaved: the
// runtime serializes transitions per instance.
type Lifecycle interface {
	// OnLoad acquires the payload's resources. Called once, between the
	// will-load and did-load signals.
	OnLoad(ctx context.Context) error

	// OnSuspend quiesces the payload. Called after all children finished
	// their own suspend.
	OnSuspend(ctx context.Context) error

	// OnResume reactivates a suspended payload.
	OnResume(ctx context.Context) error

	// OnUnload releases the payload. Registered disposal obligations are
	// released by the runtime after this returns.
	OnUnload(ctx context.Context) error

	// OnShouldUnload is polled during unload negotiation. Returning an
	// ineligible result vetoes the unload of this module and of every
	// ancestor that initiated it.
	OnShouldUnload(ctx context.Context) domain.CanUnloadResult

	// OnWillLoadChildModule runs before a child is registered and loaded.
	// An error aborts the registration.
	OnWillLoadChildModule(ctx context.Context, child Module) error

	// OnDidLoadChildModule runs after the child loaded, before it is
	// appended to the active children.
	OnDidLoadChildModule(ctx context.Context, child Module) error

	// OnWillUnloadChildModule runs when a child begins unloading
	// independently, before it is removed from the active children.
	OnWillUnloadChildModule(ctx context.Context, child Module)

	// OnDidUnloadChildModule runs after an independently unloading child
	// terminated.
	OnDidUnloadChildModule(ctx context.Context, child Module)
}

// BaseLifecycle provides no-op defaults for every hook. OnShouldUnload
// defaults to eligible.
type BaseLifecycle struct{}

var _ Lifecycle = (*BaseLifecycle)(nil)

func (BaseLifecycle) OnLoad(ctx context.Context) error    { return nil }
func (BaseLifecycle) OnSuspend(ctx context.Context) error { return nil }
func (BaseLifecycle) OnResume(ctx context.Context) error  { return nil }
func (BaseLifecycle) OnUnload(ctx context.Context) error  { return nil }

func (BaseLifecycle) OnShouldUnload(ctx context.Context) domain.CanUnloadResult {
	return domain.Eligible()
}

func (BaseLifecycle) OnWillLoadChildModule(ctx context.Context, child Module) error { return nil }
func (BaseLifecycle) OnDidLoadChildModule(ctx context.Context, child Module) error  { return nil }
func (BaseLifecycle) OnWillUnloadChildModule(ctx context.Context, child Module)     {}
func (BaseLifecycle) OnDidUnloadChildModule(ctx context.Context, child Module)      {}
