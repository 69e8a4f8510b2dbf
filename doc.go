/*
Package lattice is a hierarchical lifecycle engine for composable runtime
units ("modules"). A module is loaded, optionally suspended and resumed, and
eventually unloaded — in a coordinated, cancellable, observable manner,
independent of what the module's payload does.

The engine guarantees:

  - Per-instance serialization: overlapping operations on one module chain
    on a single pending-transition handle; no two hook bodies interleave.
  - Hierarchical propagation: suspend/resume/unload fan out to all children
    concurrently and join with wait-for-all semantics (first error kept, no
    sibling cancellation).
  - Cooperative unload negotiation: the module and every descendant are
    polled for eligibility; any participant can veto with reasons, rolling
    the instance back to its pre-unload state.
  - Deterministic disposal: cleanup obligations registered on a module are
    released exactly once at unload.

# Usage

Payloads implement hooks by embedding lattice.Hooks and overriding what
they need:

	type Cache struct {
		lattice.Hooks
		conn *redis.Client
	}

	func (c *Cache) OnLoad(ctx context.Context) error { ... }
	func (c *Cache) OnShouldUnload(ctx context.Context) domain.CanUnloadResult {
		if c.dirty() {
			return domain.Ineligible("cache not flushed")
		}
		return domain.Eligible()
	}

	func main() {
		cache := lattice.New("cache", lattice.WithLifecycle(&Cache{}))
		app := lattice.New("app")

		ctx := context.Background()
		if err := app.Load(ctx).Await(ctx); err != nil {
			log.Fatal(err)
		}
		if err := app.RegisterChild(ctx, cache); err != nil {
			log.Fatal(err)
		}

		// ... later
		if err := app.Unload(ctx).Await(ctx); err != nil {
			// a veto carries the merged rejection reasons
		}
	}

Observers subscribe to will/did topic pairs for load, suspend, resume,
unload and the child registration signals; channels deliver both successful
transitions and transition errors, and close after the terminal did-unload.
*/
package lattice
