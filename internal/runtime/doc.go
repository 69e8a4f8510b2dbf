/*
Package runtime contains the lifecycle engine proper: the per-instance
transition coordinator, the pending-transition serialization protocol, the
broadcast event channel set, the child registry with its fan-out/join
propagation, the unload negotiation, and the disposal bag.

The public facade for this package is the root lattice package.
*/
package runtime
