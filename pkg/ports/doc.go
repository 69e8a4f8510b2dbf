/*
Package ports defines the driven ports (interfaces) of the Lattice engine.

These interfaces decouple the lifecycle core from external implementations,
allowing modules to carry arbitrary payloads and hosts to plug in different
audit backends.

# Key Interfaces

  - Lifecycle: the overridable hooks a payload implements (embed
    BaseLifecycle for no-op defaults).
  - Module: the minimal read-only view of a module handed to hooks.
  - Journal: persistence for the transition audit trail.
*/
package ports
