/*
Package domain holds the shared vocabulary of the Lattice lifecycle engine:
states, operations, lifecycle topics and events, the unload negotiation
result, journal entries, and the error taxonomy.

It has no dependencies on the runtime so that adapters and hosts can speak
the same types without pulling in the state machine itself.
*/
package domain
