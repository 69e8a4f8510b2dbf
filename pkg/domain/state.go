package domain

// LifecycleState defines the position of a module inside its lifecycle.
// A module is created in StateInstantiated, moves forward through the
// transitional states, may cycle between loaded and suspended, and ends
// permanently in StateUnloaded.
type LifecycleState string

const (
	StateInstantiated LifecycleState = "instantiated"
	StateLoading      LifecycleState = "loading"
	StateLoaded       LifecycleState = "loaded"
	StateSuspending   LifecycleState = "suspending"
	StateSuspended    LifecycleState = "suspended"
	StateResuming     LifecycleState = "resuming"
	StateUnloading    LifecycleState = "unloading"
	StateUnloaded     LifecycleState = "unloaded"
)

// Operation identifies a state-changing request on a module.
type Operation string

const (
	OpLoad    Operation = "load"
	OpSuspend Operation = "suspend"
	OpResume  Operation = "resume"
	OpUnload  Operation = "unload"
)

// allowedSources maps each operation to the states it may start from.
// Transitional states appear where an operation is allowed to overtake an
// in-flight one (e.g. suspend may interrupt loading).
var allowedSources = map[Operation][]LifecycleState{
	OpLoad:    {StateInstantiated},
	OpSuspend: {StateLoaded, StateLoading, StateResuming},
	OpResume:  {StateSuspended, StateSuspending},
	OpUnload:  {StateLoaded, StateLoading, StateResuming, StateSuspended, StateSuspending},
}

// AllowedSources returns the states from which the operation may start.
func AllowedSources(op Operation) []LifecycleState {
	return allowedSources[op]
}

// CanStartFrom reports whether the operation is legal from the given state.
func CanStartFrom(op Operation, s LifecycleState) bool {
	for _, allowed := range allowedSources[op] {
		if s == allowed {
			return true
		}
	}
	return false
}

// Intermediate returns the transitional state an operation moves through.
func (op Operation) Intermediate() LifecycleState {
	switch op {
	case OpLoad:
		return StateLoading
	case OpSuspend:
		return StateSuspending
	case OpResume:
		return StateResuming
	case OpUnload:
		return StateUnloading
	}
	return ""
}

// Target returns the state an operation commits to on success.
func (op Operation) Target() LifecycleState {
	switch op {
	case OpLoad:
		return StateLoaded
	case OpSuspend:
		return StateSuspended
	case OpResume:
		return StateLoaded
	case OpUnload:
		return StateUnloaded
	}
	return ""
}
