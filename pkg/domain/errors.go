package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrModuleUnloaded is returned when an operation targets a module whose
// lifecycle has already terminated (or is terminating).
var ErrModuleUnloaded = errors.New("module unloaded")

// ErrModuleNotFound is returned when a module name cannot be resolved in a
// module tree.
var ErrModuleNotFound = errors.New("module not found")

// IllegalTransitionError reports an operation requested from a state that is
// not one of its allowed sources.
type IllegalTransitionError struct {
	Module  string
	Op      Operation
	Current LifecycleState
	Target  LifecycleState
	Allowed []LifecycleState
}

func (e *IllegalTransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	return fmt.Sprintf("illegal transition for module %q: cannot %s from %q to %q (allowed sources: %s)",
		e.Module, e.Op, e.Current, e.Target, strings.Join(allowed, ", "))
}

// VetoError is the distinguished rejection returned when unload negotiation
// fails. It carries the merged rejection reasons from every participant.
// It is returned to the caller but never emitted on the did-unload topic,
// since no termination occurred.
type VetoError struct {
	Module  string
	Reasons []string
}

func (e *VetoError) Error() string {
	return fmt.Sprintf("unload of module %q vetoed: %s", e.Module, strings.Join(e.Reasons, "; "))
}

// IsVeto reports whether err is (or wraps) a VetoError.
func IsVeto(err error) bool {
	var veto *VetoError
	return errors.As(err, &veto)
}
