package ports

import (
	"context"

	"github.com/aretw0/lattice/pkg/domain"
)

// Journal defines the interface for persisting the lifecycle audit trail.
// The runtime appends one entry per settled transition; adapters decide
// durability (memory, file, Redis).
type Journal interface {
	// Append records a settled transition.
	Append(ctx context.Context, entry domain.TransitionEntry) error

	// List returns the recorded entries for a module, oldest first.
	// An empty module name returns entries for all modules.
	List(ctx context.Context, module string) ([]domain.TransitionEntry, error)
}
