package memory

import (
	"context"
	"sync"

	"github.com/aretw0/lattice/pkg/domain"
)

// Journal implements ports.Journal in process memory. Useful for tests and
// short-lived hosts that only need the trail for debugging.
type Journal struct {
	mu      sync.Mutex
	entries []domain.TransitionEntry
}

// NewJournal creates an empty in-memory journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Append records a settled transition.
func (j *Journal) Append(ctx context.Context, entry domain.TransitionEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
	return nil
}

// List returns recorded entries for a module, oldest first. An empty module
// name returns everything.
func (j *Journal) List(ctx context.Context, module string) ([]domain.TransitionEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]domain.TransitionEntry, 0, len(j.entries))
	for _, e := range j.entries {
		if module == "" || e.Module == module {
			out = append(out, e)
		}
	}
	return out, nil
}

// Len returns the total number of recorded entries.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}
