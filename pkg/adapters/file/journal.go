package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/lattice/pkg/domain"
)

// Journal implements ports.Journal on the local filesystem as a JSON-lines
// file, one entry per line.
type Journal struct {
	mu   sync.Mutex
	path string
}

// NewJournal creates a file journal at the given path.
// If path is empty, it defaults to ".lattice/journal.jsonl".
func NewJournal(path string) *Journal {
	if path == "" {
		path = filepath.Join(".lattice", "journal.jsonl")
	}
	return &Journal{path: path}
}

// Append writes the entry as one JSON line.
func (j *Journal) Append(ctx context.Context, entry domain.TransitionEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(j.path), 0755); err != nil {
		return fmt.Errorf("failed to ensure journal directory: %w", err)
	}

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open journal file: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append journal entry: %w", err)
	}
	return nil
}

// List reads the file back, filtering by module. An empty module name
// returns everything. A missing file is an empty journal, not an error.
func (j *Journal) List(ctx context.Context, module string) ([]domain.TransitionEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}
	defer f.Close()

	var out []domain.TransitionEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry domain.TransitionEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("corrupt journal line: %w", err)
		}
		if module == "" || entry.Module == module {
			out = append(out, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal file: %w", err)
	}
	return out, nil
}
