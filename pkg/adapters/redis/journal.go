package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Journal implements ports.Journal on Redis. Entries live in one global
// list (chronological order across modules) and module names are tracked
// in a set for introspection.
type Journal struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Journal.
type Option func(*Journal)

// WithPrefix sets the key prefix for journal keys.
func WithPrefix(prefix string) Option {
	return func(j *Journal) {
		j.prefix = prefix
	}
}

// WithTTL sets the expiration for the journal keys, refreshed on append.
func WithTTL(ttl time.Duration) Option {
	return func(j *Journal) {
		j.ttl = ttl
	}
}

// New creates a Redis journal with its own client.
func New(address, password string, db int, opts ...Option) *Journal {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Redis journal from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Journal {
	j := &Journal{
		client: client,
		prefix: "lattice:journal:",
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *Journal) entriesKey() string { return j.prefix + "entries" }
func (j *Journal) modulesKey() string { return j.prefix + "modules" }

// Append pushes the entry onto the global list and indexes the module name.
func (j *Journal) Append(ctx context.Context, entry domain.TransitionEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}

	pipe := j.client.Pipeline()
	pipe.RPush(ctx, j.entriesKey(), data)
	pipe.SAdd(ctx, j.modulesKey(), entry.Module)
	if j.ttl > 0 {
		pipe.Expire(ctx, j.entriesKey(), j.ttl)
		pipe.Expire(ctx, j.modulesKey(), j.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to redis journal: %w", err)
	}
	return nil
}

// List returns recorded entries for a module, oldest first. An empty module
// name returns everything.
func (j *Journal) List(ctx context.Context, module string) ([]domain.TransitionEntry, error) {
	raw, err := j.client.LRange(ctx, j.entriesKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read redis journal: %w", err)
	}

	out := make([]domain.TransitionEntry, 0, len(raw))
	for _, item := range raw {
		var entry domain.TransitionEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("corrupt journal entry: %w", err)
		}
		if module == "" || entry.Module == module {
			out = append(out, entry)
		}
	}
	return out, nil
}

// Modules returns the names seen by the journal.
func (j *Journal) Modules(ctx context.Context) ([]string, error) {
	names, err := j.client.SMembers(ctx, j.modulesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list journal modules: %w", err)
	}
	return names, nil
}

// Close closes the underlying redis client.
func (j *Journal) Close() error {
	return j.client.Close()
}
