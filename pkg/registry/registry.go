package registry

import (
	"fmt"
	"sync"

	"github.com/aretw0/lattice"
	"github.com/mitchellh/mapstructure"
)

// Factory builds a module of one kind from its manifest params.
type Factory func(name string, params map[string]any, opts ...lattice.Option) (*lattice.Module, error)

// Registry manages the available module kinds.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a module kind to the registry.
// If a kind with the same name exists, it is overwritten.
func (r *Registry) Register(kind string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// New looks up a kind and builds a module from it.
// Returns an error if the kind is not registered.
func (r *Registry) New(kind, name string, params map[string]any, opts ...lattice.Option) (*lattice.Module, error) {
	r.mu.RLock()
	factory, ok := r.factories[kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("module kind not registered: %s", kind)
	}
	return factory(name, params, opts...)
}

// Kinds returns the registered kind names.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	return kinds
}

// DecodeParams maps loosely-typed manifest params onto a typed config
// struct. Unknown keys are rejected so manifest typos fail loudly.
func DecodeParams(params map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
		TagName:     "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("failed to build params decoder: %w", err)
	}
	if err := decoder.Decode(params); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}
