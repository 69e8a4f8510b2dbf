package assembly

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/pkg/registry"
	"gopkg.in/yaml.v3"
)

// Manifest declares a module tree to assemble: one root spec with nested
// children, each optionally bound to a registered kind with params.
type Manifest struct {
	Version int  `yaml:"version"`
	Module  Spec `yaml:"module"`
}

// Spec describes one module in the tree.
type Spec struct {
	Name     string         `yaml:"name"`
	Kind     string         `yaml:"kind,omitempty"`
	Params   map[string]any `yaml:"params,omitempty"`
	Children []Spec         `yaml:"children,omitempty"`
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// Validate checks structural rules: every module is named, names are
// unique across the tree.
func (m *Manifest) Validate() error {
	seen := make(map[string]bool)
	return m.Module.validate(seen)
}

func (s *Spec) validate(seen map[string]bool) error {
	if s.Name == "" {
		return fmt.Errorf("manifest module without a name")
	}
	if seen[s.Name] {
		return fmt.Errorf("duplicate module name: %s", s.Name)
	}
	seen[s.Name] = true

	for i := range s.Children {
		if err := s.Children[i].validate(seen); err != nil {
			return err
		}
	}
	return nil
}

// Build assembles and loads the module tree: the root is loaded first,
// then children are registered depth-first (RegisterChild loads each one).
// The given options are applied to every module in the tree.
func (m *Manifest) Build(ctx context.Context, reg *registry.Registry, opts ...lattice.Option) (*lattice.Module, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	root, err := newModule(m.Module, reg, opts)
	if err != nil {
		return nil, err
	}
	if err := root.Load(ctx).Await(ctx); err != nil {
		return nil, fmt.Errorf("failed to load root module %q: %w", root.Name(), err)
	}
	if err := attach(ctx, reg, root, m.Module.Children, opts); err != nil {
		return nil, err
	}
	return root, nil
}

// newModule builds one module from its spec. A spec without a kind is a
// plain grouping module with no payload.
func newModule(spec Spec, reg *registry.Registry, opts []lattice.Option) (*lattice.Module, error) {
	if spec.Kind == "" {
		return lattice.New(spec.Name, opts...), nil
	}
	mod, err := reg.New(spec.Kind, spec.Name, spec.Params, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build module %q: %w", spec.Name, err)
	}
	return mod, nil
}

func attach(ctx context.Context, reg *registry.Registry, parent *lattice.Module, specs []Spec, opts []lattice.Option) error {
	for _, cs := range specs {
		child, err := newModule(cs, reg, opts)
		if err != nil {
			return err
		}
		if err := parent.RegisterChild(ctx, child); err != nil {
			return fmt.Errorf("failed to register %q under %q: %w", cs.Name, parent.Name(), err)
		}
		if err := attach(ctx, reg, child, cs.Children, opts); err != nil {
			return err
		}
	}
	return nil
}
