package hooks

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateHook marks two hooks registered under one identifier, a
	// construction-time conflict.
	ErrDuplicateHook = errors.New("hooks: duplicate hook identifier")
	// ErrUnknownHook marks an enabled identifier with no factory.
	ErrUnknownHook = errors.New("hooks: unknown hook identifier")
)

// Registry is the ordered collection of lifecycle observers. Order is
// registration order and dispatch order.
type Registry struct {
	hooks []Hook
	names map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Register appends a hook. Duplicate identifiers fail; an empty identifier
// fails.
func (r *Registry) Register(h Hook) error {
	if h == nil {
		return errors.New("hooks: hook is required")
	}
	name := h.Name()
	if name == "" {
		return errors.New("hooks: hook identifier is required")
	}
	if _, exists := r.names[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateHook, name)
	}
	r.names[name] = struct{}{}
	r.hooks = append(r.hooks, h)
	return nil
}

// Hooks returns the registered hooks in registration order.
func (r *Registry) Hooks() []Hook {
	return r.hooks
}

// Len returns the number of registered hooks.
func (r *Registry) Len() int {
	return len(r.hooks)
}

// Build instantiates hooks in the exact order their identifiers appear in
// enabled, resolving each against the factory set and passing it only its
// own named settings.
func Build(enabled []string, settings map[string]map[string]any, factories map[string]Factory) (*Registry, error) {
	reg := NewRegistry()
	for _, name := range enabled {
		factory, ok := factories[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownHook, name)
		}
		sub := settings[name]
		if sub == nil {
			sub = map[string]any{}
		}
		h, err := factory(sub)
		if err != nil {
			return nil, fmt.Errorf("hooks: construct %q: %w", name, err)
		}
		if err := reg.Register(h); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
