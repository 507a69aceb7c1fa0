package convert

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownFormat is wrapped by Get when no converter is registered under
// the requested format name.
var ErrUnknownFormat = errors.New("convert: unknown format")

// Registry maps dataset format names to their converters. Lookups of
// unknown formats report the registered alternatives, so CLI callers can
// surface them without a second query.
type Registry struct {
	mu      sync.RWMutex
	formats map[string]Converter
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{
		formats: make(map[string]Converter),
	}
}

// Register adds a converter under its Name(). Registering the same format
// twice returns an error.
func (r *Registry) Register(converter Converter) error {
	if converter == nil {
		return fmt.Errorf("convert: converter is required")
	}
	name := converter.Name()
	if name == "" {
		return fmt.Errorf("convert: converter name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formats[name]; exists {
		return fmt.Errorf("convert: format %q already registered", name)
	}

	r.formats[name] = converter
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(converter Converter) {
	if err := r.Register(converter); err != nil {
		panic(err)
	}
}

// Get retrieves the converter for a format. Unknown formats return an error
// wrapping ErrUnknownFormat that names the registered formats.
func (r *Registry) Get(name string) (Converter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	converter, ok := r.formats[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (registered: %s)", ErrUnknownFormat, name, strings.Join(r.namesLocked(), ", "))
	}
	return converter, nil
}

// List returns the registered format names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.namesLocked()
}

// Formats returns the registered format names pipe-joined, shaped for flag
// usage strings.
func (r *Registry) Formats() string {
	return strings.Join(r.List(), "|")
}

// Has reports whether a format is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.formats[name]
	return ok
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.formats))
	for name := range r.formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
