// Package registry provides the central "glue" between operator type
// strings appearing in queries and the compiled factories that know how
// to set up and build those operators.
//
// During application startup the registry is populated by modules and
// then handed to the planner through the pipeline context. Lookup keys
// are case-insensitive; they are lowercased on registration and lookup.
package registry

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/vk/tsquery/internal/query/exec"
)

// Module is the interface all built-in factory packages implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the registered query node factories for a single
// application instance.
type Registry struct {
	factories map[string]exec.Factory
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		factories: make(map[string]exec.Factory),
	}
}

// Register adds a factory under the given key. Registering the same key
// twice is a programmer error and panics.
func (r *Registry) Register(key string, factory exec.Factory) {
	key = strings.ToLower(key)
	if _, exists := r.factories[key]; exists {
		panic(fmt.Sprintf("query node factory with key '%s' already registered", key))
	}
	slog.Debug("Registering query node factory.", "key", key)
	r.factories[key] = factory
}

// QueryNodeFactory returns the factory for the key, or nil when none is
// registered. Implements exec.FactorySource.
func (r *Registry) QueryNodeFactory(key string) exec.Factory {
	return r.factories[strings.ToLower(key)]
}

// Keys returns the registered factory keys, for startup logging.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	return keys
}
