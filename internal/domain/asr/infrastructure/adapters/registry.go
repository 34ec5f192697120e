package adapters

import (
	"fmt"
	"sort"

	"github.com/SamyKr/VisuAI-sub000/internal/domain/asr/infrastructure/adapters/wsstream"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/asr/inter"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/logging"
)

// Factory builds one recognizer provider from its resolved config.
type Factory func(cfg inter.Config, logger *logging.Logger) (inter.Provider, error)

// Registry maps recognizer type names to factories. Builtins are
// registered at construction; callers may add their own before the
// engine is wired.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.registerBuiltins()
	return r
}

func (r *Registry) registerBuiltins() {
	r.factories["wsstream"] = wsstream.New
}

// Register adds a factory under a type name. Registering an existing
// name is an error; replacing a recognizer silently would defeat the
// capability checks done at startup.
func (r *Registry) Register(name string, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("factory for %q is nil", name)
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("recognizer factory %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Create builds the provider registered under the type name.
func (r *Registry) Create(name string, cfg inter.Config, logger *logging.Logger) (inter.Provider, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown recognizer type %q", name)
	}
	return factory(cfg, logger)
}

// Names lists the registered type names in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
