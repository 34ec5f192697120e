package adapters

import (
	"sort"

	"github.com/SamyKr/VisuAI-sub000/internal/domain/tts/infrastructure/adapters/device"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/tts/infrastructure/adapters/edge"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/tts/inter"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/errors"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/logging"
)

// Factory builds a speaker from its configuration.
type Factory func(cfg inter.Config, logger *logging.Logger) (inter.Speaker, error)

// Registry maps speaker type names to factories.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}

	r.factories["device"] = func(cfg inter.Config, logger *logging.Logger) (inter.Speaker, error) {
		return device.New(logger), nil
	}
	r.factories["edge"] = func(cfg inter.Config, logger *logging.Logger) (inter.Speaker, error) {
		return edge.New(cfg, logger)
	}
	return r
}

// Register adds a factory. Overriding a registered type is refused.
func (r *Registry) Register(name string, factory Factory) error {
	const op = "tts.registry.register"

	if factory == nil {
		return errors.New(errors.KindVoice, op, "nil factory for type "+name)
	}
	if _, exists := r.factories[name]; exists {
		return errors.New(errors.KindVoice, op, "speaker type already registered: "+name)
	}
	r.factories[name] = factory
	return nil
}

// Create builds a speaker of the named type.
func (r *Registry) Create(name string, cfg inter.Config, logger *logging.Logger) (inter.Speaker, error) {
	const op = "tts.registry.create"

	factory, ok := r.factories[name]
	if !ok {
		return nil, errors.New(errors.KindVoice, op, "unknown speaker type: "+name)
	}
	return factory(cfg, logger)
}

// Names lists the registered speaker types, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
