package processors

import (
	"errors"
	"fmt"
	"slices"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/rack"
)

// Factory builds one processor instance.
type Factory func(cfg core.ProcessorConfig, params Params) (rack.Processor, error)

// Registry maps processor type names to their factories.
type Registry struct {
	factories map[string]Factory
}

var (
	errDuplicateType = errors.New("duplicate processor type")

	// ErrUnknownType is returned when no factory is registered for a type.
	ErrUnknownType = errors.New("processors: unknown processor type")
	// ErrUnknownParam is returned when setting a parameter a processor
	// does not have.
	ErrUnknownParam = errors.New("processors: unknown parameter")
)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a Registry with all built-in processors.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister("vca", NewVCA)
	r.MustRegister("vcf", NewVCF)
	r.MustRegister("delay", NewPingPong)
	r.MustRegister("crush", NewCrusher)
	r.MustRegister("lua", NewScript)
	return r
}

// Register adds a factory for the given processor type.
func (r *Registry) Register(typ string, factory Factory) error {
	if typ == "" {
		return errors.New("empty processor type")
	}

	if factory == nil {
		return errors.New("nil factory")
	}

	if _, exists := r.factories[typ]; exists {
		return fmt.Errorf("%w: %s", errDuplicateType, typ)
	}

	r.factories[typ] = factory

	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(typ string, factory Factory) {
	if err := r.Register(typ, factory); err != nil {
		panic("processors registry: " + err.Error())
	}
}

// Lookup returns the factory for the given type, or nil.
func (r *Registry) Lookup(typ string) Factory {
	return r.factories[typ]
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// New builds a processor of the given type.
func (r *Registry) New(typ string, cfg core.ProcessorConfig, params Params) (rack.Processor, error) {
	f := r.Lookup(typ)
	if f == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}

	p, err := f(cfg, params)
	if err != nil {
		return nil, fmt.Errorf("processors: build %s: %w", typ, err)
	}

	return p, nil
}
