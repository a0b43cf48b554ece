package peano

import (
	"fmt"
)

// Builder configures a World before initialization.
// Use NewBuilder() to create a builder and chain configuration methods.
type Builder struct {
	options   []Option
	bundles   []func(*World) *Bundle
	resources []func(*World)
	mappings  []Mapping
	start     bool
}

// NewBuilder creates a new builder.
func NewBuilder(opts ...Option) *Builder {
	return &Builder{options: opts}
}

// Options appends world options.
func (b *Builder) Options(opts ...Option) *Builder {
	b.options = append(b.options, opts...)
	return b
}

// Bundle adds a bundle to the builder.
func (b *Builder) Bundle(callback func(*World) *Bundle) *Builder {
	b.bundles = append(b.bundles, callback)
	return b
}

// Mapping adds a world-wide mapping.
func (b *Builder) Mapping(m Mapping) *Builder {
	b.mappings = append(b.mappings, m)
	return b
}

// Start makes Init start the scheduler's tick loop.
func (b *Builder) Start() *Builder {
	b.start = true
	return b
}

// BuilderResource adds a global resource of type T.
func BuilderResource[T any](b *Builder, res *T) *Builder {
	b.resources = append(b.resources, func(w *World) {
		InsertResource(w, res)
	})
	return b
}

// Init creates the world, installs resources, mappings and bundles, and
// builds the schedule. Post-init hooks run last, in bundle order.
func (b *Builder) Init() (*World, error) {
	w := NewWorld(b.options...)

	for _, set := range b.resources {
		set(w)
	}
	for _, m := range b.mappings {
		if err := w.AddMapping(m); err != nil {
			return nil, err
		}
	}

	var hooks []func(*World)
	for _, f := range b.bundles {
		bund := f(w)
		if err := bund.install(w); err != nil {
			return nil, err
		}
		hooks = append(hooks, bund.postInitHooks...)
	}

	if err := w.scheduler.Build(); err != nil {
		return nil, fmt.Errorf("peano: failed to build systems: %w", err)
	}

	for _, hook := range hooks {
		hook(w)
	}

	if b.start {
		if err := w.scheduler.Start(); err != nil {
			return nil, err
		}
	}
	return w, nil
}
