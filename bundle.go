package peano

import (
	"fmt"
)

// Bundle groups related systems, resources and mappings together.
// Bundles are registered with a Builder and keep features isolated from
// each other.
type Bundle struct {
	name string

	// systems holds system registrations in order
	systems []systemRegistration

	// resources holds bundle-level resource setters
	resources []func(*World)

	// mappings holds bundle-level mappings
	mappings []Mapping

	postInitHooks []func(*World)
}

// systemRegistration holds a system registration.
type systemRegistration struct {
	system System
	stage  Stage
}

// NewBundle creates a new bundle with the given name.
func NewBundle(name string) *Bundle {
	return &Bundle{name: name}
}

// Name returns the bundle name.
func (b *Bundle) Name() string {
	return b.name
}

// System registers a system in a stage.
func (b *Bundle) System(sys System, stage Stage) *Bundle {
	b.systems = append(b.systems, systemRegistration{
		system: sys,
		stage:  stage,
	})
	return b
}

// Mapping registers a mapping installed before any system runs.
func (b *Bundle) Mapping(m Mapping) *Bundle {
	b.mappings = append(b.mappings, m)
	return b
}

// PostInit registers a hook called once the world is built.
func (b *Bundle) PostInit(hook func(*World)) *Bundle {
	b.postInitHooks = append(b.postInitHooks, hook)
	return b
}

// WithResource registers a bundle-level resource of type T.
//
//	peano.WithResource(bundle, &Clock{})
func WithResource[T any](b *Bundle, res *T) *Bundle {
	b.resources = append(b.resources, func(w *World) {
		InsertResource(w, res)
	})
	return b
}

// Build returns a callback function that returns this bundle.
// This allows for cleaner inline bundle initialization:
//
//	bund := peano.NewBundle("physics").
//	    System(&Movement{}, peano.Update).
//	    Build()
//
//	world, err := peano.NewBuilder().
//	    Bundle(bund).
//	    Init()
func (b *Bundle) Build() func(*World) *Bundle {
	return func(*World) *Bundle {
		return b
	}
}

// install adds the bundle's resources, mappings and systems to w.
func (b *Bundle) install(w *World) error {
	for _, set := range b.resources {
		set(w)
	}
	for _, m := range b.mappings {
		if err := w.AddMapping(m); err != nil {
			return fmt.Errorf("peano: bundle %s: %w", b.name, err)
		}
	}
	for _, reg := range b.systems {
		if err := w.AddSystem(reg.system, reg.stage); err != nil {
			return fmt.Errorf("peano: bundle %s: %w", b.name, err)
		}
	}
	return nil
}
