package peano

import (
	"reflect"
)

// System is a unit of logic executed against the world once per tick.
// Run must return only when the system's work is done; systems never yield
// to the scheduler mid-run.
type System interface {
	Run(c *Context)
}

// Footprinter is implemented by systems that declare their access
// explicitly. Phantom marker fields are merged into the returned footprint.
type Footprinter interface {
	Access() *Access
}

// Namer is implemented by systems that provide their own name.
// Without it a system is named after its type.
type Namer interface {
	Name() string
}

// Orderer is implemented by systems that run after other systems given by
// name. It complements the After phantom type.
type Orderer interface {
	Dependencies() []string
}

// systemState holds the scheduler's precomputed view of a system.
type systemState struct {
	sys    System
	name   string
	typ    reflect.Type
	access *Access
	stage  Stage

	// order is the registration sequence across every stage.
	order int

	typeDeps []reflect.Type
	nameDeps []string

	// deps is resolved from typeDeps and nameDeps when the plan is built.
	deps []*systemState
}

// newSystemState analyzes a system's footprint, name and dependencies.
func newSystemState(sys System, stage Stage, order int) *systemState {
	access, typeDeps := inferFootprint(sys)
	if f, ok := sys.(Footprinter); ok {
		access.Merge(f.Access())
	}

	st := &systemState{
		sys:      sys,
		name:     systemName(sys),
		typ:      derefType(reflect.TypeOf(sys)),
		access:   access,
		stage:    stage,
		order:    order,
		typeDeps: typeDeps,
	}
	if o, ok := sys.(Orderer); ok {
		st.nameDeps = o.Dependencies()
	}
	return st
}

// systemName returns the Namer name or the system's type name.
func systemName(sys System) string {
	if n, ok := sys.(Namer); ok {
		return n.Name()
	}
	return derefType(reflect.TypeOf(sys)).String()
}

// funcSystem adapts a function to System.
type funcSystem struct {
	name   string
	access *Access
	deps   []string
	fn     func(c *Context)
}

// NewSystem creates a system from a function with an explicit footprint.
// A nil access declares nothing. after lists systems, by name, that must run
// first within the same stage.
//
// Usage:
//
//	movement := peano.NewSystem("movement",
//	    peano.NewAccess().Write(pos).Read(vel),
//	    func(c *peano.Context) { ... })
func NewSystem(name string, access *Access, fn func(c *Context), after ...string) System {
	if access == nil {
		access = NewAccess()
	}
	return &funcSystem{name: name, access: access, deps: after, fn: fn}
}

func (f *funcSystem) Run(c *Context)         { f.fn(c) }
func (f *funcSystem) Name() string           { return f.name }
func (f *funcSystem) Access() *Access        { return f.access }
func (f *funcSystem) Dependencies() []string { return f.deps }
