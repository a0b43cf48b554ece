package peano

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
)

// ComponentID is the registry index of a component type.
// IDs are dense, start at zero and follow the name order of registered types.
type ComponentID uint8

// ResourceID is the registry index of a resource type.
type ResourceID uint8

// MaxTypes is the maximum number of types per registry table.
const MaxTypes = 255

// registration is one self-registration record.
type registration struct {
	typ  reflect.Type
	name string
}

// typeTable is one category of the type registry.
//
// It has two phases: an open phase in which any number of types register in
// any order, and a finalized phase in which the id assignment is immutable.
// The transition happens exactly once, on first lookup or on Finalize.
type typeTable struct {
	kind string

	mu      sync.Mutex
	pending []registration
	seen    map[reflect.Type]struct{}

	once      sync.Once
	finalized atomic.Bool

	// Written once inside once.Do, read-only afterwards.
	ids     map[reflect.Type]uint8
	entries []registration
}

// newTypeTable creates an empty, open table.
func newTypeTable(kind string) *typeTable {
	return &typeTable{
		kind: kind,
		seen: make(map[reflect.Type]struct{}),
	}
}

var (
	componentTable = newTypeTable("component")
	resourceTable  = newTypeTable("resource")
)

// register adds a type to the open table. Re-registering a type is a no-op.
func (t *typeTable) register(typ reflect.Type, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finalized.Load() {
		panic(fmt.Sprintf("peano: %s %s registered after the registry was finalized", t.kind, name))
	}
	if _, ok := t.seen[typ]; ok {
		return
	}
	t.seen[typ] = struct{}{}
	t.pending = append(t.pending, registration{typ: typ, name: name})
}

// finalize snapshots the pending registrations and assigns ids.
func (t *typeTable) finalize() {
	t.once.Do(func() {
		t.mu.Lock()
		defer t.mu.Unlock()

		entries, ids := assignIDs(t.pending)
		if len(entries) > MaxTypes {
			panic(fmt.Sprintf("peano: %s limit exceeded (%d registered, max %d)", t.kind, len(entries), MaxTypes))
		}
		t.entries = entries
		t.ids = ids
		t.finalized.Store(true)
	})
}

// assignIDs sorts registrations by name and numbers them from zero.
// Discovery order never affects the result.
func assignIDs(regs []registration) ([]registration, map[reflect.Type]uint8) {
	entries := slices.Clone(regs)
	slices.SortFunc(entries, func(a, b registration) int {
		return cmp.Or(
			cmp.Compare(a.name, b.name),
			cmp.Compare(a.typ.PkgPath(), b.typ.PkgPath()),
			cmp.Compare(a.typ.String(), b.typ.String()),
		)
	})

	ids := make(map[reflect.Type]uint8, len(entries))
	for i, e := range entries {
		ids[e.typ] = uint8(i)
	}
	return entries, ids
}

// lookup returns the id of typ, finalizing the table if needed.
func (t *typeTable) lookup(typ reflect.Type) (uint8, bool) {
	t.finalize()
	id, ok := t.ids[typ]
	return id, ok
}

// mustLookup is lookup for types the caller claims are registered.
func (t *typeTable) mustLookup(typ reflect.Type) uint8 {
	id, ok := t.lookup(typ)
	if !ok {
		panic(fmt.Sprintf("peano: %s %v not registered", t.kind, typ))
	}
	return id
}

func (t *typeTable) len() int {
	t.finalize()
	return len(t.entries)
}

func (t *typeTable) entry(id uint8) registration {
	t.finalize()
	if int(id) >= len(t.entries) {
		panic(fmt.Sprintf("peano: %s id %d out of range", t.kind, id))
	}
	return t.entries[id]
}

// typeName is the default registration name for a type.
func typeName(t reflect.Type) string {
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// RegisterComponent registers T as a component type under its Go type name.
// It must run before the registry is finalized, typically from an init function:
//
//	func init() {
//	    peano.RegisterComponent[Position]()
//	}
func RegisterComponent[T any]() {
	t := reflect.TypeFor[T]()
	componentTable.register(t, typeName(t))
}

// RegisterComponentNamed registers T as a component type under an explicit name.
// The name decides the id order, so it should be stable across builds.
func RegisterComponentNamed[T any](name string) {
	componentTable.register(reflect.TypeFor[T](), name)
}

// RegisterResource registers T as a resource type under its Go type name.
func RegisterResource[T any]() {
	t := reflect.TypeFor[T]()
	resourceTable.register(t, typeName(t))
}

// RegisterResourceNamed registers T as a resource type under an explicit name.
func RegisterResourceNamed[T any](name string) {
	resourceTable.register(reflect.TypeFor[T](), name)
}

// Finalize closes both registry tables. It is called implicitly by the first
// id lookup and by NewWorld; calling it again is a no-op.
func Finalize() {
	componentTable.finalize()
	resourceTable.finalize()
}

// ComponentIDOf returns the id of component type T.
// It panics if T was never registered.
func ComponentIDOf[T any]() ComponentID {
	return ComponentID(componentTable.mustLookup(reflect.TypeFor[T]()))
}

// ResourceIDOf returns the id of resource type T.
// It panics if T was never registered.
func ResourceIDOf[T any]() ResourceID {
	return ResourceID(resourceTable.mustLookup(reflect.TypeFor[T]()))
}

// ComponentCount returns the number of registered component types.
func ComponentCount() int {
	return componentTable.len()
}

// ResourceCount returns the number of registered resource types.
func ResourceCount() int {
	return resourceTable.len()
}

// ComponentName returns the registration name of a component id.
func ComponentName(id ComponentID) string {
	return componentTable.entry(uint8(id)).name
}

// ComponentType returns the Go type of a component id.
func ComponentType(id ComponentID) reflect.Type {
	return componentTable.entry(uint8(id)).typ
}

// ResourceName returns the registration name of a resource id.
func ResourceName(id ResourceID) string {
	return resourceTable.entry(uint8(id)).name
}

// ResourceType returns the Go type of a resource id.
func ResourceType(id ResourceID) reflect.Type {
	return resourceTable.entry(uint8(id)).typ
}
