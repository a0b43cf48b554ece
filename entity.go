package peano

import (
	"fmt"
	"reflect"
	"strings"
	"sync/atomic"
)

// EntityID is a process-unique entity identifier.
type EntityID uint32

// nextEntityID allocates ids across every world in the process.
var nextEntityID atomic.Uint32

// Entity is an identity plus one optional component slot per registered
// component type. Slots hold *T values and are indexed by ComponentID.
//
// An Entity is owned by exactly one World. Slot access is not synchronized:
// the scheduler guarantees that no two concurrently running systems touch the
// same component type.
type Entity struct {
	id    EntityID
	world *World

	// components is sized once, at spawn, from the finalized registry.
	components []any

	alive atomic.Bool
}

// newEntity creates an entity with an empty slot for every component type.
func newEntity(w *World) *Entity {
	e := &Entity{
		id:         EntityID(nextEntityID.Add(1)),
		world:      w,
		components: make([]any, ComponentCount()),
	}
	e.alive.Store(true)
	return e
}

// ID returns the entity's identifier.
func (e *Entity) ID() EntityID {
	return e.id
}

// World returns the world that owns the entity.
func (e *Entity) World() *World {
	return e.world
}

// Alive returns false once the entity has been despawned.
func (e *Entity) Alive() bool {
	return e.alive.Load()
}

// Set replaces the slot for id unconditionally. A nil value, typed or not,
// empties the slot. The value must be a pointer to the component type
// registered under id.
func (e *Entity) Set(id ComponentID, value any) {
	if value != nil {
		want := reflect.PointerTo(ComponentType(id))
		if got := reflect.TypeOf(value); got != want {
			panic(fmt.Sprintf("peano: component slot %s expects %v, got %v", ComponentName(id), want, got))
		}
		if reflect.ValueOf(value).IsNil() {
			value = nil
		}
	}
	e.replace(id, value)
}

// HasID reports whether the slot for id is occupied.
func (e *Entity) HasID(id ComponentID) bool {
	return e.components[id] != nil
}

// Mask returns the set of occupied component ids.
// It reads every slot, so it must not race with component writers.
func (e *Entity) Mask() Bitmask {
	var m Bitmask
	for id, c := range e.components {
		if c != nil {
			m.Set(uint8(id))
		}
	}
	return m
}

// String returns a string representation of the entity for debugging.
func (e *Entity) String() string {
	var names []string
	for id, c := range e.components {
		if c != nil {
			names = append(names, ComponentName(ComponentID(id)))
		}
	}
	return fmt.Sprintf("Entity{ID: %d, Components: [%s]}", e.id, strings.Join(names, ", "))
}

// replace swaps a slot and runs lifecycle hooks and mapping notifications.
func (e *Entity) replace(id ComponentID, value any) any {
	old := e.components[id]
	e.components[id] = value

	if old != nil {
		if d, ok := old.(Detachable); ok {
			d.Detach(e)
		}
	}
	if value != nil {
		if a, ok := value.(Attachable); ok {
			a.Attach(e)
		}
	}

	// Observers only see membership changes.
	if e.world != nil && e.alive.Load() {
		switch {
		case old == nil && value != nil:
			e.world.notifyAdded(e, id)
		case old != nil && value == nil:
			e.world.notifyRemoved(e, id)
		}
	}
	return old
}

// clear empties every slot without notifying observers.
// Used when the owning world drops the entity.
func (e *Entity) clear() {
	for id, c := range e.components {
		if c == nil {
			continue
		}
		e.components[id] = nil
		if d, ok := c.(Detachable); ok {
			d.Detach(e)
		}
	}
}
