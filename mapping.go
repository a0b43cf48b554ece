package peano

import (
	"reflect"
)

// Mapping is a secondary index over a world's entities, consulted by queries.
// A world holds at most one mapping per concrete type.
//
// Mappings are shared by every system in a tick. Implementations must allow
// concurrent queries and serialize structural updates against them.
type Mapping interface {
	// Attach is called once when the mapping is added to a world.
	// It indexes the entities that already exist.
	Attach(w *World)
}

// EntityObserver is implemented by mappings that follow entity changes.
// Callbacks run synchronously on the goroutine making the change.
type EntityObserver interface {
	EntitySpawned(e *Entity)
	ComponentAdded(e *Entity, id ComponentID)
	ComponentRemoved(e *Entity, id ComponentID)
	EntityDespawned(e *Entity)
}

// MappingKey returns the key used for mapping M in footprints and lookups.
func MappingKey[M Mapping]() reflect.Type {
	return reflect.TypeFor[M]()
}

// MappingOf returns the world's mapping of type M.
func MappingOf[M Mapping](w *World) (M, bool) {
	w.mappingsMu.RLock()
	m, ok := w.mappings[MappingKey[M]()]
	w.mappingsMu.RUnlock()

	if !ok {
		var zero M
		return zero, false
	}
	return m.(M), true
}

// Query pairs a mapping type with a pure function producing an output from it.
//
// Usage:
//
//	movers := peano.TableQuery(peano.ComponentIDOf[Position](), peano.ComponentIDOf[Velocity]())
//	entities, ok := movers.Run(w)
type Query[M Mapping, Out any] struct {
	fn func(M) Out
	// reads holds the components whose membership decides the output.
	reads Bitmask
}

// NewQuery creates a query over mapping type M.
func NewQuery[M Mapping, Out any](fn func(M) Out) Query[M, Out] {
	return Query[M, Out]{fn: fn}
}

// Reading declares the components the query output depends on. RunIn
// checks them as component reads of the running system.
func (q Query[M, Out]) Reading(ids ...ComponentID) Query[M, Out] {
	for _, id := range ids {
		q.reads.Set(uint8(id))
	}
	return q
}

// Run evaluates the query against the world's mapping.
// It returns false if the world has no mapping of type M.
func (q Query[M, Out]) Run(w *World) (Out, bool) {
	m, ok := MappingOf[M](w)
	if !ok {
		var zero Out
		return zero, false
	}
	return q.fn(m), true
}

// RunIn evaluates the query on behalf of a running system.
// The mapping read and the components declared with Reading are checked
// against the system's footprint.
func (q Query[M, Out]) RunIn(c *Context) (Out, bool) {
	c.checkMapping(MappingKey[M](), false)
	for _, id := range q.reads.IDs() {
		c.checkComponent(ComponentID(id), false)
	}
	return q.Run(c.World)
}
