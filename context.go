package peano

import (
	"fmt"
	"log/slog"
	"reflect"
	"time"
)

// AccessCheck selects how the debug validator treats undeclared accesses.
type AccessCheck int

const (
	// AccessUnchecked performs no validation.
	AccessUnchecked AccessCheck = iota
	// AccessLog records violations and logs them as warnings.
	AccessLog
	// AccessPanic records violations and panics in the offending system.
	AccessPanic
)

// String returns the string representation of the mode.
func (m AccessCheck) String() string {
	switch m {
	case AccessUnchecked:
		return "Unchecked"
	case AccessLog:
		return "Log"
	case AccessPanic:
		return "Panic"
	default:
		return "Unknown"
	}
}

// AccessViolation is an access made by a system outside its footprint.
type AccessViolation struct {
	System string
	Tick   uint64
	// Kind is "component", "resource", "mapping" or "world".
	Kind  string
	Name  string
	Write bool
}

// String returns a string representation of the violation.
func (v AccessViolation) String() string {
	mode := "read"
	if v.Write {
		mode = "write"
	}
	return fmt.Sprintf("system %s: undeclared %s of %s %s (tick %d)", v.System, mode, v.Kind, v.Name, v.Tick)
}

// Context is handed to a running system. It carries the world and tick
// information, and routes accesses through the debug validator.
//
// The helpers View, Mut, Insert, Put, Take, Res, ResMut, Map and MapMut are
// checked against the system's footprint. Direct calls on the World are not.
type Context struct {
	// World is the shared world.
	World *World
	// Tick is the number of the running tick, starting at one.
	Tick uint64
	// Delta is the time since the previous tick started.
	Delta time.Duration

	system    *systemState
	scheduler *Scheduler
}

// System returns the name of the running system.
func (c *Context) System() string {
	return c.system.name
}

// Logger returns the world logger tagged with the system name.
func (c *Context) Logger() *slog.Logger {
	return c.World.logger.With("system", c.system.name)
}

// Spawn creates an entity. Spawning is safe from any system.
func (c *Context) Spawn() *Entity {
	return c.World.Spawn()
}

// Despawn removes an entity. It touches every component type, so the system
// must be exclusive.
func (c *Context) Despawn(id EntityID) bool {
	if !c.system.access.IsExclusive() {
		c.report("world", "despawn", true)
	}
	return c.World.Despawn(id)
}

// Schedule queues a one-shot system to run after the last stage of a tick,
// once delay has passed.
func (c *Context) Schedule(sys System, delay time.Duration) *TaskHandle {
	return c.scheduler.Schedule(sys, delay)
}

// checkComponent validates a component access.
func (c *Context) checkComponent(id ComponentID, write bool) {
	if c.scheduler.check == AccessUnchecked || c.system.access.allowsComponent(id, write) {
		return
	}
	c.report("component", ComponentName(id), write)
}

// checkResource validates a resource access.
func (c *Context) checkResource(id ResourceID, write bool) {
	if c.scheduler.check == AccessUnchecked || c.system.access.allowsResource(id, write) {
		return
	}
	c.report("resource", ResourceName(id), write)
}

// checkMapping validates a mapping access.
func (c *Context) checkMapping(key reflect.Type, write bool) {
	if c.scheduler.check == AccessUnchecked || c.system.access.allowsMapping(key, write) {
		return
	}
	c.report("mapping", key.String(), write)
}

// report records a violation and applies the configured mode.
func (c *Context) report(kind, name string, write bool) {
	if c.scheduler.check == AccessUnchecked {
		return
	}
	v := AccessViolation{
		System: c.system.name,
		Tick:   c.Tick,
		Kind:   kind,
		Name:   name,
		Write:  write,
	}
	c.scheduler.recordViolation(v)
	if c.scheduler.check == AccessPanic {
		panic("peano: " + v.String())
	}
}

// View returns component T of e for reading.
func View[T any](c *Context, e *Entity) *T {
	c.checkComponent(ComponentIDOf[T](), false)
	return Get[T](e)
}

// Mut returns component T of e for writing.
func Mut[T any](c *Context, e *Entity) *T {
	c.checkComponent(ComponentIDOf[T](), true)
	return GetMut[T](e)
}

// Insert adds component T to e unless one is already present.
func Insert[T any](c *Context, e *Entity, component *T) bool {
	c.checkComponent(ComponentIDOf[T](), true)
	return Add(e, component)
}

// Put sets component T on e, replacing any existing value.
func Put[T any](c *Context, e *Entity, component *T) {
	c.checkComponent(ComponentIDOf[T](), true)
	Set(e, component)
}

// Take removes component T from e and returns it.
func Take[T any](c *Context, e *Entity) *T {
	c.checkComponent(ComponentIDOf[T](), true)
	return Remove[T](e)
}

// Res returns resource T for reading.
func Res[T any](c *Context) *T {
	c.checkResource(ResourceIDOf[T](), false)
	return Resource[T](c.World)
}

// ResMut returns resource T for writing.
func ResMut[T any](c *Context) *T {
	c.checkResource(ResourceIDOf[T](), true)
	return Resource[T](c.World)
}

// Map returns mapping M for queries.
func Map[M Mapping](c *Context) (M, bool) {
	c.checkMapping(MappingKey[M](), false)
	return MappingOf[M](c.World)
}

// MapMut returns mapping M for structural updates.
func MapMut[M Mapping](c *Context) (M, bool) {
	c.checkMapping(MappingKey[M](), true)
	return MappingOf[M](c.World)
}
