package peano

import (
	"cmp"
	"fmt"
	"iter"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// World owns entities, resources, mappings and systems.
// It is the single context every system runs against.
//
// Spawning and despawning are safe from concurrently running systems.
// Component and resource slots are not locked: exclusivity on them comes
// from the scheduler, which never runs two systems with conflicting
// footprints in the same wave.
type World struct {
	id     uuid.UUID
	logger *slog.Logger
	opts   Options

	mu       sync.RWMutex
	entities map[EntityID]*Entity

	// resources is sized once from the finalized registry.
	resources []any

	mappingsMu sync.RWMutex
	mappings   map[reflect.Type]Mapping
	observers  []EntityObserver

	scheduler *Scheduler
}

// NewWorld finalizes the type registry and creates an empty world.
// Every component and resource type must be registered before this call.
func NewWorld(opts ...Option) *World {
	Finalize()

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	id := uuid.New()
	w := &World{
		id:        id,
		logger:    o.Logger.With("world", id.String()),
		opts:      o,
		entities:  make(map[EntityID]*Entity),
		resources: make([]any, ResourceCount()),
		mappings:  make(map[reflect.Type]Mapping),
	}
	w.scheduler = newScheduler(w)
	return w
}

// ID returns the world's unique identifier.
func (w *World) ID() uuid.UUID {
	return w.id
}

// Logger returns the world's logger.
func (w *World) Logger() *slog.Logger {
	return w.logger
}

// Spawn creates an entity with no components.
func (w *World) Spawn() *Entity {
	e := newEntity(w)

	w.mu.Lock()
	w.entities[e.id] = e
	w.mu.Unlock()

	w.mappingsMu.RLock()
	for _, o := range w.observers {
		o.EntitySpawned(e)
	}
	w.mappingsMu.RUnlock()
	return e
}

// Despawn removes an entity from the world and drops its components.
// Detachable components are detached. Returns false if id is unknown.
func (w *World) Despawn(id EntityID) bool {
	w.mu.Lock()
	e, ok := w.entities[id]
	if ok {
		delete(w.entities, id)
		e.alive.Store(false)
	}
	w.mu.Unlock()

	if !ok {
		return false
	}

	w.mappingsMu.RLock()
	for _, o := range w.observers {
		o.EntityDespawned(e)
	}
	w.mappingsMu.RUnlock()

	e.clear()
	return true
}

// Entity returns the live entity with the given id.
func (w *World) Entity(id EntityID) (*Entity, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[id]
	return e, ok
}

// Len returns the number of live entities.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entities)
}

// Entities returns a snapshot of the live entities in ascending id order.
// Entities spawned or despawned during iteration do not affect it.
func (w *World) Entities() iter.Seq[*Entity] {
	w.mu.RLock()
	snapshot := make([]*Entity, 0, len(w.entities))
	for _, e := range w.entities {
		snapshot = append(snapshot, e)
	}
	w.mu.RUnlock()

	slices.SortFunc(snapshot, func(a, b *Entity) int {
		return cmp.Compare(a.id, b.id)
	})
	return slices.Values(snapshot)
}

// AddMapping installs a mapping and indexes the existing entities.
// A world holds one mapping per concrete type.
// It must not be called while a tick is running.
func (w *World) AddMapping(m Mapping) error {
	key := reflect.TypeOf(m)

	w.mappingsMu.Lock()
	if _, ok := w.mappings[key]; ok {
		w.mappingsMu.Unlock()
		return fmt.Errorf("peano: add mapping %v: %w", key, ErrDuplicateMapping)
	}
	w.mappings[key] = m
	if o, ok := m.(EntityObserver); ok {
		w.observers = append(w.observers, o)
	}
	w.mappingsMu.Unlock()

	m.Attach(w)
	w.logger.Debug("peano: mapping attached", "mapping", key.String(), "entities", w.Len())
	return nil
}

// AddSystem registers a system in a stage. The schedule is rebuilt on the
// next tick.
func (w *World) AddSystem(sys System, stage Stage) error {
	return w.scheduler.Add(sys, stage)
}

// Scheduler returns the world's scheduler.
func (w *World) Scheduler() *Scheduler {
	return w.scheduler
}

// Tick runs every system once. See Scheduler.Tick.
func (w *World) Tick() {
	w.scheduler.Tick()
}

// notifyAdded reports a component addition to the observers.
func (w *World) notifyAdded(e *Entity, id ComponentID) {
	w.mappingsMu.RLock()
	defer w.mappingsMu.RUnlock()
	for _, o := range w.observers {
		o.ComponentAdded(e, id)
	}
}

// notifyRemoved reports a component removal to the observers.
func (w *World) notifyRemoved(e *Entity, id ComponentID) {
	w.mappingsMu.RLock()
	defer w.mappingsMu.RUnlock()
	for _, o := range w.observers {
		o.ComponentRemoved(e, id)
	}
}

// String returns a string representation of the world for debugging.
func (w *World) String() string {
	w.mappingsMu.RLock()
	mappings := len(w.mappings)
	w.mappingsMu.RUnlock()
	return fmt.Sprintf("World{ID: %s, Entities: %d, Mappings: %d}", w.id, w.Len(), mappings)
}
