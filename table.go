package peano

import (
	"cmp"
	"slices"
	"sync"
)

// TableMapping groups entities by the exact set of components they hold,
// archetype style. A query for a component set visits one bucket per
// distinct set instead of checking every entity.
//
// Membership follows component additions and removals through the
// EntityObserver callbacks, so a query never returns stale entities.
type TableMapping struct {
	mu     sync.RWMutex
	tables map[Bitmask]*table
	index  map[EntityID]*table
}

// table is one bucket of entities sharing a component set.
type table struct {
	mask     Bitmask
	entities map[EntityID]*Entity
}

var (
	_ Mapping        = (*TableMapping)(nil)
	_ EntityObserver = (*TableMapping)(nil)
)

// NewTableMapping creates an empty table mapping.
func NewTableMapping() *TableMapping {
	return &TableMapping{
		tables: make(map[Bitmask]*table),
		index:  make(map[EntityID]*table),
	}
}

// MaskOf builds a component bitmask from ids.
func MaskOf(ids ...ComponentID) Bitmask {
	var m Bitmask
	for _, id := range ids {
		m.Set(uint8(id))
	}
	return m
}

// Attach indexes every entity already in the world.
func (t *TableMapping) Attach(w *World) {
	for e := range w.Entities() {
		mask := e.Mask()
		t.mu.Lock()
		t.moveLocked(e, mask)
		t.mu.Unlock()
	}
}

// EntitySpawned implements EntityObserver.
func (t *TableMapping) EntitySpawned(e *Entity) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.index[e.id]; !ok {
		t.moveLocked(e, Bitmask{})
	}
}

// ComponentAdded implements EntityObserver.
func (t *TableMapping) ComponentAdded(e *Entity, id ComponentID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var mask Bitmask
	if cur, ok := t.index[e.id]; ok {
		mask = cur.mask
	}
	mask.Set(uint8(id))
	t.moveLocked(e, mask)
}

// ComponentRemoved implements EntityObserver.
func (t *TableMapping) ComponentRemoved(e *Entity, id ComponentID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var mask Bitmask
	if cur, ok := t.index[e.id]; ok {
		mask = cur.mask
	}
	mask.Clear(uint8(id))
	t.moveLocked(e, mask)
}

// EntityDespawned implements EntityObserver.
func (t *TableMapping) EntityDespawned(e *Entity) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(e.id)
}

// moveLocked places e in the table for mask. Caller must hold the write lock.
func (t *TableMapping) moveLocked(e *Entity, mask Bitmask) {
	if cur, ok := t.index[e.id]; ok {
		if cur.mask == mask {
			return
		}
		t.removeLocked(e.id)
	}

	tbl, ok := t.tables[mask]
	if !ok {
		tbl = &table{mask: mask, entities: make(map[EntityID]*Entity)}
		t.tables[mask] = tbl
	}
	tbl.entities[e.id] = e
	t.index[e.id] = tbl
}

// removeLocked drops an entity and any table it leaves empty.
func (t *TableMapping) removeLocked(id EntityID) {
	cur, ok := t.index[id]
	if !ok {
		return
	}
	delete(cur.entities, id)
	delete(t.index, id)
	if len(cur.entities) == 0 {
		delete(t.tables, cur.mask)
	}
}

// Match returns the entities holding every component in require and none in
// exclude, in ascending id order.
func (t *TableMapping) Match(require, exclude Bitmask) []*Entity {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []*Entity
	for mask, tbl := range t.tables {
		if !mask.ContainsAll(require) || mask.ContainsAny(exclude) {
			continue
		}
		for _, e := range tbl.entities {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b *Entity) int {
		return cmp.Compare(a.id, b.id)
	})
	return out
}

// With returns the entities holding at least the given components.
func (t *TableMapping) With(ids ...ComponentID) []*Entity {
	return t.Match(MaskOf(ids...), Bitmask{})
}

// Count returns how many entities hold at least the given components.
func (t *TableMapping) Count(ids ...ComponentID) int {
	require := MaskOf(ids...)

	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for mask, tbl := range t.tables {
		if mask.ContainsAll(require) {
			n += len(tbl.entities)
		}
	}
	return n
}

// Signature returns the component set the mapping holds for an entity.
func (t *TableMapping) Signature(id EntityID) (Bitmask, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cur, ok := t.index[id]
	if !ok {
		return Bitmask{}, false
	}
	return cur.mask, true
}

// Tables returns the number of distinct component sets currently held.
func (t *TableMapping) Tables() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.tables)
}

// TableQuery returns a query for the entities holding at least ids.
// Running it from a system reads every component in ids.
func TableQuery(ids ...ComponentID) Query[*TableMapping, []*Entity] {
	require := MaskOf(ids...)
	return NewQuery(func(t *TableMapping) []*Entity {
		return t.Match(require, Bitmask{})
	}).Reading(ids...)
}

// TableQueryWithout returns a query for the entities holding every id in
// require and none in exclude. Both sets count as component reads.
func TableQueryWithout(require, exclude []ComponentID) Query[*TableMapping, []*Entity] {
	req, exc := MaskOf(require...), MaskOf(exclude...)
	return NewQuery(func(t *TableMapping) []*Entity {
		return t.Match(req, exc)
	}).Reading(require...).Reading(exclude...)
}
