package peano

import (
	"cmp"
	"math"
	"slices"
	"sync"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
)

// SpatialMapping indexes entities by bounding volume in a uniform hash grid.
// Each entity occupies every cell its box overlaps, so range queries only
// visit the cells covering the searched region.
//
// Entities enter the index explicitly (Insert, Place) and leave it when
// removed or despawned. Boxes covering more than maxEntityCells cells, or
// lying beyond maxCellCoord cells from the origin, are kept in a separate
// set that every query scans. Boxes with non-finite coordinates are rejected.
type SpatialMapping struct {
	mu       sync.RWMutex
	cellSize float64
	cells    map[cube.Pos]map[EntityID]*Entity
	large    map[EntityID]*Entity
	entries  map[EntityID]spatialEntry
}

const (
	// maxEntityCells is the most cells one entity is written into.
	maxEntityCells = 4096
	// maxCellCoord bounds cell coordinates walked through the grid.
	maxCellCoord = 1 << 40
)

// spatialEntry is the indexed state of one entity.
type spatialEntry struct {
	entity *Entity
	box    cube.BBox
}

var (
	_ Mapping        = (*SpatialMapping)(nil)
	_ EntityObserver = (*SpatialMapping)(nil)
)

// NewSpatialMapping creates a grid with cubic cells of the given edge length.
// Cells should be close to the typical query radius.
func NewSpatialMapping(cellSize float64) *SpatialMapping {
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		panic("peano: spatial cell size must be a positive finite number")
	}
	return &SpatialMapping{
		cellSize: cellSize,
		cells:    make(map[cube.Pos]map[EntityID]*Entity),
		large:    make(map[EntityID]*Entity),
		entries:  make(map[EntityID]spatialEntry),
	}
}

// PointBox returns the zero-volume box at p.
func PointBox(p mgl64.Vec3) cube.BBox {
	return cube.Box(p[0], p[1], p[2], p[0], p[1], p[2])
}

// Attach implements Mapping. Entities are indexed explicitly, so there is
// nothing to scan.
func (s *SpatialMapping) Attach(*World) {}

// EntitySpawned implements EntityObserver.
func (s *SpatialMapping) EntitySpawned(*Entity) {}

// ComponentAdded implements EntityObserver.
func (s *SpatialMapping) ComponentAdded(*Entity, ComponentID) {}

// ComponentRemoved implements EntityObserver.
func (s *SpatialMapping) ComponentRemoved(*Entity, ComponentID) {}

// EntityDespawned implements EntityObserver.
func (s *SpatialMapping) EntityDespawned(e *Entity) {
	s.Remove(e)
}

// Insert indexes e with the given bounds.
// Returns false if e is already indexed or box is not finite.
func (s *SpatialMapping) Insert(e *Entity, box cube.BBox) bool {
	if !finiteBox(box) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[e.id]; ok {
		return false
	}
	s.insertLocked(e, box)
	return true
}

// InsertPoint indexes e at a single point.
func (s *SpatialMapping) InsertPoint(e *Entity, p mgl64.Vec3) bool {
	return s.Insert(e, PointBox(p))
}

// Move updates the bounds of an indexed entity.
// Returns false if e is not indexed or box is not finite.
func (s *SpatialMapping) Move(e *Entity, box cube.BBox) bool {
	if !finiteBox(box) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.entries[e.id]
	if !ok {
		return false
	}
	if s.spanOf(old.box) == s.spanOf(box) {
		// Same cells, only the stored box changes.
		s.entries[e.id] = spatialEntry{entity: e, box: box}
		return true
	}
	s.removeLocked(e.id)
	s.insertLocked(e, box)
	return true
}

// MovePoint updates an indexed entity to a single point.
func (s *SpatialMapping) MovePoint(e *Entity, p mgl64.Vec3) bool {
	return s.Move(e, PointBox(p))
}

// Place inserts e or moves it if it is already indexed.
// A box that is not finite leaves the index unchanged.
func (s *SpatialMapping) Place(e *Entity, box cube.BBox) {
	if !s.Move(e, box) {
		s.Insert(e, box)
	}
}

// Remove drops e from the index. Returns false if e was not indexed.
func (s *SpatialMapping) Remove(e *Entity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[e.id]; !ok {
		return false
	}
	s.removeLocked(e.id)
	return true
}

// Bounds returns the indexed box of an entity.
func (s *SpatialMapping) Bounds(id EntityID) (cube.BBox, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	return entry.box, ok
}

// Len returns the number of indexed entities.
func (s *SpatialMapping) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Within returns the entities whose bounds come within radius of center,
// in ascending id order.
func (s *SpatialMapping) Within(center mgl64.Vec3, radius float64) []*Entity {
	if !(radius >= 0) || !finiteVec(center) {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectLocked(PointBox(center).Grow(radius), func(box cube.BBox) bool {
		return boxDistance(box, center) <= radius
	})
}

// Intersecting returns the entities whose bounds overlap box, edges
// included, in ascending id order.
func (s *SpatialMapping) Intersecting(box cube.BBox) []*Entity {
	if !finiteBox(box) {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectLocked(box, func(other cube.BBox) bool {
		return overlaps(box, other)
	})
}

// Nearest returns up to k entities ordered by distance from center.
// Ties are broken by entity id.
func (s *SpatialMapping) Nearest(center mgl64.Vec3, k int) []*Entity {
	if k <= 0 || !finiteVec(center) {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return nil
	}

	var candidates []*Entity
	if len(s.entries) <= k {
		candidates = make([]*Entity, 0, len(s.entries))
		for _, entry := range s.entries {
			candidates = append(candidates, entry.entity)
		}
	} else {
		// Grow the search radius until it holds k entities. Anything
		// outside the final radius is farther than everything inside it.
		for radius := s.cellSize; ; radius *= 2 {
			candidates = s.collectLocked(PointBox(center).Grow(radius), func(box cube.BBox) bool {
				return boxDistance(box, center) <= radius
			})
			if len(candidates) >= k {
				break
			}
		}
	}

	slices.SortFunc(candidates, func(a, b *Entity) int {
		da := boxDistance(s.entries[a.id].box, center)
		db := boxDistance(s.entries[b.id].box, center)
		return cmp.Or(cmp.Compare(da, db), cmp.Compare(a.id, b.id))
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

// cellSpan is the range of cells a box covers, in cell coordinates.
type cellSpan struct {
	lo, hi mgl64.Vec3
}

// spanOf returns the cells a box touches.
func (s *SpatialMapping) spanOf(box cube.BBox) cellSpan {
	lo, hi := box.Min().Mul(1/s.cellSize), box.Max().Mul(1/s.cellSize)
	for i := 0; i < 3; i++ {
		lo[i], hi[i] = math.Floor(lo[i]), math.Floor(hi[i])
	}
	return cellSpan{lo: lo, hi: hi}
}

// volume returns the number of cells in the span.
func (c cellSpan) volume() float64 {
	return (c.hi[0] - c.lo[0] + 1) * (c.hi[1] - c.lo[1] + 1) * (c.hi[2] - c.lo[2] + 1)
}

// walkable reports whether the span holds at most limit cells with
// coordinates that convert to cube.Pos exactly.
func (c cellSpan) walkable(limit float64) bool {
	for i := 0; i < 3; i++ {
		if !(math.Abs(c.lo[i]) <= maxCellCoord && math.Abs(c.hi[i]) <= maxCellCoord) {
			return false
		}
	}
	return c.volume() <= limit
}

// contains reports whether cell pos lies in the span.
func (c cellSpan) contains(pos cube.Pos) bool {
	for i := 0; i < 3; i++ {
		if v := float64(pos[i]); !(v >= c.lo[i] && v <= c.hi[i]) {
			return false
		}
	}
	return true
}

// each calls fn for every cell of a walkable span.
func (c cellSpan) each(fn func(pos cube.Pos)) {
	lo, hi := cube.PosFromVec3(c.lo), cube.PosFromVec3(c.hi)
	for x := lo[0]; x <= hi[0]; x++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for z := lo[2]; z <= hi[2]; z++ {
				fn(cube.Pos{x, y, z})
			}
		}
	}
}

// insertLocked adds an entity to every cell its box overlaps, or to the
// large set.
func (s *SpatialMapping) insertLocked(e *Entity, box cube.BBox) {
	s.entries[e.id] = spatialEntry{entity: e, box: box}

	span := s.spanOf(box)
	if !span.walkable(maxEntityCells) {
		s.large[e.id] = e
		return
	}
	span.each(func(pos cube.Pos) {
		cell, ok := s.cells[pos]
		if !ok {
			cell = make(map[EntityID]*Entity)
			s.cells[pos] = cell
		}
		cell[e.id] = e
	})
}

// removeLocked removes an entity from its cells and the entry table.
func (s *SpatialMapping) removeLocked(id EntityID) {
	entry := s.entries[id]
	delete(s.entries, id)

	if _, ok := s.large[id]; ok {
		delete(s.large, id)
		return
	}
	s.spanOf(entry.box).each(func(pos cube.Pos) {
		cell := s.cells[pos]
		delete(cell, id)
		if len(cell) == 0 {
			delete(s.cells, pos)
		}
	})
}

// collectLocked gathers entities in the cells covering region, and in the
// large set, whose box passes keep. Caller must hold the read lock.
func (s *SpatialMapping) collectLocked(region cube.BBox, keep func(cube.BBox) bool) []*Entity {
	seen := make(map[EntityID]struct{})
	var out []*Entity
	visit := func(cell map[EntityID]*Entity) {
		for id, e := range cell {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if keep(s.entries[id].box) {
				out = append(out, e)
			}
		}
	}

	span := s.spanOf(region)
	if span.walkable(float64(len(s.cells))) {
		span.each(func(pos cube.Pos) {
			if cell, ok := s.cells[pos]; ok {
				visit(cell)
			}
		})
	} else {
		// The region covers more cells than are occupied; walk the occupied ones.
		for pos, cell := range s.cells {
			if span.contains(pos) {
				visit(cell)
			}
		}
	}
	visit(s.large)

	slices.SortFunc(out, func(a, b *Entity) int {
		return cmp.Compare(a.id, b.id)
	})
	return out
}

// finiteVec reports whether every coordinate of v is finite.
func finiteVec(v mgl64.Vec3) bool {
	for _, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// finiteBox reports whether both corners of box are finite.
func finiteBox(box cube.BBox) bool {
	return finiteVec(box.Min()) && finiteVec(box.Max())
}

// boxDistance returns the distance from p to the closest point of box.
func boxDistance(box cube.BBox, p mgl64.Vec3) float64 {
	lo, hi := box.Min(), box.Max()
	var d2 float64
	for i := 0; i < 3; i++ {
		switch {
		case p[i] < lo[i]:
			d := lo[i] - p[i]
			d2 += d * d
		case p[i] > hi[i]:
			d := p[i] - hi[i]
			d2 += d * d
		}
	}
	return math.Sqrt(d2)
}

// overlaps reports whether two boxes share at least one point.
func overlaps(a, b cube.BBox) bool {
	amin, amax := a.Min(), a.Max()
	bmin, bmax := b.Min(), b.Max()
	for i := 0; i < 3; i++ {
		if amax[i] < bmin[i] || bmax[i] < amin[i] {
			return false
		}
	}
	return true
}

// WithinQuery returns a query for the entities within radius of center.
func WithinQuery(center mgl64.Vec3, radius float64) Query[*SpatialMapping, []*Entity] {
	return NewQuery(func(s *SpatialMapping) []*Entity {
		return s.Within(center, radius)
	})
}

// IntersectingQuery returns a query for the entities overlapping box.
func IntersectingQuery(box cube.BBox) Query[*SpatialMapping, []*Entity] {
	return NewQuery(func(s *SpatialMapping) []*Entity {
		return s.Intersecting(box)
	})
}
