package peano

import (
	"github.com/df-mc/dragonfly/server/block/cube"
)

// TrackBounds is a system that keeps the world's SpatialMapping in sync with
// component T. Entities holding T are placed at Bounds(component); entities
// without it are dropped from the index.
//
// Add it to PostUpdate so the index reflects the movement of the tick.
//
//	world.AddSystem(&peano.TrackBounds[Position]{
//	    Bounds: func(p *Position) cube.BBox { return peano.PointBox(p.Vec) },
//	}, peano.PostUpdate)
type TrackBounds[T any] struct {
	Bounds func(*T) cube.BBox
}

// Name implements Namer.
func (t *TrackBounds[T]) Name() string {
	return "TrackBounds[" + ComponentName(ComponentIDOf[T]()) + "]"
}

// Access implements Footprinter.
func (t *TrackBounds[T]) Access() *Access {
	return NewAccess().
		Read(ComponentIDOf[T]()).
		WriteMapping(MappingKey[*SpatialMapping]())
}

// Run implements System.
func (t *TrackBounds[T]) Run(c *Context) {
	spatial, ok := MapMut[*SpatialMapping](c)
	if !ok {
		return
	}

	for e := range c.World.Entities() {
		v := View[T](c, e)
		if v == nil {
			spatial.Remove(e)
			continue
		}
		spatial.Place(e, t.Bounds(v))
	}
}
