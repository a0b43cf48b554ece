package peano

import (
	"testing"
)

func TestEntityComponents(t *testing.T) {
	w := newTestWorld(t)

	t.Run("Add and Get", func(t *testing.T) {
		e := w.Spawn()
		if !Add(e, &Position{X: 3, Y: 4}) {
			t.Fatal("expected Add to succeed")
		}
		p := Get[Position](e)
		if p == nil || *p != (Position{X: 3, Y: 4}) {
			t.Errorf("expected {3 4}, got %v", p)
		}
		if GetMut[Position](e) != p {
			t.Error("expected GetMut to return the stored pointer")
		}
	})

	t.Run("Add never overwrites", func(t *testing.T) {
		e := w.Spawn()
		first := &Health{Current: 10}
		Add(e, first)
		if Add(e, &Health{Current: 99}) {
			t.Error("expected second Add to fail")
		}
		if Get[Health](e) != first || first.Current != 10 {
			t.Errorf("expected original value, got %v", Get[Health](e))
		}
	})

	t.Run("Remove", func(t *testing.T) {
		e := w.Spawn()
		v := &Velocity{X: 1}
		Add(e, v)
		if got := Remove[Velocity](e); got != v {
			t.Errorf("expected removed value %v, got %v", v, got)
		}
		if Has[Velocity](e) {
			t.Error("expected Has to be false after Remove")
		}
		if Remove[Velocity](e) != nil {
			t.Error("expected nil from second Remove")
		}
		if !Add(e, &Velocity{}) {
			t.Error("expected Add to succeed after Remove")
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		e := w.Spawn()
		if Get[Position](e) != nil || Has[Position](e) {
			t.Error("expected empty slot")
		}
		if Get[Position](nil) != nil || Has[Position](nil) || Add[Position](nil, &Position{}) {
			t.Error("expected nil entity to hold nothing")
		}
	})

	t.Run("Set replaces and clears", func(t *testing.T) {
		e := w.Spawn()
		Set(e, &Health{Current: 1})
		Set(e, &Health{Current: 2})
		if Get[Health](e).Current != 2 {
			t.Errorf("expected 2, got %d", Get[Health](e).Current)
		}
		Set[Health](e, nil)
		if Has[Health](e) {
			t.Error("expected Set(nil) to empty the slot")
		}
	})

	t.Run("Set by id", func(t *testing.T) {
		e := w.Spawn()
		id := ComponentIDOf[Position]()
		e.Set(id, &Position{X: 1})
		if !e.HasID(id) || Get[Position](e).X != 1 {
			t.Error("expected slot to be set")
		}
		e.Set(id, nil)
		if e.HasID(id) {
			t.Error("expected slot to be empty")
		}
		mustPanic(t, func() { e.Set(id, &Velocity{}) })
		mustPanic(t, func() { e.Set(id, Position{}) })
	})

	t.Run("Set by id with typed nil", func(t *testing.T) {
		w := newTestWorld(t)
		tm := NewTableMapping()
		w.AddMapping(tm)

		e := w.Spawn()
		id := ComponentIDOf[Position]()
		e.Set(id, (*Position)(nil))
		mask := e.Mask()
		if e.HasID(id) || Has[Position](e) || !mask.IsZero() {
			t.Errorf("expected typed nil to leave the slot empty, got %v", e)
		}
		if tm.Count(id) != 0 {
			t.Error("expected no membership change for typed nil")
		}

		Add(e, &Position{})
		e.Set(id, (*Position)(nil))
		if e.HasID(id) || tm.Count(id) != 0 {
			t.Error("expected typed nil to empty an occupied slot")
		}
	})

	t.Run("Mask", func(t *testing.T) {
		e := w.Spawn()
		Add(e, &Position{})
		Add(e, &Frozen{})
		if e.Mask() != MaskOf(ComponentIDOf[Position](), ComponentIDOf[Frozen]()) {
			t.Errorf("unexpected mask for %v", e)
		}
	})
}

func TestEntityLifecycleHooks(t *testing.T) {
	w := newTestWorld(t)

	e := w.Spawn()
	first := &Lifecycle{}
	Add(e, first)
	if first.attached != 1 {
		t.Errorf("expected Attach once, got %d", first.attached)
	}

	second := &Lifecycle{}
	Set(e, second)
	if first.detached != 1 || second.attached != 1 {
		t.Errorf("expected replace to detach old and attach new, got %+v %+v", first, second)
	}

	w.Despawn(e.ID())
	if second.detached != 1 {
		t.Errorf("expected Despawn to detach, got %d", second.detached)
	}
	if e.Alive() || Has[Lifecycle](e) {
		t.Error("expected despawned entity to be empty and dead")
	}
}

func TestWorldEntities(t *testing.T) {
	w := newTestWorld(t)

	a, b, c := w.Spawn(), w.Spawn(), w.Spawn()
	if a.ID() >= b.ID() || b.ID() >= c.ID() {
		t.Fatalf("expected increasing ids, got %d %d %d", a.ID(), b.ID(), c.ID())
	}
	if a.World() != w {
		t.Error("expected entity to belong to the world")
	}
	if w.Len() != 3 {
		t.Errorf("expected 3 entities, got %d", w.Len())
	}

	if !w.Despawn(b.ID()) {
		t.Error("expected Despawn to succeed")
	}
	if w.Despawn(b.ID()) {
		t.Error("expected second Despawn to fail")
	}
	if _, ok := w.Entity(b.ID()); ok {
		t.Error("expected despawned entity to be gone")
	}
	if got, ok := w.Entity(c.ID()); !ok || got != c {
		t.Error("expected to find c")
	}

	var ids []EntityID
	for e := range w.Entities() {
		ids = append(ids, e.ID())
	}
	if len(ids) != 2 || ids[0] != a.ID() || ids[1] != c.ID() {
		t.Errorf("expected [%d %d], got %v", a.ID(), c.ID(), ids)
	}
}

func TestResources(t *testing.T) {
	w := newTestWorld(t)

	t.Run("absent before insert", func(t *testing.T) {
		if Resource[Score](w) != nil || HasResource[Score](w) {
			t.Error("expected no Score")
		}
	})

	t.Run("insert replaces", func(t *testing.T) {
		first := &Score{Value: 1}
		if InsertResource(w, first) != nil {
			t.Error("expected no previous resource")
		}
		second := &Score{Value: 2}
		if prev := InsertResource(w, second); prev != first {
			t.Errorf("expected previous %v, got %v", first, prev)
		}
		if Resource[Score](w) != second {
			t.Error("expected the second resource")
		}
		if w.ResourceByID(ResourceIDOf[Score]()) != any(second) {
			t.Error("expected ResourceByID to return the stored value")
		}
	})

	t.Run("remove", func(t *testing.T) {
		InsertResource(w, &Clock{Ticks: 5})
		if got := RemoveResource[Clock](w); got == nil || got.Ticks != 5 {
			t.Errorf("expected removed clock, got %v", got)
		}
		if HasResource[Clock](w) {
			t.Error("expected Clock to be gone")
		}
		if RemoveResource[Clock](w) != nil {
			t.Error("expected nil from second remove")
		}
	})

	t.Run("insert nil removes", func(t *testing.T) {
		InsertResource(w, &Clock{})
		InsertResource[Clock](w, nil)
		if HasResource[Clock](w) {
			t.Error("expected Clock to be gone")
		}
	})

	t.Run("worlds are independent", func(t *testing.T) {
		other := newTestWorld(t)
		if HasResource[Score](other) {
			t.Error("expected resources to be per world")
		}
		if other.ID() == w.ID() {
			t.Error("expected distinct world ids")
		}
	})
}
