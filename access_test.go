package peano

import (
	"testing"
)

func TestAccessConflicts(t *testing.T) {
	pos, vel, hp := ComponentIDOf[Position](), ComponentIDOf[Velocity](), ComponentIDOf[Health]()
	score := ResourceIDOf[Score]()
	table := MappingKey[*TableMapping]()

	tests := []struct {
		name string
		a, b *Access
		want bool
	}{
		{"empty", NewAccess(), NewAccess(), false},
		{"read read", NewAccess().Read(pos), NewAccess().Read(pos), false},
		{"write read", NewAccess().Write(pos), NewAccess().Read(pos), true},
		{"read write", NewAccess().Read(pos), NewAccess().Write(pos), true},
		{"write write", NewAccess().Write(pos), NewAccess().Write(pos), true},
		{"disjoint writes", NewAccess().Write(pos).Read(vel), NewAccess().Write(hp), false},
		{"resource read read", NewAccess().ReadResource(score), NewAccess().ReadResource(score), false},
		{"resource write read", NewAccess().WriteResource(score), NewAccess().ReadResource(score), true},
		{"component and resource ids do not mix", NewAccess().Write(ComponentID(score)), NewAccess().ReadResource(score), false},
		{"mapping read read", NewAccess().ReadMapping(table), NewAccess().ReadMapping(table), false},
		{"mapping write read", NewAccess().WriteMapping(table), NewAccess().ReadMapping(table), true},
		{"mapping read write", NewAccess().ReadMapping(table), NewAccess().WriteMapping(table), true},
		{"exclusive", NewAccess().Exclusive(), NewAccess(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Conflicts(tt.b); got != tt.want {
				t.Errorf("a.Conflicts(b): expected %v, got %v", tt.want, got)
			}
			if got := tt.b.Conflicts(tt.a); got != tt.want {
				t.Errorf("b.Conflicts(a): expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestAccessMerge(t *testing.T) {
	pos, vel := ComponentIDOf[Position](), ComponentIDOf[Velocity]()
	key := MappingKey[*SpatialMapping]()

	a := NewAccess().Read(pos).ReadMapping(key)
	a.Merge(NewAccess().Write(vel).ReadMapping(key).Exclusive())

	if !a.Reads.Has(uint8(pos)) || !a.Writes.Has(uint8(vel)) {
		t.Error("expected merged component sets")
	}
	if len(a.MapReads) != 1 {
		t.Errorf("expected mapping keys to stay unique, got %v", a.MapReads)
	}
	if !a.IsExclusive() {
		t.Error("expected exclusive to carry over")
	}
	if a.Merge(nil) != a {
		t.Error("expected Merge(nil) to return the receiver")
	}
}

type phantomSystem struct {
	_ Writes[Position]
	_ Reads[Velocity]
	_ ReadsRes[Clock]
	_ WritesRes[Score]
	_ ReadsMap[*TableMapping]
	_ After[otherSystem]
	embeddedMarkers
}

type embeddedMarkers struct {
	_ Reads[Health]
}

func (phantomSystem) Run(*Context) {}

type otherSystem struct{}

func (*otherSystem) Run(*Context) {}

func TestInferFootprint(t *testing.T) {
	access, deps := inferFootprint(&phantomSystem{})

	want := NewAccess().
		Write(ComponentIDOf[Position]()).
		Read(ComponentIDOf[Velocity](), ComponentIDOf[Health]()).
		ReadResource(ResourceIDOf[Clock]()).
		WriteResource(ResourceIDOf[Score]()).
		ReadMapping(MappingKey[*TableMapping]())

	if access.Reads != want.Reads || access.Writes != want.Writes {
		t.Errorf("components: expected %v, got %v", want, access)
	}
	if access.ResReads != want.ResReads || access.ResWrites != want.ResWrites {
		t.Errorf("resources: expected %v, got %v", want, access)
	}
	if len(access.MapReads) != 1 || access.MapReads[0] != MappingKey[*TableMapping]() {
		t.Errorf("mappings: expected %v, got %v", want.MapReads, access.MapReads)
	}
	if len(deps) != 1 || deps[0].Name() != "otherSystem" {
		t.Errorf("expected dependency on otherSystem, got %v", deps)
	}
}

func TestBitmask(t *testing.T) {
	var m Bitmask
	for _, id := range []uint8{0, 63, 64, 200, 255} {
		m.Set(id)
	}
	if m.Count() != 5 {
		t.Errorf("expected 5 bits, got %d", m.Count())
	}
	ids := m.IDs()
	if len(ids) != 5 || ids[0] != 0 || ids[4] != 255 {
		t.Errorf("unexpected ids %v", ids)
	}
	m.Clear(63)
	if m.Has(63) || !m.Has(64) {
		t.Error("expected Clear to affect one bit")
	}

	var sub Bitmask
	sub.Set(200)
	if !m.ContainsAll(sub) || !m.ContainsAny(sub) || m.IsDisjoint(sub) {
		t.Error("expected m to contain sub")
	}
	if rest := m.AndNot(sub); rest.Has(200) {
		t.Error("expected AndNot to drop 200")
	}
}
