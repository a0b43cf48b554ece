package peano

import (
	"maps"
	"math/rand/v2"
	"reflect"
	"slices"
	"sync"
	"testing"
)

func namesOf(entries []registration) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

func TestAssignIDs(t *testing.T) {
	regs := []registration{
		{typ: reflect.TypeFor[Velocity](), name: "Velocity"},
		{typ: reflect.TypeFor[Position](), name: "Position"},
		{typ: reflect.TypeFor[Health](), name: "Health"},
		{typ: reflect.TypeFor[Frozen](), name: "Frozen"},
		{typ: reflect.TypeFor[Lifecycle](), name: "Lifecycle"},
	}

	want, wantIDs := assignIDs(regs)

	t.Run("sorted by name", func(t *testing.T) {
		got := namesOf(want)
		expected := []string{"Frozen", "Health", "Lifecycle", "Position", "Velocity"}
		if !slices.Equal(got, expected) {
			t.Errorf("expected %v, got %v", expected, got)
		}
		for i, e := range want {
			if wantIDs[e.typ] != uint8(i) {
				t.Errorf("%s: expected id %d, got %d", e.name, i, wantIDs[e.typ])
			}
		}
	})

	t.Run("independent of discovery order", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(1, 2))
		for i := 0; i < 100; i++ {
			shuffled := slices.Clone(regs)
			rng.Shuffle(len(shuffled), func(a, b int) {
				shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
			})

			got, ids := assignIDs(shuffled)
			if !slices.Equal(namesOf(got), namesOf(want)) {
				t.Fatalf("order %v: expected %v, got %v", namesOf(shuffled), namesOf(want), namesOf(got))
			}
			if !maps.Equal(ids, wantIDs) {
				t.Fatalf("order %v: ids differ", namesOf(shuffled))
			}
		}
	})

	t.Run("does not modify input", func(t *testing.T) {
		before := namesOf(regs)
		assignIDs(regs)
		if !slices.Equal(namesOf(regs), before) {
			t.Errorf("input reordered to %v", namesOf(regs))
		}
	})

	t.Run("Position before Velocity", func(t *testing.T) {
		_, ids := assignIDs([]registration{
			{typ: reflect.TypeFor[Velocity](), name: "Velocity"},
			{typ: reflect.TypeFor[Position](), name: "Position"},
		})
		if ids[reflect.TypeFor[Position]()] != 0 || ids[reflect.TypeFor[Velocity]()] != 1 {
			t.Errorf("expected Position=0 Velocity=1, got %v", ids)
		}
	})

	t.Run("name ties are deterministic", func(t *testing.T) {
		tied := []registration{
			{typ: reflect.TypeFor[Score](), name: "Same"},
			{typ: reflect.TypeFor[Clock](), name: "Same"},
		}
		a, _ := assignIDs(tied)
		b, _ := assignIDs([]registration{tied[1], tied[0]})
		if a[0].typ != b[0].typ || a[1].typ != b[1].typ {
			t.Error("tied names sorted differently depending on input order")
		}
	})
}

func TestRegistry(t *testing.T) {
	t.Run("Position sorts before Velocity", func(t *testing.T) {
		if ComponentIDOf[Position]() >= ComponentIDOf[Velocity]() {
			t.Errorf("expected Position (%d) < Velocity (%d)", ComponentIDOf[Position](), ComponentIDOf[Velocity]())
		}
	})

	t.Run("ids are dense and named", func(t *testing.T) {
		n := ComponentCount()
		if n < 5 {
			t.Fatalf("expected at least 5 components, got %d", n)
		}
		for id := 0; id < n; id++ {
			typ := ComponentType(ComponentID(id))
			if got := componentTable.mustLookup(typ); got != uint8(id) {
				t.Errorf("type %v: expected id %d, got %d", typ, id, got)
			}
		}
		if got := ComponentName(ComponentIDOf[Health]()); got != "Health" {
			t.Errorf("expected name Health, got %s", got)
		}
		if got := ResourceType(ResourceIDOf[Clock]()); got != reflect.TypeFor[Clock]() {
			t.Errorf("expected Clock type, got %v", got)
		}
	})

	t.Run("duplicate registration is a no-op", func(t *testing.T) {
		count := 0
		for id := 0; id < ComponentCount(); id++ {
			if ComponentType(ComponentID(id)) == reflect.TypeFor[Position]() {
				count++
			}
		}
		if count != 1 {
			t.Errorf("expected Position once, found %d times", count)
		}
	})

	t.Run("concurrent lookups agree", func(t *testing.T) {
		var wg sync.WaitGroup
		ids := make([]ComponentID, 16)
		for i := range ids {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ids[i] = ComponentIDOf[Velocity]()
			}()
		}
		wg.Wait()
		for _, id := range ids {
			if id != ids[0] {
				t.Fatalf("lookups disagree: %v", ids)
			}
		}
	})

	t.Run("unregistered type panics", func(t *testing.T) {
		type unregistered struct{}
		mustPanic(t, func() { ComponentIDOf[unregistered]() })
		mustPanic(t, func() { ResourceIDOf[Position]() })
	})

	t.Run("registration after finalize panics", func(t *testing.T) {
		type late struct{}
		Finalize()
		mustPanic(t, func() { RegisterComponent[late]() })
		mustPanic(t, func() { RegisterResourceNamed[late]("late") })
	})
}
