package peano

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// Access describes what a system reads and writes.
// The scheduler uses it for conflict detection and parallel scheduling;
// the debug validator uses it to flag undeclared accesses.
type Access struct {
	Reads     Bitmask
	Writes    Bitmask
	ResReads  Bitmask
	ResWrites Bitmask
	MapReads  []reflect.Type
	MapWrites []reflect.Type

	// exclusive systems conflict with every other system.
	exclusive bool
}

// NewAccess returns an empty footprint.
func NewAccess() *Access {
	return &Access{}
}

// Read declares read access to component types.
func (a *Access) Read(ids ...ComponentID) *Access {
	for _, id := range ids {
		a.Reads.Set(uint8(id))
	}
	return a
}

// Write declares write access to component types. Adding and removing
// components of a type counts as writing it.
func (a *Access) Write(ids ...ComponentID) *Access {
	for _, id := range ids {
		a.Writes.Set(uint8(id))
	}
	return a
}

// ReadResource declares read access to resource types.
func (a *Access) ReadResource(ids ...ResourceID) *Access {
	for _, id := range ids {
		a.ResReads.Set(uint8(id))
	}
	return a
}

// WriteResource declares write access to resource types.
func (a *Access) WriteResource(ids ...ResourceID) *Access {
	for _, id := range ids {
		a.ResWrites.Set(uint8(id))
	}
	return a
}

// ReadMapping declares query access to mappings, keyed by MappingKey.
func (a *Access) ReadMapping(keys ...reflect.Type) *Access {
	for _, k := range keys {
		if !slices.Contains(a.MapReads, k) {
			a.MapReads = append(a.MapReads, k)
		}
	}
	return a
}

// WriteMapping declares structural access to mappings, keyed by MappingKey.
func (a *Access) WriteMapping(keys ...reflect.Type) *Access {
	for _, k := range keys {
		if !slices.Contains(a.MapWrites, k) {
			a.MapWrites = append(a.MapWrites, k)
		}
	}
	return a
}

// Exclusive marks the system as touching the whole world. It never shares a
// wave with another system. Use it for systems that despawn entities.
func (a *Access) Exclusive() *Access {
	a.exclusive = true
	return a
}

// IsExclusive reports whether Exclusive was declared.
func (a *Access) IsExclusive() bool {
	return a.exclusive
}

// Merge adds every declaration of other to a.
func (a *Access) Merge(other *Access) *Access {
	if other == nil {
		return a
	}
	a.Reads = a.Reads.Or(other.Reads)
	a.Writes = a.Writes.Or(other.Writes)
	a.ResReads = a.ResReads.Or(other.ResReads)
	a.ResWrites = a.ResWrites.Or(other.ResWrites)
	a.ReadMapping(other.MapReads...)
	a.WriteMapping(other.MapWrites...)
	a.exclusive = a.exclusive || other.exclusive
	return a
}

// Conflicts returns true if this access pattern conflicts with another:
// one side writes something the other side reads or writes.
func (a *Access) Conflicts(other *Access) bool {
	if a.exclusive || other.exclusive {
		return true
	}

	// Components
	if a.Writes.ContainsAny(other.Reads.Or(other.Writes)) || other.Writes.ContainsAny(a.Reads) {
		return true
	}

	// Resources
	if a.ResWrites.ContainsAny(other.ResReads.Or(other.ResWrites)) || other.ResWrites.ContainsAny(a.ResReads) {
		return true
	}

	// Mappings
	for _, w := range a.MapWrites {
		if slices.Contains(other.MapWrites, w) || slices.Contains(other.MapReads, w) {
			return true
		}
	}
	for _, r := range a.MapReads {
		if slices.Contains(other.MapWrites, r) {
			return true
		}
	}

	return false
}

// allowsComponent reports whether the footprint covers a component access.
func (a *Access) allowsComponent(id ComponentID, write bool) bool {
	if a.exclusive || a.Writes.Has(uint8(id)) {
		return true
	}
	return !write && a.Reads.Has(uint8(id))
}

// allowsResource reports whether the footprint covers a resource access.
func (a *Access) allowsResource(id ResourceID, write bool) bool {
	if a.exclusive || a.ResWrites.Has(uint8(id)) {
		return true
	}
	return !write && a.ResReads.Has(uint8(id))
}

// allowsMapping reports whether the footprint covers a mapping access.
func (a *Access) allowsMapping(key reflect.Type, write bool) bool {
	if a.exclusive || slices.Contains(a.MapWrites, key) {
		return true
	}
	return !write && slices.Contains(a.MapReads, key)
}

// String returns a compact description for logs.
func (a *Access) String() string {
	if a.exclusive {
		return "exclusive"
	}

	var parts []string
	add := func(label string, names []string) {
		if len(names) > 0 {
			parts = append(parts, label+"="+strings.Join(names, ","))
		}
	}
	components := func(m Bitmask) []string {
		var names []string
		for _, id := range m.IDs() {
			names = append(names, ComponentName(ComponentID(id)))
		}
		return names
	}
	resources := func(m Bitmask) []string {
		var names []string
		for _, id := range m.IDs() {
			names = append(names, ResourceName(ResourceID(id)))
		}
		return names
	}
	mappings := func(keys []reflect.Type) []string {
		var names []string
		for _, k := range keys {
			names = append(names, k.String())
		}
		return names
	}

	add("reads", components(a.Reads))
	add("writes", components(a.Writes))
	add("res_reads", resources(a.ResReads))
	add("res_writes", resources(a.ResWrites))
	add("map_reads", mappings(a.MapReads))
	add("map_writes", mappings(a.MapWrites))
	return fmt.Sprintf("{%s}", strings.Join(parts, " "))
}
