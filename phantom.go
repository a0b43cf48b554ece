package peano

import (
	"reflect"
)

// Phantom marker types let a system declare its footprint as struct fields
// instead of implementing Footprinter. The fields carry no data.
//
// Usage:
//
//	type Movement struct {
//	    _ peano.Writes[Position]
//	    _ peano.Reads[Velocity]
//	    _ peano.ReadsRes[Clock]
//	    _ peano.After[Input]
//	}
type (
	// Reads declares read access to component T.
	Reads[T any] struct{}

	// Writes declares write access to component T.
	Writes[T any] struct{}

	// ReadsRes declares read access to resource T.
	ReadsRes[T any] struct{}

	// WritesRes declares write access to resource T.
	WritesRes[T any] struct{}

	// ReadsMap declares query access to mapping M.
	ReadsMap[M Mapping] struct{}

	// WritesMap declares structural access to mapping M.
	WritesMap[M Mapping] struct{}

	// After orders the system after every system of type S in the same stage.
	// S may be given as the system struct or a pointer to it.
	After[S any] struct{}
)

// accessMarker is implemented by the footprint phantom types.
type accessMarker interface {
	markAccess(a *Access)
}

func (Reads[T]) markAccess(a *Access)     { a.Read(ComponentIDOf[T]()) }
func (Writes[T]) markAccess(a *Access)    { a.Write(ComponentIDOf[T]()) }
func (ReadsRes[T]) markAccess(a *Access)  { a.ReadResource(ResourceIDOf[T]()) }
func (WritesRes[T]) markAccess(a *Access) { a.WriteResource(ResourceIDOf[T]()) }
func (ReadsMap[M]) markAccess(a *Access)  { a.ReadMapping(MappingKey[M]()) }
func (WritesMap[M]) markAccess(a *Access) { a.WriteMapping(MappingKey[M]()) }

// orderMarker is implemented by After.
type orderMarker interface {
	dependency() reflect.Type
}

func (After[S]) dependency() reflect.Type {
	return derefType(reflect.TypeFor[S]())
}

var (
	accessMarkerType = reflect.TypeFor[accessMarker]()
	orderMarkerType  = reflect.TypeFor[orderMarker]()
)

// inferFootprint collects phantom declarations from a system's struct fields.
// Anonymous struct fields are searched recursively.
func inferFootprint(sys System) (*Access, []reflect.Type) {
	access := NewAccess()
	var deps []reflect.Type
	collectMarkers(derefType(reflect.TypeOf(sys)), access, &deps)
	return access, deps
}

func collectMarkers(t reflect.Type, access *Access, deps *[]reflect.Type) {
	if t.Kind() != reflect.Struct {
		return
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		switch {
		case field.Type.Implements(accessMarkerType):
			reflect.Zero(field.Type).Interface().(accessMarker).markAccess(access)

		case field.Type.Implements(orderMarkerType):
			*deps = append(*deps, reflect.Zero(field.Type).Interface().(orderMarker).dependency())

		case field.Anonymous:
			collectMarkers(derefType(field.Type), access, deps)
		}
	}
}

// derefType strips one level of pointer.
func derefType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}
