package peano

// Attachable is implemented by components that need initialization logic
// when attached to an entity.
type Attachable interface {
	Attach(e *Entity)
}

// Detachable is implemented by components that need cleanup logic
// when removed or replaced, or when their entity is despawned.
type Detachable interface {
	Detach(e *Entity)
}

// Add attaches a component to the entity.
// It fails without touching the entity if a component of this type is
// already present; use Set to replace.
func Add[T any](e *Entity, component *T) bool {
	if e == nil || component == nil {
		return false
	}

	id := ComponentIDOf[T]()
	if e.components[id] != nil {
		return false
	}
	e.replace(id, component)
	return true
}

// Set attaches a component, replacing any existing one of the same type.
// A nil component empties the slot.
func Set[T any](e *Entity, component *T) {
	if e == nil {
		return
	}

	id := ComponentIDOf[T]()
	if component == nil {
		e.replace(id, nil)
		return
	}
	e.replace(id, component)
}

// Get retrieves a component from the entity for reading.
// Returns nil if the component is not present.
func Get[T any](e *Entity) *T {
	if e == nil {
		return nil
	}

	c, _ := e.components[ComponentIDOf[T]()].(*T)
	return c
}

// GetMut retrieves a component from the entity for writing.
// It is Get under another name; the distinction matters to the access
// validator when called through a Context (see Mut).
func GetMut[T any](e *Entity) *T {
	return Get[T](e)
}

// Remove detaches a component and returns it.
// Returns nil if the component was not present.
func Remove[T any](e *Entity) *T {
	if e == nil {
		return nil
	}

	id := ComponentIDOf[T]()
	if e.components[id] == nil {
		return nil
	}
	old, _ := e.replace(id, nil).(*T)
	return old
}

// Has checks if a component type is present on the entity.
func Has[T any](e *Entity) bool {
	if e == nil {
		return false
	}
	return e.components[ComponentIDOf[T]()] != nil
}
