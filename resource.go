package peano

// InsertResource stores res as the world's singleton of type T.
// An existing resource of the same type is replaced and returned.
// Inserting nil removes the resource.
func InsertResource[T any](w *World, res *T) *T {
	id := ResourceIDOf[T]()
	old, _ := w.resources[id].(*T)
	if res == nil {
		w.resources[id] = nil
	} else {
		w.resources[id] = res
	}
	return old
}

// Resource returns the world's singleton of type T, or nil if none was inserted.
func Resource[T any](w *World) *T {
	res, _ := w.resources[ResourceIDOf[T]()].(*T)
	return res
}

// RemoveResource removes and returns the singleton of type T.
func RemoveResource[T any](w *World) *T {
	id := ResourceIDOf[T]()
	old, _ := w.resources[id].(*T)
	w.resources[id] = nil
	return old
}

// HasResource reports whether a singleton of type T is present.
func HasResource[T any](w *World) bool {
	return w.resources[ResourceIDOf[T]()] != nil
}

// ResourceByID returns the raw resource slot for id, nil if empty.
func (w *World) ResourceByID(id ResourceID) any {
	return w.resources[id]
}
