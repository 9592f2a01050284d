package document

// Entity is anything addressable by a stable ID.
type Entity interface {
	ID() ID
}

// Entities is an insertion-ordered collection of child entities keyed by ID.
// The zero value is ready to use.
type Entities[T Entity] struct {
	order []ID
	items map[ID]T
}

// Add stores item and reports whether it was not already present.
func (e *Entities[T]) Add(item T) bool {
	id := item.ID()
	if e.items == nil {
		e.items = make(map[ID]T)
	}
	if _, exists := e.items[id]; exists {
		return false
	}
	e.items[id] = item
	e.order = append(e.order, id)
	return true
}

// Remove drops the entity with the given id and returns it.
func (e *Entities[T]) Remove(id ID) (T, bool) {
	item, ok := e.items[id]
	if !ok {
		return item, false
	}
	delete(e.items, id)
	for index, candidate := range e.order {
		if candidate == id {
			e.order = append(e.order[:index], e.order[index+1:]...)
			break
		}
	}
	return item, true
}

func (e *Entities[T]) Get(id ID) (T, bool) {
	item, ok := e.items[id]
	return item, ok
}

func (e *Entities[T]) Len() int {
	return len(e.order)
}

// All returns a snapshot in insertion order; mutating the collection afterwards does not affect it.
func (e *Entities[T]) All() []T {
	items := make([]T, 0, len(e.order))
	for _, id := range e.order {
		items = append(items, e.items[id])
	}
	return items
}
