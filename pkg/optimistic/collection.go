package optimistic

import "sync"

// Collection is an ordered, identity-addressable set of records with exactly
// one in-memory representation per identifier. It is safe for concurrent use.
type Collection[T any] struct {
	mu    sync.RWMutex
	items []T
	id    func(T) string
}

// NewCollection creates an empty collection keyed by the given identity
// function.
func NewCollection[T any](id func(T) string) *Collection[T] {
	return &Collection[T]{id: id}
}

// Replace swaps the entire contents, used when a list fetch settles.
func (c *Collection[T]) Replace(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items[:0:0], items...)
}

// Items returns a copy of the current contents in order.
func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]T(nil), c.items...)
}

// Len returns the number of records.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Get returns the record with the given identifier.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, it := range c.items {
		if c.id(it) == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Insert adds a record at the head or tail per the entity's convention.
func (c *Collection[T]) Insert(item T, prepend bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prepend {
		c.items = append([]T{item}, c.items...)
		return
	}
	c.items = append(c.items, item)
}

// InsertAt restores a record at its captured index, clamping to the current
// bounds when concurrent mutations moved the tail.
func (c *Collection[T]) InsertAt(index int, item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 {
		index = 0
	}
	if index > len(c.items) {
		index = len(c.items)
	}
	c.items = append(c.items[:index], append([]T{item}, c.items[index:]...)...)
}

// Swap replaces the record currently held under id with item, preserving
// position. The replacement may carry a different identifier, which is how a
// temporary record becomes canonical. It reports whether id was present.
func (c *Collection[T]) Swap(id string, item T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, it := range c.items {
		if c.id(it) == id {
			c.items[i] = item
			return true
		}
	}
	return false
}

// Remove deletes the record with the given identifier and returns it along
// with the index it occupied.
func (c *Collection[T]) Remove(id string) (T, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, it := range c.items {
		if c.id(it) == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return it, i, true
		}
	}
	var zero T
	return zero, -1, false
}
