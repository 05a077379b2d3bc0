package optimistic

import "sync"

// Degroup splits fetched rows that embed a child collection into flat parent
// records plus a lookup map from parent id to children. strip must remove the
// embedded children from the row and return them; parentID extracts the row's
// identifier. Parents without children get no map entry.
//
// The remote service nests children to save round-trips; client state keeps
// parents and children independently addressable, so the split happens once
// per fetch, before rows reach a collection.
func Degroup[P, C any](rows []P, strip func(*P) []C, parentID func(P) string) ([]P, map[string][]C) {
	parents := make([]P, 0, len(rows))
	children := make(map[string][]C)
	for _, row := range rows {
		kids := strip(&row)
		if len(kids) > 0 {
			children[parentID(row)] = kids
		}
		parents = append(parents, row)
	}
	return parents, children
}

// Regroup reassembles nested rows from a flat parent collection and a child
// lookup map; attach stores the children back on the row. Degroup followed by
// Regroup reproduces the original rows.
func Regroup[P, C any](parents []P, children map[string][]C, attach func(*P, []C), parentID func(P) string) []P {
	rows := make([]P, 0, len(parents))
	for _, p := range parents {
		if kids, ok := children[parentID(p)]; ok {
			attach(&p, kids)
		}
		rows = append(rows, p)
	}
	return rows
}

// Relations is the mutable child lookup map owned by a binding. It is rebuilt
// wholesale on every full fetch and may be appended to locally when a child
// is optimistically created. Safe for concurrent use.
type Relations[C any] struct {
	mu       sync.RWMutex
	byParent map[string][]C
}

func NewRelations[C any]() *Relations[C] {
	return &Relations[C]{byParent: make(map[string][]C)}
}

// Rebuild replaces the entire map, used when the owning collection is
// refetched. The map is never incrementally patched from fetch results.
func (r *Relations[C]) Rebuild(byParent map[string][]C) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byParent = make(map[string][]C, len(byParent))
	for k, v := range byParent {
		r.byParent[k] = append([]C(nil), v...)
	}
}

// Get returns a copy of the children recorded for the parent.
func (r *Relations[C]) Get(parentID string) []C {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kids, ok := r.byParent[parentID]
	if !ok {
		return nil
	}
	return append([]C(nil), kids...)
}

// Append adds an optimistically created child under the parent.
func (r *Relations[C]) Append(parentID string, child C) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byParent[parentID] = append(r.byParent[parentID], child)
}

// Swap replaces the first child under parentID matched by match, used to
// confirm an optimistic child with its canonical record.
func (r *Relations[C]) Swap(parentID string, match func(C) bool, child C) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.byParent[parentID] {
		if match(c) {
			r.byParent[parentID][i] = child
			return true
		}
	}
	return false
}

// Patch transforms the first child under parentID matched by match, holding
// the lock across lookup and replacement so the record cannot vanish between
// the two. It reports whether a child matched.
func (r *Relations[C]) Patch(parentID string, match func(C) bool, patch func(C) C) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.byParent[parentID] {
		if match(c) {
			r.byParent[parentID][i] = patch(c)
			return true
		}
	}
	return false
}

// Remove deletes the first child under parentID matched by match, used to
// roll back an optimistic child create.
func (r *Relations[C]) Remove(parentID string, match func(C) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	kids := r.byParent[parentID]
	for i, c := range kids {
		if match(c) {
			r.byParent[parentID] = append(kids[:i], kids[i+1:]...)
			if len(r.byParent[parentID]) == 0 {
				delete(r.byParent, parentID)
			}
			return true
		}
	}
	return false
}

// Replace installs children for one parent, used when a single entity's
// dependent relation is refreshed after a compound procedure.
func (r *Relations[C]) Replace(parentID string, kids []C) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(kids) == 0 {
		delete(r.byParent, parentID)
		return
	}
	r.byParent[parentID] = append([]C(nil), kids...)
}
