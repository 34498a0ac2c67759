// Package selection tracks which issues are checked for a bulk action. The
// set is scoped to the currently displayed list.
package selection

import (
	"sort"
	"sync"
)

// Set is a concurrency-safe set of issue IDs.
type Set struct {
	mu        sync.Mutex
	ids       map[int]struct{}
	listeners []func(size int)
}

// New returns a set holding ids.
func New(ids ...int) *Set {
	s := &Set{ids: make(map[int]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// OnChange registers fn to be called with the new size after every change.
func (s *Set) OnChange(fn func(size int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Toggle adds id if absent and removes it if present. It reports whether id
// is selected afterwards.
func (s *Set) Toggle(id int) bool {
	s.mu.Lock()
	_, had := s.ids[id]
	if had {
		delete(s.ids, id)
	} else {
		s.ids[id] = struct{}{}
	}
	s.mu.Unlock()

	s.notify()
	return !had
}

// Has reports whether id is selected.
func (s *Set) Has(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Clear empties the set.
func (s *Set) Clear() {
	s.mu.Lock()
	changed := len(s.ids) > 0
	s.ids = make(map[int]struct{})
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// Len returns the number of selected issues.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Empty reports whether nothing is selected.
func (s *Set) Empty() bool {
	return s.Len() == 0
}

// IDs returns the selected IDs in ascending order.
func (s *Set) IDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.ids)
}

// Retain drops every selected ID not in visible and returns the dropped IDs
// in ascending order. Call it whenever the displayed list is replaced.
func (s *Set) Retain(visible []int) []int {
	keep := make(map[int]struct{}, len(visible))
	for _, id := range visible {
		keep[id] = struct{}{}
	}

	s.mu.Lock()
	dropped := make(map[int]struct{})
	for id := range s.ids {
		if _, ok := keep[id]; !ok {
			dropped[id] = struct{}{}
			delete(s.ids, id)
		}
	}
	s.mu.Unlock()

	if len(dropped) > 0 {
		s.notify()
	}
	return sortedKeys(dropped)
}

func (s *Set) notify() {
	s.mu.Lock()
	size := len(s.ids)
	listeners := append([]func(int){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(size)
	}
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
