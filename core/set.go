package core

import "iter"

// Set is an insertion-ordered collection of namespaced metadata entries.
type Set struct {
	keys   []string
	values map[string]Value
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{values: make(map[string]Value)}
}

// Add inserts key unless it is already present. It reports whether the
// entry was inserted.
func (s *Set) Add(key string, v Value) bool {
	if _, ok := s.values[key]; ok {
		return false
	}
	s.keys = append(s.keys, key)
	s.values[key] = v
	return true
}

// Put inserts or replaces key, keeping its original position.
func (s *Set) Put(key string, v Value) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = v
}

// Get returns the value stored under key.
func (s *Set) Get(key string) (Value, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Len returns the number of entries.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Keys returns the keys in insertion order.
func (s *Set) Keys() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.keys...)
}

// All iterates over the entries in insertion order.
func (s *Set) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if s == nil {
			return
		}
		for _, k := range s.keys {
			if !yield(k, s.values[k]) {
				return
			}
		}
	}
}

// Merge adds every entry of o that is not already present and returns the
// keys that were added, in order.
func (s *Set) Merge(o *Set) []string {
	var added []string
	for k, v := range o.All() {
		if s.Add(k, v) {
			added = append(added, k)
		}
	}
	return added
}
