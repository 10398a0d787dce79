// Package set contains a minimal generic set.
package set

// Set is a set of comparable values.
type Set[T comparable] map[T]struct{}

// New creates an empty set, optionally filled with values.
func New[T comparable](values ...T) Set[T] {
	s := make(Set[T], len(values))
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add adds a value to the set.
func (s Set[T]) Add(value T) {
	s[value] = struct{}{}
}

// Contains checks if a value exists in the set.
func (s Set[T]) Contains(value T) bool {
	_, exists := s[value]
	return exists
}

// Remove removes a value from the set.
func (s Set[T]) Remove(value T) {
	delete(s, value)
}

// Size returns the number of elements in the set.
func (s Set[T]) Size() int {
	return len(s)
}

// Intersection returns a new set containing only elements present in both sets.
func (s Set[T]) Intersection(other Set[T]) Set[T] {
	result := New[T]()
	for value := range s {
		if other.Contains(value) {
			result.Add(value)
		}
	}
	return result
}
