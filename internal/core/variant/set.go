package variant

// Set is an insertion-ordered string set. Uniqueness is mandatory; order is
// first-insertion order so a run searches variants in a reproducible
// sequence.
type Set struct {
	seen  map[string]struct{}
	items []string
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Add inserts value unless it is already present.
func (s *Set) Add(value string) {
	if _, ok := s.seen[value]; ok {
		return
	}
	s.seen[value] = struct{}{}
	s.items = append(s.items, value)
}

// Contains reports membership.
func (s *Set) Contains(value string) bool {
	_, ok := s.seen[value]
	return ok
}

// Len returns the number of distinct members.
func (s *Set) Len() int {
	return len(s.items)
}

// Values returns the members in insertion order. The slice is owned by the
// set and must not be mutated.
func (s *Set) Values() []string {
	return s.items
}
