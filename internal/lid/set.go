package lid

// Set is a set of LIDs.
//
// The zero value is not usable; create sets with NewSet.
type Set map[LID]struct{}

// NewSet returns a set holding the given LIDs.
func NewSet(lids ...LID) Set {
	s := make(Set, len(lids))
	for _, l := range lids {
		s[l] = struct{}{}
	}
	return s
}

// Add inserts l.
func (s Set) Add(l LID) {
	s[l] = struct{}{}
}

// Remove deletes l. Removing an absent LID is a no-op.
func (s Set) Remove(l LID) {
	delete(s, l)
}

// Has reports whether l is in the set.
func (s Set) Has(l LID) bool {
	_, ok := s[l]
	return ok
}

// Len returns the number of elements.
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the elements in ascending LID order.
func (s Set) Sorted() []LID {
	out := make([]LID, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	Sort(out)
	return out
}

// Min returns the smallest element, or None if the set is empty.
func (s Set) Min() LID {
	best := None
	for l := range s {
		if best == None || Less(l, best) {
			best = l
		}
	}
	return best
}

// Clear removes every element.
func (s Set) Clear() {
	clear(s)
}
