// Package frontier holds the pending schedules of an exploration session.
//
// The store is double-buffered. Paths recorded while the current generation
// is being explored go into the next generation; Swap promotes next to
// current once current is exhausted. Each generation corresponds to one more
// preemption than the previous one.
//
// A path is queued at most once per session: Save ignores paths that are
// pending in either generation or were explored earlier.
package frontier

import (
	"slices"
	"sync"

	"github.com/wdshin/Concuerror/internal/schedule"
)

// Store is the double-buffered frontier.
//
// Thread-safety: all methods are safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	current []schedule.Path // sorted ascending; LoadOne pops the front
	next    map[string]schedule.Path
	seen    map[string]struct{}
}

// New creates a store whose current generation holds seed.
func New(seed schedule.Path) *Store {
	return &Store{
		current: []schedule.Path{seed},
		next:    make(map[string]schedule.Path),
		seen:    map[string]struct{}{seed.Key(): {}},
	}
}

// LoadOne removes and returns the smallest path of the current generation.
// ok is false when the current generation is empty.
func (s *Store) LoadOne() (p schedule.Path, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.current) == 0 {
		return schedule.Path{}, false
	}
	p = s.current[0]
	s.current[0] = schedule.Path{}
	s.current = s.current[1:]
	if len(s.current) == 0 {
		s.current = nil
	}
	return p, true
}

// PeekAny returns the path LoadOne would return, without removing it.
func (s *Store) PeekAny() (schedule.Path, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.current) == 0 {
		return schedule.Path{}, false
	}
	return s.current[0], true
}

// Save records p in the next generation. It returns false, and changes
// nothing, if p was already queued or explored in this session.
func (s *Store) Save(p schedule.Path) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := p.Key()
	if _, dup := s.seen[key]; dup {
		return false
	}
	s.seen[key] = struct{}{}
	s.next[key] = p
	return true
}

// Swap promotes the next generation to current and resets next. Entries
// left in current are kept ahead of the promoted ones.
func (s *Store) Swap() {
	s.mu.Lock()
	defer s.mu.Unlock()

	promoted := make([]schedule.Path, 0, len(s.next))
	for _, p := range s.next {
		promoted = append(promoted, p)
	}
	slices.SortFunc(promoted, schedule.Compare)

	s.current = append(s.current, promoted...)
	s.next = make(map[string]schedule.Path)
}

// Len returns the sizes of the current and next generations.
func (s *Store) Len() (current, next int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.current), len(s.next)
}

// Pending returns the total number of queued paths.
func (s *Store) Pending() int {
	c, n := s.Len()
	return c + n
}
