package lid

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Handle is the opaque runtime identity of a target process. It is assigned
// by the driver and is not stable across runs.
type Handle uint64

// Registry errors. Misuse errors (ErrAlreadyStarted, ErrNotStarted) are
// programming errors; the explorer aborts the session when it sees them.
var (
	ErrNotFound       = errors.New("lid: not found")
	ErrAlreadyStarted = errors.New("lid: registry already started")
	ErrNotStarted     = errors.New("lid: registry not started")
	ErrHandleExists   = errors.New("lid: handle already registered")
)

// entry is one registered process.
type entry struct {
	handle   Handle
	parent   LID
	seq      int64 // creation order within the run
	children []LID // direct children, in spawn order
	spawned  int   // children ever spawned; survives child cleanup
}

// Registry is the run-scoped bidirectional map between runtime handles and
// LIDs, plus the parent links between LIDs.
//
// A Registry is owned by the exploration loop: Start at the beginning of a
// run, Stop at its end. It must not be reused across runs without a
// Stop/Start cycle.
//
// Thread-safety: all methods are safe for concurrent use. Target processes
// register children and look up identities from their own goroutines.
type Registry struct {
	mu       sync.RWMutex
	started  bool
	clock    clock
	roots    int
	byLID    map[LID]*entry
	byHandle map[Handle]LID
}

// NewRegistry creates a stopped registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Start allocates empty tables for a new run.
// Returns ErrAlreadyStarted if the registry is already running.
func (r *Registry) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return ErrAlreadyStarted
	}
	r.started = true
	r.roots = 0
	r.clock.reset()
	r.byLID = make(map[LID]*entry)
	r.byHandle = make(map[Handle]LID)
	return nil
}

// Stop discards every entry. Lookups after Stop return ErrNotFound.
// Stopping a stopped registry is a no-op.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.started = false
	r.byLID = nil
	r.byHandle = nil
}

// Started reports whether the registry is between Start and Stop.
func (r *Registry) Started() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.started
}

// New registers handle h with a fresh LID. Pass None as parent for a root
// process; otherwise the LID is the parent's next child.
func (r *Registry) New(h Handle, parent LID) (LID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return None, ErrNotStarted
	}
	if existing, ok := r.byHandle[h]; ok {
		return None, fmt.Errorf("%w: handle %d is %s", ErrHandleExists, h, existing)
	}

	var l LID
	if parent == None {
		r.roots++
		l = Root(r.roots)
	} else {
		p, ok := r.byLID[parent]
		if !ok {
			return None, fmt.Errorf("parent %s: %w", parent, ErrNotFound)
		}
		p.spawned++
		l = parent.Child(p.spawned)
		p.children = append(p.children, l)
	}

	r.byLID[l] = &entry{
		handle: h,
		parent: parent,
		seq:    r.clock.next(),
	}
	r.byHandle[h] = l
	return l, nil
}

// Handle returns the handle registered for l.
func (r *Registry) Handle(l LID) (Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byLID[l]
	if !ok {
		return 0, ErrNotFound
	}
	return e.handle, nil
}

// LID returns the LID registered for h.
func (r *Registry) LID(h Handle) (LID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.byHandle[h]
	if !ok {
		return None, ErrNotFound
	}
	return l, nil
}

// Parent returns the parent of l, or None for a root process.
func (r *Registry) Parent(l LID) (LID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byLID[l]
	if !ok {
		return None, ErrNotFound
	}
	return e.parent, nil
}

// Len returns the number of registered processes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byLID)
}

// Cleanup removes l and, transitively, every descendant reachable through
// parent links.
func (r *Registry) Cleanup(l LID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	root, ok := r.byLID[l]
	if !ok {
		return ErrNotFound
	}

	// Detach from the parent so the parent's child list stays accurate.
	if p, ok := r.byLID[root.parent]; ok {
		p.children = slices.DeleteFunc(p.children, func(c LID) bool { return c == l })
	}

	pending := []LID{l}
	for len(pending) > 0 {
		cur := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		e, ok := r.byLID[cur]
		if !ok {
			continue
		}
		pending = append(pending, e.children...)
		delete(r.byHandle, e.handle)
		delete(r.byLID, cur)
	}
	return nil
}

// snapshot returns the registered handles in creation order, oldest first.
func (r *Registry) snapshot() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*entry, 0, len(r.byLID))
	for _, e := range r.byLID {
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b *entry) int {
		return cmp.Compare(a.seq, b.seq)
	})

	handles := make([]Handle, len(entries))
	for i, e := range entries {
		handles[i] = e.handle
	}
	return handles
}

// FoldHandles folds fn over every registered handle in creation order, so
// the accumulated result is most recently created first: registering A then
// B and folding with a prepending combinator yields [B, A].
//
// fn runs without the registry lock held, so it may call back into r.
func FoldHandles[R any](r *Registry, fn func(h Handle, acc R) R, seed R) R {
	acc := seed
	for _, h := range r.snapshot() {
		acc = fn(h, acc)
	}
	return acc
}
