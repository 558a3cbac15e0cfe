// Package lid assigns logical identifiers to the processes of a target
// program.
//
// Runtime handles are not stable across runs: the same process gets a
// different handle every time a schedule is replayed. A logical identifier
// (LID) is derived from the spawn tree instead. The root is "P1" and the n-th
// child spawned by process X is "X.n". Each process spawns its children
// sequentially, so a process gets the same LID in every run that reaches it,
// whatever global order the processes were created in.
//
// LIDs are totally ordered component-wise (P1 < P1.1 < P1.2 < P1.10 < P2).
// The explorer uses this order as its deterministic tie-break.
package lid

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// LID is a logical process identifier.
type LID string

// None is the parent of root processes.
const None LID = ""

// Root returns the LID of the n-th root process (1-based).
func Root(n int) LID {
	return LID("P" + strconv.Itoa(n))
}

// Child returns the LID of the n-th child (1-based) spawned by l.
func (l LID) Child(n int) LID {
	return LID(string(l) + "." + strconv.Itoa(n))
}

// IsNone reports whether l is the "no process" value.
func (l LID) IsNone() bool {
	return l == None
}

// String implements fmt.Stringer.
func (l LID) String() string {
	if l == None {
		return "<none>"
	}
	return string(l)
}

// components splits l into its numeric components. Malformed LIDs yield a
// nil slice and sort before every well-formed one.
func (l LID) components() []int {
	s, ok := strings.CutPrefix(string(l), "P")
	if !ok || s == "" {
		return nil
	}
	parts := strings.Split(s, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return nil
		}
		out[i] = n
	}
	return out
}

// Valid reports whether l is a well-formed LID.
func (l LID) Valid() bool {
	return l.components() != nil
}

// Parse validates s and returns it as a LID.
func Parse(s string) (LID, error) {
	l := LID(strings.TrimSpace(s))
	if !l.Valid() {
		return None, fmt.Errorf("invalid LID %q", s)
	}
	return l, nil
}

// Compare orders LIDs component-wise numerically; an ancestor sorts before
// its descendants. It returns -1, 0 or +1.
func Compare(a, b LID) int {
	if a == b {
		return 0
	}
	ca, cb := a.components(), b.components()
	for i := 0; i < len(ca) && i < len(cb); i++ {
		if ca[i] != cb[i] {
			if ca[i] < cb[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(ca) < len(cb):
		return -1
	case len(ca) > len(cb):
		return 1
	}
	// Same components, different spelling (e.g. malformed); fall back to bytes.
	return strings.Compare(string(a), string(b))
}

// Less reports whether a sorts before b.
func Less(a, b LID) bool {
	return Compare(a, b) < 0
}

// Increasing sorts LIDs in ascending order.
type Increasing []LID

// SORT INTERFACE IMPLEMENTATION

func (lids Increasing) Len() int {
	return len(lids)
}
func (lids Increasing) Less(i, j int) bool {
	return Less(lids[i], lids[j])
}
func (lids Increasing) Swap(i, j int) {
	lids[i], lids[j] = lids[j], lids[i]
}

// Sort sorts lids in place in ascending order.
func Sort(lids []LID) {
	sort.Sort(Increasing(lids))
}
