// Package schedule holds the schedule path: the sequence of scheduling
// decisions that determines one execution of a target program.
//
// A Path is an immutable value. Every method returns a new Path and never
// aliases the receiver's storage, so paths can be kept in the frontier and
// in tickets while the exploration loop keeps extending others.
package schedule

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wdshin/Concuerror/internal/ir"
	"github.com/wdshin/Concuerror/internal/lid"
)

// Path is an ordered sequence of LIDs. The zero value is the empty path.
type Path struct {
	decisions []lid.LID
}

// Empty returns the empty path.
func Empty() Path {
	return Path{}
}

// Of returns a path holding the given decisions in order.
func Of(decisions ...lid.LID) Path {
	if len(decisions) == 0 {
		return Path{}
	}
	cp := make([]lid.LID, len(decisions))
	copy(cp, decisions)
	return Path{decisions: cp}
}

// IsEmpty reports whether p has no decisions.
func (p Path) IsEmpty() bool {
	return len(p.decisions) == 0
}

// Len returns the number of decisions.
func (p Path) Len() int {
	return len(p.decisions)
}

// At returns the i-th decision. It panics if i is out of range.
func (p Path) At(i int) lid.LID {
	return p.decisions[i]
}

// Decisions returns a copy of the decisions.
func (p Path) Decisions() []lid.LID {
	cp := make([]lid.LID, len(p.decisions))
	copy(cp, p.decisions)
	return cp
}

// Strings returns the decisions as plain strings.
func (p Path) Strings() []string {
	out := make([]string, len(p.decisions))
	for i, l := range p.decisions {
		out[i] = string(l)
	}
	return out
}

// Extend returns p with l appended.
func (p Path) Extend(l lid.LID) Path {
	cp := make([]lid.LID, len(p.decisions)+1)
	copy(cp, p.decisions)
	cp[len(p.decisions)] = l
	return Path{decisions: cp}
}

// Last returns the final decision. ok is false for the empty path.
func (p Path) Last() (l lid.LID, ok bool) {
	if p.IsEmpty() {
		return lid.None, false
	}
	return p.decisions[len(p.decisions)-1], true
}

// TrimLast splits p into its final decision and the remaining prefix.
// ok is false for the empty path.
func (p Path) TrimLast() (last lid.LID, prefix Path, ok bool) {
	if p.IsEmpty() {
		return lid.None, Path{}, false
	}
	n := len(p.decisions) - 1
	return p.decisions[n], Of(p.decisions[:n]...), true
}

// HasPrefix reports whether prefix is a prefix of p.
func (p Path) HasPrefix(prefix Path) bool {
	if prefix.Len() > p.Len() {
		return false
	}
	for i, l := range prefix.decisions {
		if p.decisions[i] != l {
			return false
		}
	}
	return true
}

// Equal reports whether p and q hold the same decisions.
func (p Path) Equal(q Path) bool {
	return p.Len() == q.Len() && p.HasPrefix(q)
}

// Compare orders paths lexicographically by LID order; a proper prefix sorts
// first. It returns -1, 0 or +1.
func Compare(p, q Path) int {
	for i := 0; i < p.Len() && i < q.Len(); i++ {
		if c := lid.Compare(p.decisions[i], q.decisions[i]); c != 0 {
			return c
		}
	}
	switch {
	case p.Len() < q.Len():
		return -1
	case p.Len() > q.Len():
		return 1
	}
	return 0
}

// Key returns a string usable as a map key. Distinct paths have distinct
// keys.
func (p Path) Key() string {
	return p.String()
}

// Hash returns the content-addressed identity of p. It is stable across
// runs and processes, unlike Key.
func (p Path) Hash() string {
	return ir.ScheduleHash(p.Strings())
}

// String renders p as comma-separated LIDs ("P1,P1,P1.1"). The empty path
// renders as the empty string.
func (p Path) String() string {
	return strings.Join(p.Strings(), ",")
}

// Parse reads the text form produced by String.
func Parse(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Path{}, nil
	}
	parts := strings.Split(s, ",")
	decisions := make([]lid.LID, len(parts))
	for i, part := range parts {
		l, err := lid.Parse(part)
		if err != nil {
			return Path{}, fmt.Errorf("decision %d: %w", i, err)
		}
		decisions[i] = l
	}
	return Path{decisions: decisions}, nil
}

// MarshalJSON encodes p as an array of strings.
func (p Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Strings())
}

// UnmarshalJSON decodes an array of LID strings. null decodes to the empty
// path.
func (p *Path) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	decisions := make([]lid.LID, len(raw))
	for i, s := range raw {
		l, err := lid.Parse(s)
		if err != nil {
			return fmt.Errorf("schedule: decision %d: %w", i, err)
		}
		decisions[i] = l
	}
	if len(decisions) == 0 {
		decisions = nil
	}
	p.decisions = decisions
	return nil
}
