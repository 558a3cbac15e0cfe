// Package ticket records erroneous interleavings found during exploration.
//
// A Ticket pairs the error a run produced with the schedule that reproduces
// it. Tickets are never deduplicated: two schedules that trigger the same
// bug are two tickets.
package ticket

import (
	"cmp"
	"slices"

	"github.com/wdshin/Concuerror/internal/ir"
	"github.com/wdshin/Concuerror/internal/schedule"
)

// Event is one scheduling decision of a detailed trace.
type Event struct {
	Step   int    `json:"step"`
	LID    string `json:"lid"`
	Action string `json:"action"`
}

// Ticket is an immutable error report.
type Ticket struct {
	Target string        `json:"target"`
	Kind   string        `json:"kind"`
	Detail string        `json:"detail"`
	Path   schedule.Path `json:"path"`
	Round  int           `json:"round"` // preemption round that found it
	Trace  []Event       `json:"trace,omitempty"`
}

// New creates a ticket for a failure of kind on path.
func New(target, kind, detail string, path schedule.Path) Ticket {
	return Ticket{
		Target: target,
		Kind:   kind,
		Detail: detail,
		Path:   path,
	}
}

// WithTrace returns a copy of t carrying trace.
func (t Ticket) WithTrace(trace []Event) Ticket {
	t.Trace = slices.Clone(trace)
	return t
}

// WithRound returns a copy of t tagged with the round that found it.
func (t Ticket) WithRound(round int) Ticket {
	t.Round = round
	return t
}

// ID returns the content-addressed identity of the ticket. Round and trace
// are not part of the identity; both follow from the path.
func (t Ticket) ID() string {
	return ir.MustTicketID(t.Target, t.Kind, t.Detail, t.Path.Strings())
}

// Compare orders tickets by path, then kind, then detail.
func Compare(a, b Ticket) int {
	if c := schedule.Compare(a.Path, b.Path); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	return cmp.Compare(a.Detail, b.Detail)
}

// Sort returns a new slice holding ts in Compare order.
func Sort(ts []Ticket) []Ticket {
	out := slices.Clone(ts)
	slices.SortStableFunc(out, Compare)
	return out
}
