package engine

import (
	"slices"

	"github.com/wdshin/Concuerror/internal/lid"
	"github.com/wdshin/Concuerror/internal/schedule"
	"github.com/wdshin/Concuerror/internal/ticket"
)

// ErrorKind classifies a fault in the target program.
type ErrorKind string

const (
	// KindCrash is a panic or runtime fault in target code.
	KindCrash ErrorKind = "crash"

	// KindDeadlock means live processes remain but none can run.
	KindDeadlock ErrorKind = "deadlock"

	// KindAssertion is a failed target-specific correctness check.
	KindAssertion ErrorKind = "assertion"

	// KindStepLimit means the run exceeded the driver's decision budget.
	KindStepLimit ErrorKind = "step_limit"
)

// TraceEvent is one scheduling decision of a detailed run.
type TraceEvent = ticket.Event

// Context is the mutable state of one in-progress run.
//
// A Context is owned by exactly one execution. The driver keeps Active and
// Blocked current before every decision and records each decision with
// Decide; the policy only reads it.
type Context struct {
	// Active holds the processes that can run at this decision point.
	Active lid.Set

	// Blocked holds the live processes that cannot run.
	Blocked lid.Set

	// Path is the sequence of decisions made so far, replayed ones included.
	Path schedule.Path

	// Details enables Trace recording.
	Details bool

	// Trace holds one event per decision when Details is set.
	Trace []TraceEvent
}

// NewContext returns the context of a run whose only process is root.
func NewContext(root lid.LID, details bool) *Context {
	return &Context{
		Active:  lid.NewSet(root),
		Blocked: lid.NewSet(),
		Path:    schedule.Empty(),
		Details: details,
	}
}

// Decide appends the decision to run l to the path. When Details is set it
// also records action in the trace.
func (c *Context) Decide(l lid.LID, action string) {
	c.Path = c.Path.Extend(l)
	if c.Details {
		c.Trace = append(c.Trace, TraceEvent{
			Step:   c.Path.Len(),
			LID:    string(l),
			Action: action,
		})
	}
}

// Fault describes an error the driver detected in the target program.
type Fault struct {
	Kind   ErrorKind
	Detail string
	Path   schedule.Path
	Trace  []TraceEvent
}

// NewFault builds a fault at the current state of c.
func NewFault(c *Context, kind ErrorKind, detail string) *Fault {
	return &Fault{
		Kind:   kind,
		Detail: detail,
		Path:   c.Path,
		Trace:  slices.Clone(c.Trace),
	}
}

// Error implements the error interface so a fault can travel as an error
// inside target-facing code.
func (f *Fault) Error() string {
	if f.Detail == "" {
		return string(f.Kind)
	}
	return string(f.Kind) + ": " + f.Detail
}

// Ticket converts the fault into a ticket for target.
func (f *Fault) Ticket(target string) ticket.Ticket {
	t := ticket.New(target, string(f.Kind), f.Detail, f.Path)
	if len(f.Trace) > 0 {
		t = t.WithTrace(f.Trace)
	}
	return t
}
