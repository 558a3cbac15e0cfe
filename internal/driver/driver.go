// Package driver runs target programs one scheduling decision at a time.
//
// Target code is ordinary Go running on goroutines, but every concurrency
// operation goes through a *Proc: the process posts a request describing the
// operation and blocks on its gate. The driver collects the pending requests
// of all live processes, asks the exploration engine which process runs
// next, performs that process's operation and opens its gate. Exactly one
// target process runs at any time, so an execution is fully determined by
// its sequence of decisions.
//
// A Program is an engine.Target. Each call to Spawn returns a fresh
// execution; the root goroutine is created by Run, so a spawned execution
// that never runs leaks nothing.
//
// Limitations: a process that loops forever without reaching a scheduling
// point hangs the execution. The step limit only bounds the number of
// decisions.
package driver

import (
	"errors"
	"sync/atomic"

	"github.com/wdshin/Concuerror/internal/engine"
	"github.com/wdshin/Concuerror/internal/lid"
)

// DefaultMaxSteps is the default decision budget of one execution.
const DefaultMaxSteps = 10000

// ErrReplayDiverged is returned when a replayed decision names a process
// that cannot run at that point.
var ErrReplayDiverged = errors.New("driver: replay diverged")

// handles hands out process handles. Handles are process-wide so they differ
// between runs of the same schedule, like real runtime identities.
var handles atomic.Uint64

func nextHandle() lid.Handle {
	return lid.Handle(handles.Add(1))
}

// Program is a target program written against the Proc API.
type Program struct {
	name     string
	main     func(*Proc)
	maxSteps int
}

// Option configures a Program.
type Option func(*Program)

// WithMaxSteps bounds the number of decisions of one execution. A run that
// reaches the bound faults with engine.KindStepLimit. n <= 0 keeps
// DefaultMaxSteps.
func WithMaxSteps(n int) Option {
	return func(p *Program) {
		if n > 0 {
			p.maxSteps = n
		}
	}
}

// New creates a Program whose root process runs main.
func New(name string, main func(*Proc), opts ...Option) *Program {
	p := &Program{
		name:     name,
		main:     main,
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements engine.Target.
func (p *Program) Name() string {
	return p.name
}

// Spawn implements engine.Target.
func (p *Program) Spawn(reg *lid.Registry) (engine.Execution, lid.Handle, error) {
	if p.main == nil {
		return nil, 0, errors.New("driver: program has no main function")
	}
	h := nextHandle()
	return newExecution(p, reg, h), h, nil
}
