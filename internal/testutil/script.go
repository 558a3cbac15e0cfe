package testutil

import (
	"errors"
	"fmt"
	"sync"

	"github.com/wdshin/Concuerror/internal/engine"
	"github.com/wdshin/Concuerror/internal/lid"
	"github.com/wdshin/Concuerror/internal/schedule"
)

// ErrDiverged is returned by a ScriptTarget run whose replay path names a
// process that cannot run.
var ErrDiverged = errors.New("testutil: replay diverged")

// Step is one scheduling point of a scripted process. Every step is always
// enabled.
type Step struct {
	// Label names the step in traces.
	Label string

	// Spawn, when set, starts the named script as a child of the process.
	Spawn string

	// Fail, when set, makes the run fault with this kind when the step runs.
	Fail engine.ErrorKind
}

// ScriptTarget is a synthetic engine.Target driven without goroutines.
//
// Processes are named scripts; Root runs first. Each step is one decision
// point, so the set of schedules is exactly the set of interleavings of the
// scripts' steps. Schedules records the complete path of every run, which
// lets tests compare what the engine explored against an enumeration.
type ScriptTarget struct {
	TargetName string
	Root       string
	Scripts    map[string][]Step

	mu        sync.Mutex
	next      lid.Handle
	schedules []schedule.Path
}

// Name implements engine.Target.
func (s *ScriptTarget) Name() string {
	if s.TargetName == "" {
		return "script"
	}
	return s.TargetName
}

// Spawn implements engine.Target.
func (s *ScriptTarget) Spawn(reg *lid.Registry) (engine.Execution, lid.Handle, error) {
	if _, ok := s.Scripts[s.Root]; !ok {
		return nil, 0, fmt.Errorf("unknown root script %q", s.Root)
	}
	h := s.handle()
	return &scriptRun{target: s, reg: reg, root: h}, h, nil
}

// Schedules returns the complete path of every run so far.
func (s *ScriptTarget) Schedules() []schedule.Path {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schedule.Path, len(s.schedules))
	copy(out, s.schedules)
	return out
}

// Reset forgets recorded schedules.
func (s *ScriptTarget) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules = nil
}

func (s *ScriptTarget) handle() lid.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next
}

func (s *ScriptTarget) record(p schedule.Path) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules = append(s.schedules, p)
}

type scriptProc struct {
	script string
	pc     int
}

type scriptRun struct {
	target *ScriptTarget
	reg    *lid.Registry
	root   lid.Handle
}

// Run implements engine.Execution.
func (r *scriptRun) Run(policy engine.Policy, ec *engine.Context, replay schedule.Path) (*engine.Fault, error) {
	rootLID, err := r.reg.LID(r.root)
	if err != nil {
		return nil, fmt.Errorf("root not registered: %w", err)
	}
	defer func() { _ = r.reg.Cleanup(rootLID) }()

	procs := map[lid.LID]*scriptProc{rootLID: {script: r.target.Root}}

	for {
		ec.Active.Clear()
		ec.Blocked.Clear()
		for l, p := range procs {
			if p.pc < len(r.target.Scripts[p.script]) {
				ec.Active.Add(l)
			}
		}
		if ec.Active.Len() == 0 {
			r.target.record(ec.Path)
			return nil, nil
		}

		var chosen lid.LID
		if i := ec.Path.Len(); i < replay.Len() {
			chosen = replay.At(i)
			if !ec.Active.Has(chosen) {
				return nil, fmt.Errorf("%w: decision %d is %s, active %v", ErrDiverged, i, chosen, ec.Active.Sorted())
			}
		} else {
			chosen, err = policy(ec)
			if err != nil {
				return nil, err
			}
		}

		p := procs[chosen]
		step := r.target.Scripts[p.script][p.pc]
		p.pc++
		ec.Decide(chosen, step.Label)

		if step.Spawn != "" {
			child, err := r.reg.New(r.target.handle(), chosen)
			if err != nil {
				return nil, fmt.Errorf("spawn %s: %w", step.Spawn, err)
			}
			procs[child] = &scriptProc{script: step.Spawn}
		}
		if step.Fail != "" {
			r.target.record(ec.Path)
			return engine.NewFault(ec, step.Fail, step.Label), nil
		}
	}
}
