package model

import (
	"fmt"

	"github.com/wdshin/Concuerror/internal/driver"
)

// Target validates p and builds a driver program that interprets it.
func (p *Program) Target() (*driver.Program, error) {
	if err := p.Err(); err != nil {
		return nil, err
	}
	var opts []driver.Option
	if p.MaxSteps > 0 {
		opts = append(opts, driver.WithMaxSteps(p.MaxSteps))
	}
	return driver.New(p.Name, func(root *driver.Proc) {
		newWorld(p).run(root, p.Main)
	}, opts...), nil
}

// world is the shared state of one run. Only one process runs at a time,
// and every hand-off goes through the driver, so the maps need no lock.
type world struct {
	prog    *Program
	mutexes map[string]*driver.Mutex
	chans   map[string]*driver.Chan
	vars    map[string]int64
}

func newWorld(p *Program) *world {
	return &world{
		prog:    p,
		mutexes: map[string]*driver.Mutex{},
		chans:   map[string]*driver.Chan{},
		vars:    map[string]int64{},
	}
}

func (w *world) mutex(name string) *driver.Mutex {
	m, ok := w.mutexes[name]
	if !ok {
		m = &driver.Mutex{Name: name}
		w.mutexes[name] = m
	}
	return m
}

func (w *world) mailbox(name string) *driver.Chan {
	c, ok := w.chans[name]
	if !ok {
		c = &driver.Chan{Name: name}
		w.chans[name] = c
	}
	return c
}

// run interprets the steps of process name on proc.
func (w *world) run(proc *driver.Proc, name string) {
	locals := map[string]int64{}
	operand := func(s Step) int64 {
		if s.From == "" {
			return s.Value
		}
		return locals[s.From] + s.Add
	}

	for _, s := range w.prog.Processes[name].Steps {
		switch s.Op {
		case OpLock:
			proc.Lock(w.mutex(s.Name))
		case OpUnlock:
			proc.Unlock(w.mutex(s.Name))
		case OpSpawn:
			child := s.Name
			proc.Go(func(c *driver.Proc) { w.run(c, child) })
		case OpYield:
			proc.Yield(s.Name)
		case OpSend:
			proc.Send(w.mailbox(s.Name), operand(s))
		case OpRecv:
			v, _ := proc.Recv(w.mailbox(s.Name)).(int64)
			locals[s.Into] = v
		case OpRead:
			proc.Yield(s.String())
			locals[s.Into] = w.vars[s.Name]
		case OpWrite:
			proc.Yield(s.String())
			w.vars[s.Name] = operand(s)
		case OpAssert:
			got := w.vars[s.Name]
			proc.Assert(got == *s.Equals, "%s = %d, want %d", s.Name, got, *s.Equals)
		default:
			panic(fmt.Sprintf("unsupported op %q", s.Op))
		}
	}
}
