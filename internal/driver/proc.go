package driver

import (
	"fmt"
	"runtime"

	"github.com/wdshin/Concuerror/internal/lid"
)

// Mutex is a lock scheduled by the driver. Its state lives in the
// execution, so a Mutex may be shared by every run of a program.
type Mutex struct {
	Name string
}

// Chan is an unbounded mailbox scheduled by the driver. Send never blocks;
// Recv blocks while the mailbox is empty. Like Mutex, its contents live in
// the execution.
type Chan struct {
	Name string
}

func (m *Mutex) label() string {
	if m == nil || m.Name == "" {
		return "mutex"
	}
	return m.Name
}

func (c *Chan) label() string {
	if c == nil || c.Name == "" {
		return "chan"
	}
	return c.Name
}

type opKind int

const (
	opStart opKind = iota
	opSpawn
	opLock
	opUnlock
	opSend
	opRecv
	opYield
)

// request is the operation a process waits to perform.
type request struct {
	op    opKind
	mutex *Mutex
	ch    *Chan
	value any
	fn    func(*Proc)
	label string
}

func (r request) String() string {
	switch r.op {
	case opStart:
		return "start"
	case opSpawn:
		return "spawn"
	case opLock:
		return "lock " + r.mutex.label()
	case opUnlock:
		return "unlock " + r.mutex.label()
	case opSend:
		return "send " + r.ch.label()
	case opRecv:
		return "recv " + r.ch.label()
	case opYield:
		if r.label == "" {
			return "yield"
		}
		return "yield " + r.label
	}
	return fmt.Sprintf("op(%d)", r.op)
}

// Proc is the handle target code uses to reach the driver. Each process of
// the target owns exactly one Proc; a Proc must not be used from another
// goroutine.
type Proc struct {
	x       *execution
	lid     lid.LID
	gate    chan struct{}
	pending request
	result  any
}

// LID returns the logical identifier of the process.
func (p *Proc) LID() lid.LID {
	return p.lid
}

// Go spawns a child process running fn and returns its LID.
func (p *Proc) Go(fn func(*Proc)) lid.LID {
	l, _ := p.call(request{op: opSpawn, fn: fn}).(lid.LID)
	return l
}

// Lock acquires m, blocking while another process holds it. Locking a mutex
// the process already holds blocks forever.
func (p *Proc) Lock(m *Mutex) {
	p.call(request{op: opLock, mutex: m})
}

// Unlock releases m. Unlocking a mutex the process does not hold crashes
// the run.
func (p *Proc) Unlock(m *Mutex) {
	p.call(request{op: opUnlock, mutex: m})
}

// Send appends v to c.
func (p *Proc) Send(c *Chan, v any) {
	p.call(request{op: opSend, ch: c, value: v})
}

// Recv removes and returns the oldest value of c, blocking while c is
// empty.
func (p *Proc) Recv(c *Chan) any {
	return p.call(request{op: opRecv, ch: c})
}

// Yield is a scheduling point without effect. label shows up in traces.
func (p *Proc) Yield(label string) {
	p.call(request{op: opYield, label: label})
}

// Assert fails the run with an assertion fault when cond is false. It is
// not a scheduling point.
func (p *Proc) Assert(cond bool, format string, args ...any) {
	if cond {
		return
	}
	p.x.post(event{proc: p, kind: evAssert, detail: fmt.Sprintf(format, args...)})
	runtime.Goexit()
}

// call posts req and waits until the driver has performed it.
func (p *Proc) call(req request) any {
	p.x.post(event{proc: p, kind: evRequest, req: req})
	p.wait()
	r := p.result
	p.result = nil
	return r
}

// wait blocks on the gate. When the execution is torn down instead, the
// goroutine exits.
func (p *Proc) wait() {
	select {
	case <-p.gate:
	case <-p.x.abort:
		runtime.Goexit()
	}
}
