package driver

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/wdshin/Concuerror/internal/engine"
	"github.com/wdshin/Concuerror/internal/lid"
	"github.com/wdshin/Concuerror/internal/schedule"
)

type eventKind int

const (
	evRequest eventKind = iota + 1 // the process waits to perform req
	evExit                         // the process returned
	evPanic                        // the process panicked
	evAssert                       // the process failed an assertion
)

// event is what a running process reports back to the driver.
type event struct {
	proc   *Proc
	kind   eventKind
	req    request
	detail string
}

// execution is one run of a Program.
//
// The driver goroutine (the one calling Run) owns every field except events
// and abort, which are shared with the process goroutines.
type execution struct {
	prog *Program
	reg  *lid.Registry
	root lid.Handle

	live   map[lid.LID]*Proc
	owners map[*Mutex]*Proc
	queues map[*Chan][]any

	events chan event
	abort  chan struct{}
	wg     sync.WaitGroup
}

func newExecution(prog *Program, reg *lid.Registry, root lid.Handle) *execution {
	return &execution{
		prog:   prog,
		reg:    reg,
		root:   root,
		live:   make(map[lid.LID]*Proc),
		owners: make(map[*Mutex]*Proc),
		queues: make(map[*Chan][]any),
		events: make(chan event),
		abort:  make(chan struct{}),
	}
}

// Run implements engine.Execution.
func (x *execution) Run(policy engine.Policy, ec *engine.Context, replay schedule.Path) (*engine.Fault, error) {
	rootLID, err := x.reg.LID(x.root)
	if err != nil {
		return nil, fmt.Errorf("driver: root process not registered: %w", err)
	}
	defer x.teardown(rootLID)

	x.launch(x.newProc(rootLID), x.prog.main)

	for {
		x.classify(ec)

		if len(x.live) == 0 {
			return nil, nil
		}
		if ec.Active.Len() == 0 {
			return engine.NewFault(ec, engine.KindDeadlock, x.describeBlocked(ec.Blocked)), nil
		}
		if ec.Path.Len() >= x.prog.maxSteps {
			return engine.NewFault(ec, engine.KindStepLimit,
				fmt.Sprintf("exceeded %d decisions", x.prog.maxSteps)), nil
		}

		chosen, err := x.choose(policy, ec, replay)
		if err != nil {
			return nil, err
		}

		p, ok := x.live[chosen]
		if !ok {
			return nil, fmt.Errorf("driver: chosen process %s is not live", chosen)
		}
		ec.Decide(chosen, p.pending.String())

		if fault, err := x.perform(p, ec); fault != nil || err != nil {
			return fault, err
		}
		if fault, err := x.resume(p, ec); fault != nil || err != nil {
			return fault, err
		}
	}
}

// classify recomputes the active and blocked sets from the pending
// requests of the live processes.
func (x *execution) classify(ec *engine.Context) {
	ec.Active.Clear()
	ec.Blocked.Clear()
	for l, p := range x.live {
		if x.enabled(p) {
			ec.Active.Add(l)
		} else {
			ec.Blocked.Add(l)
		}
	}
}

// choose returns the recorded decision while the replay path lasts, and the
// policy's decision afterwards.
func (x *execution) choose(policy engine.Policy, ec *engine.Context, replay schedule.Path) (lid.LID, error) {
	i := ec.Path.Len()
	if i >= replay.Len() {
		return policy(ec)
	}
	want := replay.At(i)
	if !ec.Active.Has(want) {
		return lid.None, fmt.Errorf("%w: decision %d wants %s, active %v",
			ErrReplayDiverged, i+1, want, ec.Active.Sorted())
	}
	return want, nil
}

func (x *execution) enabled(p *Proc) bool {
	switch p.pending.op {
	case opLock:
		_, held := x.owners[p.pending.mutex]
		return !held
	case opRecv:
		return len(x.queues[p.pending.ch]) > 0
	}
	return true
}

// perform applies the effect of p's pending request.
func (x *execution) perform(p *Proc, ec *engine.Context) (*engine.Fault, error) {
	req := p.pending
	p.pending = request{}

	switch req.op {
	case opSpawn:
		h := nextHandle()
		l, err := x.reg.New(h, p.lid)
		if err != nil {
			return nil, fmt.Errorf("driver: register child of %s: %w", p.lid, err)
		}
		x.launch(x.newProc(l), req.fn)
		p.result = l

	case opLock:
		x.owners[req.mutex] = p

	case opUnlock:
		if x.owners[req.mutex] != p {
			return engine.NewFault(ec, engine.KindCrash,
				fmt.Sprintf("%s unlocked %s which it does not hold", p.lid, req.mutex.label())), nil
		}
		delete(x.owners, req.mutex)

	case opSend:
		x.queues[req.ch] = append(x.queues[req.ch], req.value)

	case opRecv:
		q := x.queues[req.ch]
		p.result = q[0]
		q[0] = nil
		x.queues[req.ch] = q[1:]
	}
	return nil, nil
}

// resume opens p's gate and waits until p posts its next request,
// terminates or fails.
func (x *execution) resume(p *Proc, ec *engine.Context) (*engine.Fault, error) {
	p.gate <- struct{}{}
	ev := <-x.events

	if ev.proc != p {
		return nil, fmt.Errorf("driver: %s reported while %s was running", ev.proc.lid, p.lid)
	}

	switch ev.kind {
	case evRequest:
		p.pending = ev.req
	case evExit:
		delete(x.live, p.lid)
	case evPanic:
		delete(x.live, p.lid)
		return engine.NewFault(ec, engine.KindCrash, fmt.Sprintf("%s panicked: %s", p.lid, ev.detail)), nil
	case evAssert:
		delete(x.live, p.lid)
		return engine.NewFault(ec, engine.KindAssertion, fmt.Sprintf("%s: %s", p.lid, ev.detail)), nil
	default:
		return nil, errors.New("driver: unknown event")
	}
	return nil, nil
}

func (x *execution) newProc(l lid.LID) *Proc {
	p := &Proc{
		x:       x,
		lid:     l,
		gate:    make(chan struct{}, 1),
		pending: request{op: opStart},
	}
	x.live[l] = p
	return p
}

// launch starts the goroutine of p. It waits on the gate before running fn.
func (x *execution) launch(p *Proc, fn func(*Proc)) {
	x.wg.Add(1)
	go func() {
		defer x.wg.Done()

		returned := false
		defer func() {
			if r := recover(); r != nil {
				x.post(event{proc: p, kind: evPanic, detail: fmt.Sprint(r)})
				return
			}
			// Neither a return nor a panic: runtime.Goexit after an
			// assertion or during teardown. Nothing to report.
			if returned {
				x.post(event{proc: p, kind: evExit})
			}
		}()

		p.wait()
		fn(p)
		returned = true
	}()
}

// post delivers ev to the driver unless the execution is being torn down.
func (x *execution) post(ev event) {
	select {
	case x.events <- ev:
	case <-x.abort:
	}
}

// teardown releases every suspended process, waits for all of them to exit
// and removes the process tree from the registry.
func (x *execution) teardown(root lid.LID) {
	close(x.abort)
	x.wg.Wait()
	_ = x.reg.Cleanup(root)
}

func (x *execution) describeBlocked(blocked lid.Set) string {
	lids := blocked.Sorted()
	parts := make([]string, len(lids))
	for i, l := range lids {
		parts[i] = fmt.Sprintf("%s (%s)", l, x.live[l].pending)
	}
	return fmt.Sprintf("%d blocked: %s", len(lids), strings.Join(parts, ", "))
}
