package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wdshin/Concuerror/internal/frontier"
	"github.com/wdshin/Concuerror/internal/lid"
	"github.com/wdshin/Concuerror/internal/metrics"
	"github.com/wdshin/Concuerror/internal/schedule"
	"github.com/wdshin/Concuerror/internal/ticket"
)

// Target is a program under test.
//
// Spawn creates the root process of one execution without letting it run,
// and returns the execution together with the root's handle. The engine
// registers the root before the execution starts. Spawn is called once per
// run; reg is the registry of that run and must be used for every process
// the execution creates.
type Target interface {
	Name() string
	Spawn(reg *lid.Registry) (Execution, lid.Handle, error)
}

// Execution is one run of a target under a driver.
//
// Run replays the decisions of replay in order, then asks policy for every
// further decision. It returns a non-nil Fault when the target misbehaves
// and nil when every process terminates cleanly. A non-nil error is an
// internal fault (e.g. the replay diverged) and aborts the session. Run
// must tear down every process it started before returning.
type Execution interface {
	Run(policy Policy, ec *Context, replay schedule.Path) (*Fault, error)
}

// SessionIDGenerator generates unique session identifiers.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type SessionIDGenerator interface {
	Generate() string
}

// TicketHook receives each ticket as soon as it is found. A hook error
// aborts the session.
type TicketHook func(ticket.Ticket) error

// Engine explores the interleavings of one target.
//
// Exploration is single-threaded: exactly one execution is in flight at a
// time, and every run-scoped resource is torn down before the next run
// starts. The target's own processes may run on other goroutines under the
// driver's control.
type Engine struct {
	target     Target
	initPath   schedule.Path
	details    bool
	maxRounds  int
	logger     *slog.Logger
	metrics    *metrics.Recorder
	sessionIDs SessionIDGenerator
	ticketHook TicketHook
}

// Option configures an Engine.
type Option func(*Engine)

// WithInitSchedulePath seeds the first round with p instead of the empty
// path. Feeding a ticket's path here replays the schedule that produced it.
func WithInitSchedulePath(p schedule.Path) Option {
	return func(e *Engine) {
		e.initPath = p
	}
}

// WithDetails enables per-decision traces on tickets.
func WithDetails(details bool) Option {
	return func(e *Engine) {
		e.details = details
	}
}

// WithMaxRounds stops exploration after n completed rounds, i.e. after all
// schedules with at most n-1 preemptions were explored. 0 means unbounded.
func WithMaxRounds(n int) Option {
	return func(e *Engine) {
		e.maxRounds = n
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMetrics records progress into m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithSessionIDs sets the session ID generator. Default: UUIDv7Generator.
func WithSessionIDs(g SessionIDGenerator) Option {
	return func(e *Engine) {
		e.sessionIDs = g
	}
}

// WithTicketHook streams every ticket to h as it is found.
func WithTicketHook(h TicketHook) Option {
	return func(e *Engine) {
		e.ticketHook = h
	}
}

// New creates an Engine for target.
func New(target Target, opts ...Option) *Engine {
	e := &Engine{
		target:     target,
		initPath:   schedule.Empty(),
		logger:     slog.Default(),
		sessionIDs: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result summarizes an exploration session.
type Result struct {
	SessionID string
	Target    string

	// Runs counts every completed execution, clean or faulty.
	Runs int

	// Rounds counts completed rounds. Round r explores the schedules
	// deviating r times from the default choice.
	Rounds int

	// Pending is the number of schedules left unexplored when a round
	// limit or cancellation stopped the session.
	Pending int

	// Tickets holds every fault found, in ticket.Sort order.
	Tickets []ticket.Ticket
}

// OK reports whether no run produced a ticket.
func (r *Result) OK() bool {
	return len(r.Tickets) == 0
}

// Explore runs a full exploration session of target.
func Explore(ctx context.Context, target Target, opts ...Option) (*Result, error) {
	return New(target, opts...).Explore(ctx)
}

// Replay runs the single execution path determines.
func Replay(ctx context.Context, target Target, path schedule.Path, opts ...Option) (*ticket.Ticket, error) {
	return New(target, opts...).Replay(ctx, path)
}

// Explore runs the outer/inner loop until the frontier is exhausted, the
// round limit is reached or ctx is done.
//
// Cancellation is checked between runs only; an execution in flight always
// completes. On cancellation the partial result is returned with ctx.Err().
// Internal faults abort the session and are returned as *InternalError.
func (e *Engine) Explore(ctx context.Context) (*Result, error) {
	res := &Result{
		SessionID: e.sessionIDs.Generate(),
		Target:    e.target.Name(),
	}
	log := e.logger.With("session", res.SessionID)
	log.Info("exploration starting",
		"target", res.Target,
		"init_path", e.initPath.String(),
		"max_rounds", e.maxRounds,
	)

	front := frontier.New(e.initPath)
	policy := searchPolicy(e.frontierSave(front, log))
	reg := lid.NewRegistry()
	var tickets []ticket.Ticket

	finish := func(err error) (*Result, error) {
		res.Pending = front.Pending()
		res.Tickets = ticket.Sort(tickets)
		e.metrics.SetPending(res.Pending)
		return res, err
	}

	for {
		current, _ := front.Len()
		log.Info("round starting", "round", res.Rounds, "pending", current)

		for {
			if err := ctx.Err(); err != nil {
				log.Info("exploration stopping: context cancelled", "runs", res.Runs)
				return finish(err)
			}

			p, ok := front.LoadOne()
			if !ok {
				break
			}

			fault, decisions, err := e.runOnce(reg, policy, p, e.details)
			if err != nil {
				log.Error("internal fault", "round", res.Rounds, "path", p.String(), "error", err)
				return finish(err)
			}
			res.Runs++

			if fault == nil {
				e.metrics.RecordRun(metrics.OutcomeOK, decisions)
				log.Debug("run ok", "round", res.Rounds, "run", res.Runs, "path", p.String(), "schedule", p.Hash())
				continue
			}

			t := fault.Ticket(res.Target).WithRound(res.Rounds)
			tickets = append(tickets, t)
			e.metrics.RecordRun(metrics.OutcomeFault, decisions)
			e.metrics.RecordTicket(t.Kind)
			log.Info("fault found",
				"round", res.Rounds,
				"run", res.Runs,
				"kind", t.Kind,
				"path", t.Path.String(),
			)

			if e.ticketHook != nil {
				if err := e.ticketHook(t); err != nil {
					return finish(fmt.Errorf("ticket hook: %w", err))
				}
			}
		}

		front.Swap()
		res.Rounds++
		e.metrics.RecordRound()
		e.metrics.SetPending(front.Pending())

		if current, _ := front.Len(); current == 0 {
			break
		}
		if e.maxRounds > 0 && res.Rounds >= e.maxRounds {
			log.Info("round limit reached", "rounds", res.Rounds, "pending", front.Pending())
			break
		}
	}

	res, err := finish(nil)
	log.Info("exploration finished",
		"runs", res.Runs,
		"rounds", res.Rounds,
		"tickets", len(res.Tickets),
	)
	return res, err
}

// Replay runs the execution that path determines, with traces on. It
// returns the ticket the run produces, or nil if the run terminates
// cleanly. No alternative is recorded.
func (e *Engine) Replay(ctx context.Context, path schedule.Path) (*ticket.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := e.logger.With("target", e.target.Name())
	log.Info("replay starting", "path", path.String())

	fault, _, err := e.runOnce(lid.NewRegistry(), NewReplayPolicy(), path, true)
	if err != nil {
		return nil, err
	}
	if fault == nil {
		log.Info("replay finished cleanly")
		return nil, nil
	}

	t := fault.Ticket(e.target.Name())
	log.Info("replay reproduced fault", "kind", t.Kind, "path", t.Path.String())
	return &t, nil
}

// runOnce performs one inner-loop iteration: start the registry, spawn and
// register the root, run it, stop the registry. It returns the fault (nil on
// a clean run) and the number of decisions made.
func (e *Engine) runOnce(reg *lid.Registry, policy Policy, p schedule.Path, details bool) (*Fault, int, error) {
	path := p.String()

	if err := reg.Start(); err != nil {
		return nil, 0, newInternalError(ErrCodeRegistry, path, "start registry", err)
	}
	defer reg.Stop()

	exec, handle, err := e.target.Spawn(reg)
	if err != nil {
		return nil, 0, newInternalError(ErrCodeSpawn, path, "spawn root process", err)
	}

	root, err := reg.New(handle, lid.None)
	if err != nil {
		return nil, 0, newInternalError(ErrCodeRegistry, path, "register root process", err)
	}

	ec := NewContext(root, details)
	fault, err := exec.Run(policy, ec, p)
	if err != nil {
		return nil, 0, classifyRunError(path, err)
	}
	return fault, ec.Path.Len(), nil
}
