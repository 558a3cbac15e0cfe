package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wdshin/Concuerror/internal/engine"
	"github.com/wdshin/Concuerror/internal/lid"
	"github.com/wdshin/Concuerror/internal/logging"
	"github.com/wdshin/Concuerror/internal/metrics"
	"github.com/wdshin/Concuerror/internal/schedule"
	"github.com/wdshin/Concuerror/internal/testutil"
	"github.com/wdshin/Concuerror/internal/ticket"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func quiet(opts ...engine.Option) []engine.Option {
	return append([]engine.Option{
		engine.WithLogger(logging.NewNop()),
		engine.WithSessionIDs(testutil.FixedSessionID("")),
	}, opts...)
}

// twoByTwo is a root that spawns one worker; after the spawn each of the two
// processes has two steps left.
func twoByTwo() *testutil.ScriptTarget {
	return &testutil.ScriptTarget{
		TargetName: "two-by-two",
		Root:       "main",
		Scripts: map[string][]testutil.Step{
			"main":   {{Label: "spawn", Spawn: "worker"}, {Label: "m1"}, {Label: "m2"}},
			"worker": {{Label: "w1"}, {Label: "w2"}},
		},
	}
}

type simProc struct {
	script string
	pc     int
	kids   int
}

// enumerate returns every complete schedule of s mapped to its number of
// deviations from the default choice.
func enumerate(s *testutil.ScriptTarget) map[string]int {
	out := map[string]int{}

	var walk func(procs map[lid.LID]simProc, path schedule.Path, cost int)
	walk = func(procs map[lid.LID]simProc, path schedule.Path, cost int) {
		active := lid.NewSet()
		for l, p := range procs {
			if p.pc < len(s.Scripts[p.script]) {
				active.Add(l)
			}
		}
		if active.Len() == 0 {
			out[path.String()] = cost
			return
		}

		def := active.Min()
		if last, ok := path.Last(); ok && active.Has(last) {
			def = last
		}

		for _, l := range active.Sorted() {
			next := make(map[lid.LID]simProc, len(procs)+1)
			for k, v := range procs {
				next[k] = v
			}
			p := next[l]
			step := s.Scripts[p.script][p.pc]
			p.pc++
			if step.Spawn != "" {
				p.kids++
				next[l.Child(p.kids)] = simProc{script: step.Spawn}
			}
			next[l] = p

			c := cost
			if l != def {
				c++
			}
			walk(next, path.Extend(l), c)
		}
	}

	walk(map[lid.LID]simProc{lid.Root(1): {script: s.Root}}, schedule.Empty(), 0)
	return out
}

func TestExplore_ExhaustiveUpToBound(t *testing.T) {
	all := enumerate(twoByTwo())
	require.Len(t, all, 6, "C(4,2) interleavings after the spawn")

	maxCost := 0
	for _, c := range all {
		maxCost = max(maxCost, c)
	}
	require.Equal(t, 3, maxCost)

	for k := 0; k <= maxCost; k++ {
		target := twoByTwo()
		res, err := engine.Explore(context.Background(), target, quiet(engine.WithMaxRounds(k+1))...)
		require.NoError(t, err)

		explored := map[string]int{}
		for _, p := range target.Schedules() {
			explored[p.String()]++
		}

		want := map[string]int{}
		for path, c := range all {
			if c <= k {
				want[path] = 1
			}
		}
		assert.Equal(t, want, explored, "rounds 0..%d", k)
		assert.Equal(t, len(want), res.Runs)
	}
}

func TestExplore_FullSession(t *testing.T) {
	target := twoByTwo()
	res, err := engine.Explore(context.Background(), target, quiet()...)
	require.NoError(t, err)

	assert.True(t, res.OK())
	assert.Equal(t, 6, res.Runs)
	assert.Equal(t, 0, res.Pending)
	assert.Equal(t, "two-by-two", res.Target)
	assert.Equal(t, testutil.DefaultSessionID, res.SessionID)

	// P1,P1.1,P1,P1.1,P1 deviates three times, so rounds 0..3 run.
	assert.Equal(t, 4, res.Rounds)
}

func TestExplore_SpawnThenTerminate(t *testing.T) {
	target := &testutil.ScriptTarget{
		Root: "main",
		Scripts: map[string][]testutil.Step{
			"main":  {{Label: "spawn", Spawn: "child"}},
			"child": {{Label: "work"}},
		},
	}

	res, err := engine.Explore(context.Background(), target, quiet()...)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, 1, res.Runs)
	assert.Equal(t, 1, res.Rounds)
	assert.Empty(t, res.Tickets)
}

func TestExplore_FaultBecomesTicket(t *testing.T) {
	target := &testutil.ScriptTarget{
		TargetName: "faulty",
		Root:       "main",
		Scripts: map[string][]testutil.Step{
			"main":   {{Label: "spawn", Spawn: "worker"}, {Label: "m1"}},
			"worker": {{Label: "boom", Fail: engine.KindCrash}},
		},
	}

	var streamed []ticket.Ticket
	hook := func(tk ticket.Ticket) error {
		streamed = append(streamed, tk)
		return nil
	}

	res, err := engine.Explore(context.Background(), target, quiet(engine.WithTicketHook(hook))...)
	require.NoError(t, err)

	// Round 0: P1,P1,P1.1 (worker faults last). Round 1: P1,P1.1.
	require.Len(t, res.Tickets, 2)
	assert.False(t, res.OK())
	assert.Equal(t, 2, res.Runs)
	assert.Equal(t, "P1,P1,P1.1", res.Tickets[0].Path.String())
	assert.Equal(t, 0, res.Tickets[0].Round)
	assert.Equal(t, "P1,P1.1", res.Tickets[1].Path.String())
	assert.Equal(t, 1, res.Tickets[1].Round)
	for _, tk := range res.Tickets {
		assert.Equal(t, "crash", tk.Kind)
		assert.Equal(t, "boom", tk.Detail)
		assert.Equal(t, "faulty", tk.Target)
	}

	// The hook saw every ticket, in discovery order.
	require.Len(t, streamed, 2)
	assert.Equal(t, "P1,P1,P1.1", streamed[0].Path.String())
}

func TestExplore_TicketHookErrorAborts(t *testing.T) {
	target := &testutil.ScriptTarget{
		Root: "main",
		Scripts: map[string][]testutil.Step{
			"main": {{Label: "boom", Fail: engine.KindAssertion}},
		},
	}
	hookErr := errors.New("store down")

	res, err := engine.Explore(context.Background(), target,
		quiet(engine.WithTicketHook(func(ticket.Ticket) error { return hookErr }))...)
	require.ErrorIs(t, err, hookErr)
	assert.False(t, engine.IsInternalError(err))
	assert.Len(t, res.Tickets, 1)
}

func TestExplore_InitSchedulePath(t *testing.T) {
	target := twoByTwo()
	seed := schedule.Of("P1", "P1.1")

	res, err := engine.Explore(context.Background(), target,
		quiet(engine.WithInitSchedulePath(seed), engine.WithMaxRounds(1))...)
	require.NoError(t, err)

	require.Equal(t, 1, res.Runs)
	runs := target.Schedules()
	require.Len(t, runs, 1)
	assert.True(t, runs[0].HasPrefix(seed))
	assert.Equal(t, "P1,P1.1,P1.1,P1,P1", runs[0].String())
}

func TestExplore_ReplayDivergenceIsInternal(t *testing.T) {
	_, err := engine.Explore(context.Background(), twoByTwo(),
		quiet(engine.WithInitSchedulePath(schedule.Of("P3")))...)
	require.Error(t, err)

	var ie *engine.InternalError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, engine.ErrCodeDriver, ie.Code)
	assert.ErrorIs(t, err, testutil.ErrDiverged)
}

func TestExplore_SpawnFailureIsInternal(t *testing.T) {
	target := &testutil.ScriptTarget{Root: "missing"}

	_, err := engine.Explore(context.Background(), target, quiet()...)
	var ie *engine.InternalError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, engine.ErrCodeSpawn, ie.Code)
}

func TestExplore_CancelledBetweenRuns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := engine.Explore(ctx, twoByTwo(), quiet()...)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, 0, res.Runs)
	assert.Equal(t, 1, res.Pending)
}

func TestExplore_Details(t *testing.T) {
	target := &testutil.ScriptTarget{
		Root: "main",
		Scripts: map[string][]testutil.Step{
			"main": {{Label: "first"}, {Label: "second", Fail: engine.KindAssertion}},
		},
	}

	res, err := engine.Explore(context.Background(), target, quiet(engine.WithDetails(true))...)
	require.NoError(t, err)
	require.Len(t, res.Tickets, 1)
	assert.Equal(t, []ticket.Event{
		{Step: 1, LID: "P1", Action: "first"},
		{Step: 2, LID: "P1", Action: "second"},
	}, res.Tickets[0].Trace)

	// Without details no trace is kept.
	res, err = engine.Explore(context.Background(), target, quiet()...)
	require.NoError(t, err)
	assert.Nil(t, res.Tickets[0].Trace)
}

func TestExplore_Metrics(t *testing.T) {
	rec := metrics.New()
	_, err := engine.Explore(context.Background(), twoByTwo(), quiet(engine.WithMetrics(rec))...)
	require.NoError(t, err)

	assert.Equal(t, 6.0, promtest.ToFloat64(rec.RunsTotal.WithLabelValues(metrics.OutcomeOK)))
	assert.Equal(t, 4.0, promtest.ToFloat64(rec.RoundsTotal))
	assert.Equal(t, 0.0, promtest.ToFloat64(rec.FrontierPending))
}

func TestReplay(t *testing.T) {
	target := &testutil.ScriptTarget{
		TargetName: "faulty",
		Root:       "main",
		Scripts: map[string][]testutil.Step{
			"main":   {{Label: "spawn", Spawn: "worker"}, {Label: "m1"}},
			"worker": {{Label: "boom", Fail: engine.KindCrash}},
		},
	}

	tk, err := engine.Replay(context.Background(), target, schedule.Of("P1", "P1.1"), quiet()...)
	require.NoError(t, err)
	require.NotNil(t, tk)
	assert.Equal(t, "P1,P1.1", tk.Path.String())
	assert.Len(t, tk.Trace, 2, "replay always records a trace")

	// Replay never queues alternatives: exactly one run happens.
	target.Reset()
	_, err = engine.Replay(context.Background(), target, schedule.Empty(), quiet()...)
	require.NoError(t, err)
	assert.Len(t, target.Schedules(), 1)
}

func TestReplay_Clean(t *testing.T) {
	tk, err := engine.Replay(context.Background(), twoByTwo(), schedule.Empty(), quiet()...)
	require.NoError(t, err)
	assert.Nil(t, tk)
}
