package engine

import (
	"bytes"
	"log/slog"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wdshin/Concuerror/internal/frontier"
	"github.com/wdshin/Concuerror/internal/lid"
	"github.com/wdshin/Concuerror/internal/metrics"
	"github.com/wdshin/Concuerror/internal/schedule"
)

func contextWith(path schedule.Path, active ...lid.LID) *Context {
	return &Context{
		Active:  lid.NewSet(active...),
		Blocked: lid.NewSet(),
		Path:    path,
	}
}

// drained consumes the frontier's seed so only saved paths remain.
func drained(t *testing.T) *frontier.Store {
	t.Helper()
	f := frontier.New(schedule.Empty())
	_, ok := f.LoadOne()
	require.True(t, ok)
	return f
}

func nextGeneration(f *frontier.Store) []string {
	f.Swap()
	var out []string
	for {
		p, ok := f.LoadOne()
		if !ok {
			return out
		}
		out = append(out, p.String())
	}
}

func TestSearchPolicy_FirstDecision(t *testing.T) {
	f := drained(t)
	policy := NewSearchPolicy(f)

	got, err := policy(contextWith(schedule.Empty(), "P1"))
	require.NoError(t, err)
	assert.Equal(t, lid.LID("P1"), got)
	assert.Empty(t, nextGeneration(f))
}

func TestSearchPolicy_FirstDecisionManyActive(t *testing.T) {
	policy := NewSearchPolicy(drained(t))

	_, err := policy(contextWith(schedule.Empty(), "P1", "P2"))
	assert.ErrorIs(t, err, ErrPolicyFault)
}

func TestSearchPolicy_NoActive(t *testing.T) {
	policy := NewSearchPolicy(drained(t))

	_, err := policy(contextWith(schedule.Of("P1")))
	assert.ErrorIs(t, err, ErrPolicyFault)
}

func TestSearchPolicy_ContinuesLastProcess(t *testing.T) {
	f := drained(t)
	policy := NewSearchPolicy(f)

	// P1.1 sorts before P2 but P2 ran last and can still run.
	got, err := policy(contextWith(schedule.Of("P1", "P2"), "P1.1", "P2"))
	require.NoError(t, err)
	assert.Equal(t, lid.LID("P2"), got)

	assert.Equal(t, []string{"P1,P2,P1.1"}, nextGeneration(f))
}

func TestSearchPolicy_LastBlockedPicksSmallest(t *testing.T) {
	f := drained(t)
	policy := NewSearchPolicy(f)

	ec := contextWith(schedule.Of("P1", "P1"), "P1.10", "P1.2", "P1.3")
	ec.Blocked.Add("P1")

	got, err := policy(ec)
	require.NoError(t, err)
	assert.Equal(t, lid.LID("P1.2"), got)

	assert.Equal(t, []string{"P1,P1,P1.3", "P1,P1,P1.10"}, nextGeneration(f))
}

func TestSearchPolicy_SingleActiveNoAlternatives(t *testing.T) {
	f := drained(t)
	policy := NewSearchPolicy(f)

	got, err := policy(contextWith(schedule.Of("P1"), "P1.1"))
	require.NoError(t, err)
	assert.Equal(t, lid.LID("P1.1"), got)
	assert.Empty(t, nextGeneration(f))
}

func TestReplayPolicy_SameChoiceNoSaves(t *testing.T) {
	f := drained(t)
	search := NewSearchPolicy(f)
	replay := NewReplayPolicy()

	ec := contextWith(schedule.Of("P1"), "P1", "P1.1")
	a, err := search(ec)
	require.NoError(t, err)
	b, err := replay(ec)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, []string{"P1,P1.1"}, nextGeneration(f))
}

func TestSearchPolicy_DoesNotMutateContext(t *testing.T) {
	policy := NewSearchPolicy(drained(t))
	ec := contextWith(schedule.Of("P1"), "P1", "P1.1")

	_, err := policy(ec)
	require.NoError(t, err)
	assert.Equal(t, "P1", ec.Path.String())
	assert.Equal(t, 2, ec.Active.Len())
}

func TestFrontierSave_CountsDuplicates(t *testing.T) {
	rec := metrics.New()
	e := &Engine{metrics: rec}
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	f := drained(t)
	policy := searchPolicy(e.frontierSave(f, log))
	ec := contextWith(schedule.Of("P1"), "P1", "P1.1")

	_, err := policy(ec)
	require.NoError(t, err)
	assert.Equal(t, 0.0, promtest.ToFloat64(rec.FrontierDuplicates))
	assert.Empty(t, buf.String())

	// The same decision point offers the same alternative again.
	_, err = policy(ec)
	require.NoError(t, err)
	assert.Equal(t, 1.0, promtest.ToFloat64(rec.FrontierDuplicates))
	assert.Contains(t, buf.String(), "duplicate schedule dropped")
	assert.Contains(t, buf.String(), "path=P1,P1.1")
	assert.Equal(t, []string{"P1,P1.1"}, nextGeneration(f))
}

func TestFrontierSave_NilRecorder(t *testing.T) {
	e := &Engine{}
	f := drained(t)
	save := e.frontierSave(f, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	assert.True(t, save(schedule.Of("P1", "P1.1")))
	assert.NotPanics(t, func() {
		assert.False(t, save(schedule.Of("P1", "P1.1")))
	})
}
