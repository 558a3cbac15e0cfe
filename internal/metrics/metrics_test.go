package metrics

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	r := New()

	r.RecordRun(OutcomeOK, 4)
	r.RecordRun(OutcomeOK, 6)
	r.RecordRun(OutcomeFault, 3)
	r.RecordTicket("deadlock")
	r.RecordRound()
	r.SetPending(7)
	r.RecordDuplicate()
	r.RecordDuplicate()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.RunsTotal.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.RunsTotal.WithLabelValues(OutcomeFault)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.TicketsTotal.WithLabelValues("deadlock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.RoundsTotal))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.FrontierPending))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.FrontierDuplicates))
}

func TestRecorder_Isolated(t *testing.T) {
	a, b := New(), New()
	a.RecordRound()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.RoundsTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RoundsTotal))
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder

	assert.NotPanics(t, func() {
		r.RecordRun(OutcomeOK, 1)
		r.RecordTicket("crash")
		r.RecordRound()
		r.SetPending(1)
		r.RecordDuplicate()
	})
	assert.Nil(t, r.Registry())
	assert.NoError(t, r.WriteText(&bytes.Buffer{}))
}

func TestRecorder_WriteText(t *testing.T) {
	r := New()
	r.RecordRun(OutcomeOK, 2)
	r.RecordRound()

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))

	out := buf.String()
	assert.Contains(t, out, `concuerror_runs_total{outcome="ok"} 1`)
	assert.Contains(t, out, "concuerror_rounds_total 1")
	assert.Contains(t, out, "# TYPE concuerror_run_decisions histogram")
}
