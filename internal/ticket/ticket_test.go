package ticket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wdshin/Concuerror/internal/schedule"
)

func TestNew(t *testing.T) {
	p := schedule.Of("P1", "P1.1")
	tk := New("bank", "deadlock", "2 processes blocked", p)

	assert.Equal(t, "bank", tk.Target)
	assert.Equal(t, "deadlock", tk.Kind)
	assert.Equal(t, "2 processes blocked", tk.Detail)
	assert.True(t, tk.Path.Equal(p))
	assert.Nil(t, tk.Trace)
}

func TestWithTrace_Copies(t *testing.T) {
	trace := []Event{{Step: 1, LID: "P1", Action: "lock m"}}
	base := New("bank", "crash", "boom", schedule.Of("P1"))
	tk := base.WithTrace(trace)

	trace[0].Action = "mutated"
	require.Len(t, tk.Trace, 1)
	assert.Equal(t, "lock m", tk.Trace[0].Action)
	assert.Nil(t, base.Trace)
}

func TestID(t *testing.T) {
	a := New("bank", "crash", "boom", schedule.Of("P1", "P1.1"))
	b := New("bank", "crash", "boom", schedule.Of("P1", "P1.1"))
	c := New("bank", "crash", "boom", schedule.Of("P1.1", "P1"))

	assert.Len(t, a.ID(), 64)
	assert.Equal(t, a.ID(), b.ID())
	assert.NotEqual(t, a.ID(), c.ID())

	// The trace does not change identity.
	assert.Equal(t, a.ID(), a.WithTrace([]Event{{Step: 1, LID: "P1"}}).ID())
}

func TestSort(t *testing.T) {
	ts := []Ticket{
		New("x", "deadlock", "", schedule.Of("P1", "P1.2")),
		New("x", "crash", "b", schedule.Of("P1", "P1.1")),
		New("x", "crash", "a", schedule.Of("P1", "P1.1")),
		New("x", "assertion", "", schedule.Of("P1")),
	}

	sorted := Sort(ts)
	require.Len(t, sorted, 4)
	assert.Equal(t, "assertion", sorted[0].Kind)
	assert.Equal(t, "a", sorted[1].Detail)
	assert.Equal(t, "b", sorted[2].Detail)
	assert.Equal(t, "deadlock", sorted[3].Kind)

	// Input untouched.
	assert.Equal(t, "deadlock", ts[0].Kind)
}

func TestSort_NoDeduplication(t *testing.T) {
	tk := New("x", "crash", "boom", schedule.Of("P1"))
	assert.Len(t, Sort([]Ticket{tk, tk}), 2)
}

func TestWithRound(t *testing.T) {
	tk := New("x", "deadlock", "", schedule.Of("P1"))
	r1 := tk.WithRound(1)

	assert.Equal(t, 0, tk.Round)
	assert.Equal(t, 1, r1.Round)
	assert.Equal(t, tk.ID(), r1.ID())
}
