package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wdshin/Concuerror/internal/lid"
)

func TestInternalError_Error(t *testing.T) {
	err := newInternalError(ErrCodeRegistry, "P1,P1", "start registry", lid.ErrAlreadyStarted)

	assert.Equal(t, "REGISTRY_MISUSE: start registry (path=P1,P1): lid: registry already started", err.Error())
	assert.ErrorIs(t, err, lid.ErrAlreadyStarted)
}

func TestInternalError_NoPath(t *testing.T) {
	err := newInternalError(ErrCodeSpawn, "", "spawn root process", nil)
	assert.Equal(t, "SPAWN_FAILED: spawn root process", err.Error())
}

func TestIsInternalError(t *testing.T) {
	err := fmt.Errorf("explore: %w", newInternalError(ErrCodeDriver, "", "execution failed", nil))

	assert.True(t, IsInternalError(err))
	assert.False(t, IsInternalError(errors.New("plain")))
	assert.False(t, IsInternalError(nil))
}

func TestClassifyRunError(t *testing.T) {
	policyErr := fmt.Errorf("%w: no active process", ErrPolicyFault)
	assert.Equal(t, ErrCodePolicy, classifyRunError("P1", policyErr).Code)

	driverErr := errors.New("replay diverged")
	assert.Equal(t, ErrCodeDriver, classifyRunError("P1", driverErr).Code)

	// An InternalError passes through untouched.
	orig := newInternalError(ErrCodeRegistry, "P1", "register child", nil)
	assert.Same(t, orig, classifyRunError("P1", fmt.Errorf("wrapped: %w", orig)))
}

func TestContext_Decide(t *testing.T) {
	ec := NewContext("P1", false)
	ec.Decide("P1", "spawn")
	assert.Equal(t, "P1", ec.Path.String())
	assert.Empty(t, ec.Trace)

	detailed := NewContext("P1", true)
	detailed.Decide("P1", "spawn")
	detailed.Decide("P1.1", "lock m")
	assert.Equal(t, []TraceEvent{
		{Step: 1, LID: "P1", Action: "spawn"},
		{Step: 2, LID: "P1.1", Action: "lock m"},
	}, detailed.Trace)
}

func TestFault_Ticket(t *testing.T) {
	ec := NewContext("P1", true)
	ec.Decide("P1", "assert x == 2")

	f := NewFault(ec, KindAssertion, "x = 1")
	assert.Equal(t, "assertion: x = 1", f.Error())

	tk := f.Ticket("counter")
	assert.Equal(t, "counter", tk.Target)
	assert.Equal(t, "assertion", tk.Kind)
	assert.Equal(t, "P1", tk.Path.String())
	assert.Len(t, tk.Trace, 1)

	// The fault's trace is a copy of the context's.
	ec.Trace[0].Action = "mutated"
	assert.Equal(t, "assert x == 2", f.Trace[0].Action)
}
