package harness

import (
	"github.com/wdshin/Concuerror/internal/engine"
	"github.com/wdshin/Concuerror/internal/store"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation holds.
	Pass bool `json:"pass"`

	// Session is the exploration result.
	Session *engine.Result `json:"session"`

	// Tickets are the tickets as they were persisted, in discovery order.
	Tickets []store.StoredTicket `json:"tickets"`

	// Errors contains one message per failed expectation.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Tickets: []store.StoredTicket{},
		Errors:  []string{},
	}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
