package harness

import (
	"fmt"
	"slices"
	"strings"
)

// CheckExpect evaluates exp against result and returns one message per
// failed expectation, in field order.
func CheckExpect(exp Expect, result *Result) []string {
	var errs []string
	session := result.Session
	tickets := len(result.Tickets)

	switch exp.Outcome {
	case OutcomeOK:
		if tickets != 0 {
			errs = append(errs, fmt.Sprintf("outcome: expected ok, got %d tickets (first: %s)",
				tickets, result.Tickets[0].Ticket.Detail))
		}
	case OutcomeFail:
		if tickets == 0 {
			errs = append(errs, "outcome: expected fail, got no tickets")
		}
	}

	if exp.Runs != nil && session.Runs != *exp.Runs {
		errs = append(errs, fmt.Sprintf("runs: expected %d, got %d", *exp.Runs, session.Runs))
	}
	if exp.Rounds != nil && session.Rounds != *exp.Rounds {
		errs = append(errs, fmt.Sprintf("rounds: expected %d, got %d", *exp.Rounds, session.Rounds))
	}
	if exp.Tickets != nil && tickets != *exp.Tickets {
		errs = append(errs, fmt.Sprintf("tickets: expected %d, got %d", *exp.Tickets, tickets))
	}

	if len(exp.Kinds) > 0 {
		want := slices.Clone(exp.Kinds)
		slices.Sort(want)
		want = slices.Compact(want)
		if got := ticketKinds(result); !slices.Equal(want, got) {
			errs = append(errs, fmt.Sprintf("kinds: expected [%s], got [%s]",
				strings.Join(want, " "), strings.Join(got, " ")))
		}
	}

	for _, d := range exp.Details {
		if !hasDetail(result, d) {
			errs = append(errs, fmt.Sprintf("details: no ticket detail contains %q", d))
		}
	}

	return errs
}

// ticketKinds returns the distinct kinds of the result's tickets, sorted.
func ticketKinds(result *Result) []string {
	var kinds []string
	for _, st := range result.Tickets {
		kinds = append(kinds, st.Ticket.Kind)
	}
	slices.Sort(kinds)
	return slices.Compact(kinds)
}

func hasDetail(result *Result, sub string) bool {
	for _, st := range result.Tickets {
		if strings.Contains(st.Ticket.Detail, sub) {
			return true
		}
	}
	return false
}
