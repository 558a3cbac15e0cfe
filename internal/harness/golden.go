package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/wdshin/Concuerror/internal/ir"
)

// Snapshot renders result as canonical JSON for golden comparison.
//
// The snapshot holds the session counters and every persisted ticket in
// discovery order. Session IDs are left out; ticket IDs are content hashes
// and stay in.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	tickets := make([]any, len(result.Tickets))
	for i, st := range result.Tickets {
		t := st.Ticket
		entry := map[string]any{
			"id":     st.ID,
			"kind":   t.Kind,
			"detail": t.Detail,
			"path":   t.Path.Strings(),
			"round":  t.Round,
		}
		if len(t.Trace) > 0 {
			trace := make([]any, len(t.Trace))
			for j, ev := range t.Trace {
				trace[j] = map[string]any{
					"step":   ev.Step,
					"lid":    ev.LID,
					"action": ev.Action,
				}
			}
			entry["trace"] = trace
		}
		tickets[i] = entry
	}

	outcome := OutcomeOK
	if len(result.Tickets) > 0 {
		outcome = OutcomeFail
	}

	return ir.MarshalCanonical(map[string]any{
		"scenario": scenarioName,
		"target":   result.Session.Target,
		"outcome":  outcome,
		"runs":     result.Session.Runs,
		"rounds":   result.Session.Rounds,
		"pending":  result.Session.Pending,
		"tickets":  tickets,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the snapshot of an existing result against a
// golden file without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, snapshot)
	return nil
}
