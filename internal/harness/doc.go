// Package harness runs exploration scenarios and checks what they find.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: lock_order
//	description: "Opposite lock order deadlocks after one preemption"
//	program_file: ../programs/lock_order.yaml   # or an inline program:
//	options:
//	  init_path: ""
//	  max_rounds: 2
//	  details: false
//	expect:
//	  outcome: fail
//	  runs: 5
//	  rounds: 2
//	  tickets: 1
//	  kinds: [deadlock]
//	  details: ["2 blocked"]
//
// Program files ending in .cue are compiled with internal/compiler;
// program_name picks one program of a file that declares several.
//
// # Deterministic Testing
//
// Exploration is deterministic for a given program and options. The harness
// adds:
//   - A fixed session ID (testutil.DefaultSessionID)
//   - An in-memory SQLite store per scenario
//   - Canonical JSON snapshots for golden comparison
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/lock_order.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
