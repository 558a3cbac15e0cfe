// Package engine implements preemption-bounded exploration of a concurrent
// target program.
//
// ARCHITECTURE:
//
// Outer/Inner Loop:
// The engine explores rounds. Round r runs every schedule that deviates r
// times from the default choice (keep running the last process while it
// can run; otherwise run the smallest active LID). Each run of round r
// records its untaken alternatives for round r+1.
//
// Run Processing Flow:
//  1. LoadOne pops the smallest pending path of the current generation
//  2. The run's registry is started; the target's root is spawned and registered
//  3. The driver replays the path, then calls the search policy at every
//     further decision point
//  4. The policy saves every untaken alternative into the next generation
//  5. The run ends cleanly or with a Fault; a Fault becomes a ticket
//  6. The registry is stopped; nothing survives into the next run
//
// When the current generation is exhausted the generations swap. The
// session ends when the new current generation is empty.
//
// CRITICAL PATTERNS:
//
// Determinism:
// Given the same target and seed path, a session visits the same schedules
// in the same order and yields byte-identical tickets. Frontier order is
// ascending path order; tie-breaks use ascending LID order.
//
// Single Run In Flight:
// Exploration is strictly sequential. The registry and the frontier are
// mutex-guarded because target processes reach them from their own
// goroutines, not because runs overlap.
//
// Internal Faults Abort:
// Registry misuse, policy faults and replay divergence are returned as
// *InternalError and end the session. Faults in the target are tickets.
package engine
