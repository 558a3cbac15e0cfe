package store

import (
	"context"
	"fmt"

	"github.com/wdshin/Concuerror/internal/ir"
	"github.com/wdshin/Concuerror/internal/ticket"
)

// Session outcomes.
const (
	OutcomeRunning = "running"
	OutcomeOK      = "ok"
	OutcomeFail    = "fail"
	OutcomeAborted = "aborted"
)

// Session is the stored summary of one exploration session.
type Session struct {
	ID      string `json:"id"`
	Target  string `json:"target"`
	Runs    int    `json:"runs"`
	Rounds  int    `json:"rounds"`
	Pending int    `json:"pending"`
	Outcome string `json:"outcome"`
	Seq     int64  `json:"seq"`
}

// StoredTicket is a ticket together with its session and discovery index.
type StoredTicket struct {
	ID        string        `json:"id"`
	SessionID string        `json:"session_id"`
	Seq       int64         `json:"seq"`
	Ticket    ticket.Ticket `json:"ticket"`
}

// WriteSession inserts or updates a session. The first write of an ID
// assigns its seq; later writes update the counters and the outcome.
//
// A session row must exist before tickets referencing it are written.
func (s *Store) WriteSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions
		(id, target, runs, rounds, pending, outcome, engine_version, ir_version, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM sessions))
		ON CONFLICT(id) DO UPDATE SET
			runs = excluded.runs,
			rounds = excluded.rounds,
			pending = excluded.pending,
			outcome = excluded.outcome
	`,
		sess.ID,
		sess.Target,
		sess.Runs,
		sess.Rounds,
		sess.Pending,
		sess.Outcome,
		ir.EngineVersion,
		ir.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// WriteTicket inserts a ticket of sessionID. seq is the ticket's discovery
// index within the session.
// Uses ON CONFLICT DO NOTHING for idempotency - writing the same ticket
// twice for a session is silently ignored.
func (s *Store) WriteTicket(ctx context.Context, sessionID string, seq int64, t ticket.Ticket) error {
	pathJSON, err := marshalPath(t.Path)
	if err != nil {
		return fmt.Errorf("write ticket: %w", err)
	}
	traceJSON, err := marshalTrace(t.Trace)
	if err != nil {
		return fmt.Errorf("write ticket: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tickets
		(id, session_id, target, kind, detail, path, round, trace, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		t.ID(),
		sessionID,
		t.Target,
		t.Kind,
		t.Detail,
		pathJSON,
		t.Round,
		traceJSON,
		seq,
	)
	if err != nil {
		return fmt.Errorf("write ticket: %w", err)
	}
	return nil
}
