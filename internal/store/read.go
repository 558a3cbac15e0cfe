package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wdshin/Concuerror/internal/queryir"
	"github.com/wdshin/Concuerror/internal/querysql"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// ReadSession returns the session with the given ID.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, target, runs, rounds, pending, outcome, seq
		FROM sessions
		WHERE id = ?
	`, id)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return sess, err
}

// ListSessions returns every session, oldest first.
//
// Returns an empty slice (not nil) if the store holds no sessions.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target, runs, rounds, pending, outcome, seq
		FROM sessions
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadTicket returns the earliest stored ticket with the given ID. A ticket
// ID may be given by any unique prefix of at least 8 characters.
func (s *Store) ReadTicket(ctx context.Context, id string) (StoredTicket, error) {
	if len(id) < 8 {
		return StoredTicket{}, fmt.Errorf("ticket id %q: need at least 8 characters", id)
	}

	found, err := s.QueryTickets(ctx, queryir.Select{
		Filter: queryir.Prefix{Field: queryir.FieldID, Value: id},
	})
	if err != nil {
		return StoredTicket{}, err
	}

	if len(found) == 0 {
		return StoredTicket{}, fmt.Errorf("ticket %s: %w", id, ErrNotFound)
	}
	for _, st := range found[1:] {
		if st.ID != found[0].ID {
			return StoredTicket{}, fmt.Errorf("ticket id prefix %q is ambiguous", id)
		}
	}
	return found[0], nil
}

// ListTickets returns the tickets of a session in discovery order. An empty
// sessionID lists the tickets of every session, oldest session first.
//
// Returns an empty slice (not nil) if no tickets match.
func (s *Store) ListTickets(ctx context.Context, sessionID string) ([]StoredTicket, error) {
	var filter queryir.Predicate
	if sessionID != "" {
		filter = queryir.Equals{Field: queryir.FieldSession, Value: sessionID}
	}
	return s.QueryTickets(ctx, queryir.Select{Filter: filter})
}

// QueryTickets returns the tickets matching q in discovery order.
//
// Returns an empty slice (not nil) if no tickets match.
func (s *Store) QueryTickets(ctx context.Context, q queryir.Query) ([]StoredTicket, error) {
	query, params, err := querysql.Compile(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer rows.Close()

	tickets := []StoredTicket{}
	for rows.Next() {
		st, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tickets: %w", err)
	}
	return tickets, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var sess Session
	err := row.Scan(&sess.ID, &sess.Target, &sess.Runs, &sess.Rounds, &sess.Pending, &sess.Outcome, &sess.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, err
	}
	if err != nil {
		return Session{}, fmt.Errorf("scan session: %w", err)
	}
	return sess, nil
}

func scanTicket(row scanner) (StoredTicket, error) {
	var (
		st        StoredTicket
		pathJSON  string
		traceJSON sql.NullString
	)
	err := row.Scan(
		&st.ID,
		&st.SessionID,
		&st.Ticket.Target,
		&st.Ticket.Kind,
		&st.Ticket.Detail,
		&pathJSON,
		&st.Ticket.Round,
		&traceJSON,
		&st.Seq,
	)
	if err != nil {
		return StoredTicket{}, fmt.Errorf("scan ticket: %w", err)
	}

	if st.Ticket.Path, err = unmarshalPath(pathJSON); err != nil {
		return StoredTicket{}, err
	}
	if st.Ticket.Trace, err = unmarshalTrace(traceJSON); err != nil {
		return StoredTicket{}, err
	}
	return st, nil
}
