package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wdshin/Concuerror/internal/queryir"
	"github.com/wdshin/Concuerror/internal/store"
)

// TicketsOptions holds flags for the tickets command.
type TicketsOptions struct {
	*RootOptions
	Database string
	Session  string // optional - one session only
	Where    string // optional ticket filter
}

// StoredTicketView is the JSON form of a persisted ticket.
type StoredTicketView struct {
	SessionID string `json:"session_id"`
	Seq       int64  `json:"seq"`
	TicketView
}

// TicketsResult holds the tickets command output.
type TicketsResult struct {
	Sessions []store.Session    `json:"sessions"`
	Tickets  []StoredTicketView `json:"tickets"`
}

// NewTicketsCommand creates the tickets command.
func NewTicketsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TicketsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "List stored sessions and tickets",
		Long: `List the exploration sessions recorded in a database and the tickets
each one found, in discovery order.

--where filters tickets by field. Terms are joined by spaces or commas and
must all hold. Fields: id, session, target, kind, detail, path, round, seq.
Operators: = and != on any field, < <= > >= on round and seq, ~ (contains)
and ^ (prefix) on text fields.

Examples:
  concuerror tickets --db ./tickets.db
  concuerror tickets --db ./tickets.db --session 0192c3a4-...
  concuerror tickets --db ./tickets.db --where 'kind=deadlock round>=2'
  concuerror tickets --db ./tickets.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTickets(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "list one session only")
	cmd.Flags().StringVar(&opts.Where, "where", "", "ticket filter, e.g. 'kind=deadlock round>=2'")

	return cmd
}

func runTickets(opts *TicketsOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	filter, err := queryir.Parse(opts.Where)
	if err != nil {
		return formatter.commandError(ErrCodeBadQuery, "invalid --where filter", err)
	}
	query := filter
	if opts.Session != "" {
		query = queryir.Where(queryir.Equals{Field: queryir.FieldSession, Value: opts.Session}, filter.Filter)
	}

	st, err := openExisting(opts.Database)
	if err != nil {
		return formatter.commandError(storeErrorCode(err), "failed to open database", err)
	}
	defer st.Close()

	var sessions []store.Session
	if opts.Session != "" {
		sess, err := st.ReadSession(ctx, opts.Session)
		if errors.Is(err, store.ErrNotFound) {
			return formatter.commandError(ErrCodeNotFound, "unknown session", err)
		}
		if err != nil {
			return formatter.commandError(ErrCodeStore, "failed to read session", err)
		}
		sessions = []store.Session{sess}
	} else if sessions, err = st.ListSessions(ctx); err != nil {
		return formatter.commandError(ErrCodeStore, "failed to list sessions", err)
	}

	stored, err := st.QueryTickets(ctx, query)
	if err != nil {
		return formatter.commandError(ErrCodeStore, "failed to list tickets", err)
	}

	result := TicketsResult{Sessions: sessions, Tickets: make([]StoredTicketView, len(stored))}
	for i, s := range stored {
		result.Tickets[i] = StoredTicketView{SessionID: s.SessionID, Seq: s.Seq, TicketView: viewTicket(s.Ticket)}
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result, SessionID: opts.Session})
	}

	w := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions found in database.")
		return nil
	}
	for _, sess := range sessions {
		fmt.Fprintf(w, "Session %s  %s  %s  %s, %s",
			sess.ID, sess.Target, sess.Outcome, pluralize(sess.Runs, "run"), pluralize(sess.Rounds, "round"))
		if sess.Pending > 0 {
			fmt.Fprintf(w, ", %d pending", sess.Pending)
		}
		fmt.Fprintln(w)
		for _, s := range stored {
			if s.SessionID != sess.ID {
				continue
			}
			fmt.Fprintf(w, "  %s  %-10s round %d  %s\n", shortID(s.ID), s.Ticket.Kind, s.Ticket.Round, s.Ticket.Detail)
		}
	}
	return nil
}

// openExisting opens a database that must already exist; store.Open would
// create an empty one.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database not found: %w", err)
	}
	return store.Open(path)
}

// storeErrorCode maps missing databases and rows to ErrCodeNotFound.
func storeErrorCode(err error) string {
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, store.ErrNotFound) {
		return ErrCodeNotFound
	}
	return ErrCodeStore
}
