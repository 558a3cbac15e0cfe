package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wdshin/Concuerror/internal/engine"
	"github.com/wdshin/Concuerror/internal/metrics"
	"github.com/wdshin/Concuerror/internal/schedule"
	"github.com/wdshin/Concuerror/internal/store"
	"github.com/wdshin/Concuerror/internal/ticket"
)

// ExploreOptions holds flags for the explore command.
type ExploreOptions struct {
	*RootOptions
	Database   string
	Program    string // program name within a CUE file
	MaxRounds  int
	InitPath   string
	Details    bool
	MetricsOut string

	// SessionIDs allows overriding the session ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	SessionIDs engine.SessionIDGenerator
}

// ExploreResult is the JSON payload of the explore command.
type ExploreResult struct {
	SessionID string       `json:"session_id"`
	Target    string       `json:"target"`
	Runs      int          `json:"runs"`
	Rounds    int          `json:"rounds"`
	Pending   int          `json:"pending"`
	Tickets   []TicketView `json:"tickets"`
}

// NewExploreCommand creates the explore command.
func NewExploreCommand(rootOpts *RootOptions) *cobra.Command {
	return newExploreCommand(&ExploreOptions{RootOptions: rootOpts})
}

func newExploreCommand(opts *ExploreOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explore <program>",
		Short: "Explore the interleavings of a program",
		Long: `Explore the interleavings of a program round by round and report every
faulty schedule as a ticket.

Without --max-rounds exploration runs until every schedule has been
explored. With --db the session and its tickets are persisted as they are
found, so an interrupted session keeps what it discovered.

Exit codes:
  0 - No tickets
  1 - One or more tickets found
  2 - Command error (invalid program, database error, etc.)

Examples:
  concuerror explore lock_order.yaml
  concuerror explore --max-rounds 3 --db ./tickets.db programs.cue --program LostUpdate
  concuerror explore --init-path P1,P1,P1.1 --details lock_order.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplore(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for tickets")
	cmd.Flags().StringVar(&opts.Program, "program", "", "program name within a CUE file")
	cmd.Flags().IntVar(&opts.MaxRounds, "max-rounds", 0, "stop after this many rounds (0 = unbounded)")
	cmd.Flags().StringVar(&opts.InitPath, "init-path", "", "seed schedule path, e.g. P1,P1.1")
	cmd.Flags().BoolVar(&opts.Details, "details", false, "record decision traces in tickets")
	cmd.Flags().StringVar(&opts.MetricsOut, "metrics-out", "", "write Prometheus text metrics to this file")

	return cmd
}

func runExplore(opts *ExploreOptions, programPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd)

	if opts.MaxRounds < 0 {
		return formatter.commandError(ErrCodeGeneric, "invalid --max-rounds", fmt.Errorf("%d is negative", opts.MaxRounds))
	}
	initPath, err := schedule.Parse(opts.InitPath)
	if err != nil {
		return formatter.commandError(ErrCodeBadPath, "invalid --init-path", err)
	}

	prog, target, err := LoadTarget(programPath, opts.Program)
	if err != nil {
		return formatter.commandError(loadErrorCode(err), "failed to load program", err)
	}
	formatter.VerboseLog("Loaded program %s (%d processes)", prog.Name, len(prog.Processes))

	gen := opts.SessionIDs
	if gen == nil {
		gen = engine.UUIDv7Generator{}
	}
	sessionID := gen.Generate()

	// Setup signal handling for graceful shutdown
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rec *metrics.Recorder
	if opts.MetricsOut != "" {
		rec = metrics.New()
	}

	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithSessionIDs(engine.NewFixedGenerator(sessionID)),
		engine.WithInitSchedulePath(initPath),
		engine.WithMaxRounds(opts.MaxRounds),
		engine.WithDetails(opts.Details),
		engine.WithMetrics(rec),
	}

	var st *store.Store
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return formatter.commandError(ErrCodeStore, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		if err := st.WriteSession(ctx, store.Session{ID: sessionID, Target: prog.Name, Outcome: store.OutcomeRunning}); err != nil {
			return formatter.commandError(ErrCodeStore, "failed to record session", err)
		}
		engineOpts = append(engineOpts, engine.WithTicketHook(persistTickets(context.WithoutCancel(ctx), st, sessionID)))
	}

	res, exploreErr := engine.Explore(ctx, target, engineOpts...)

	if st != nil {
		// The session row is finalized even when exploration stopped early.
		if err := st.WriteSession(context.Background(), sessionRecord(sessionID, prog.Name, res, exploreErr)); err != nil {
			logger.Error("failed to finalize session", "session", sessionID, "error", err)
		}
	}
	if opts.MetricsOut != "" {
		if err := writeMetrics(opts.MetricsOut, rec); err != nil {
			return formatter.commandError(ErrCodeWrite, "failed to write metrics", err)
		}
	}

	if exploreErr != nil && !errors.Is(exploreErr, context.Canceled) {
		code := ErrCodeGeneric
		if engine.IsInternalError(exploreErr) {
			code = ErrCodeInternal
		}
		return formatter.commandError(code, "exploration aborted", exploreErr)
	}
	if exploreErr != nil {
		logger.Warn("exploration interrupted", "session", sessionID, "runs", res.Runs, "pending", res.Pending)
	}

	if opts.Format == "json" {
		return outputExploreJSON(cmd, res)
	}
	return outputExploreText(cmd, res, exploreErr != nil)
}

// persistTickets returns a ticket hook writing each ticket to st in
// discovery order.
func persistTickets(ctx context.Context, st *store.Store, sessionID string) engine.TicketHook {
	var seq int64
	return func(t ticket.Ticket) error {
		if err := st.WriteTicket(ctx, sessionID, seq, t); err != nil {
			return err
		}
		seq++
		return nil
	}
}

func sessionRecord(id, target string, res *engine.Result, err error) store.Session {
	sess := store.Session{ID: id, Target: target, Outcome: store.OutcomeAborted}
	if res == nil {
		return sess
	}
	sess.Runs, sess.Rounds, sess.Pending = res.Runs, res.Rounds, res.Pending
	switch {
	case err != nil:
	case res.OK():
		sess.Outcome = store.OutcomeOK
	default:
		sess.Outcome = store.OutcomeFail
	}
	return sess
}

func writeMetrics(path string, rec *metrics.Recorder) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := rec.WriteText(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// outputExploreJSON outputs the exploration result as JSON.
func outputExploreJSON(cmd *cobra.Command, res *engine.Result) error {
	response := CLIResponse{
		Status:    "ok",
		SessionID: res.SessionID,
		Data: ExploreResult{
			SessionID: res.SessionID,
			Target:    res.Target,
			Runs:      res.Runs,
			Rounds:    res.Rounds,
			Pending:   res.Pending,
			Tickets:   viewTickets(res.Tickets),
		},
	}
	if !res.OK() {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_TICKETS",
			Message: fmt.Sprintf("%s found", pluralize(len(res.Tickets), "ticket")),
		}
	}

	if err := writeJSON(cmd.OutOrStdout(), response); err != nil {
		return err
	}
	if !res.OK() {
		return NewExitError(ExitFailure, response.Error.Message)
	}
	return nil
}

// outputExploreText outputs the exploration result as text.
func outputExploreText(cmd *cobra.Command, res *engine.Result, interrupted bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Explored %s: %s in %s", res.Target, pluralize(res.Runs, "run"), pluralize(res.Rounds, "round"))
	if res.Pending > 0 {
		fmt.Fprintf(w, ", %d schedule(s) pending", res.Pending)
	}
	fmt.Fprintln(w)
	if interrupted {
		fmt.Fprintln(w, "Interrupted before the frontier was exhausted.")
	}
	fmt.Fprintf(w, "Session: %s\n", res.SessionID)
	fmt.Fprintln(w)

	for _, t := range res.Tickets {
		writeTicketText(w, t)
		fmt.Fprintln(w)
	}

	if res.OK() {
		fmt.Fprintln(w, "✓ No faults found")
		return nil
	}

	msg := fmt.Sprintf("%s found (%s)", pluralize(len(res.Tickets), "ticket"), joinKinds(res.Tickets))
	fmt.Fprintf(w, "✗ %s\n", msg)
	return NewExitError(ExitFailure, msg)
}

