package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wdshin/Concuerror/internal/driver"
	"github.com/wdshin/Concuerror/internal/engine"
	"github.com/wdshin/Concuerror/internal/schedule"
	"github.com/wdshin/Concuerror/internal/store"
	"github.com/wdshin/Concuerror/internal/ticket"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Ticket   string // ticket ID or prefix, read from Database
	Path     string // explicit schedule path
	Program  string // program name within a CUE file
}

// ReplayResult holds the replay result.
type ReplayResult struct {
	Path string `json:"path"`

	// Fault is the ticket the replayed run produced, nil if it ran cleanly.
	Fault *TicketView `json:"fault"`

	// Expected is the stored ticket being replayed (--ticket only).
	Expected *TicketView `json:"expected,omitempty"`

	// Reproduced reports whether the run reproduced Expected exactly.
	Reproduced bool `json:"reproduced"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <program>",
		Short: "Replay one schedule and print its trace",
		Long: `Run the single execution a schedule path determines and print the
decision trace.

The path is given with --path, or read from a stored ticket with --db and
--ticket. A ticket replay verifies that the run reproduces the same ticket.

Exit codes:
  0 - The ticket was reproduced (--ticket), or the run was clean (--path)
  1 - The replay diverged, or the run produced a fault (--path)
  2 - Command error (database not found, unknown ticket, etc.)

Examples:
  concuerror replay --path P1,P1,P1,P1.1,P1.1 lock_order.yaml
  concuerror replay --db ./tickets.db --ticket ea547d89 lock_order.yaml
  concuerror replay --db ./tickets.db --ticket ea547d89 lock_order.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (with --ticket)")
	cmd.Flags().StringVar(&opts.Ticket, "ticket", "", "ticket ID or prefix (8+ characters) to replay")
	cmd.Flags().StringVar(&opts.Path, "path", "", "schedule path to replay, e.g. P1,P1,P1.1")
	cmd.Flags().StringVar(&opts.Program, "program", "", "program name within a CUE file")
	cmd.MarkFlagsMutuallyExclusive("path", "ticket")
	cmd.MarkFlagsRequiredTogether("db", "ticket")

	return cmd
}

func runReplay(opts *ReplayOptions, programPath string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Path == "" && opts.Ticket == "" {
		return formatter.commandError(ErrCodeGeneric, "nothing to replay", errors.New("one of --path or --ticket is required"))
	}

	prog, target, err := LoadTarget(programPath, opts.Program)
	if err != nil {
		return formatter.commandError(loadErrorCode(err), "failed to load program", err)
	}

	var expected *ticket.Ticket
	path, err := schedule.Parse(opts.Path)
	if err != nil {
		return formatter.commandError(ErrCodeBadPath, "invalid --path", err)
	}
	if opts.Ticket != "" {
		stored, err := readTicket(ctx, opts.Database, opts.Ticket)
		if err != nil {
			return formatter.commandError(storeErrorCode(err), "failed to read ticket", err)
		}
		if stored.Ticket.Target != prog.Name {
			return formatter.commandError(ErrCodeGeneric, "ticket does not match program",
				fmt.Errorf("ticket %s was found in %q, program is %q", shortID(stored.ID), stored.Ticket.Target, prog.Name))
		}
		expected = &stored.Ticket
		path = stored.Ticket.Path
	}
	formatter.VerboseLog("Replaying %s on %s", path.String(), prog.Name)

	fault, err := engine.Replay(ctx, target, path, engine.WithLogger(newLogger(opts.RootOptions, cmd)))
	if err != nil {
		if errors.Is(err, driver.ErrReplayDiverged) {
			_ = formatter.Error("E_DIVERGED", err.Error(), nil)
			return WrapExitError(ExitFailure, "replay diverged", err)
		}
		return formatter.commandError(ErrCodeInternal, "replay failed", err)
	}

	result := ReplayResult{Path: path.String()}
	if fault != nil {
		v := viewTicket(*fault)
		result.Fault = &v
	}
	if expected != nil {
		v := viewTicket(*expected)
		result.Expected = &v
		result.Reproduced = fault != nil && fault.ID() == expected.ID()
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result, fault)
}

func readTicket(ctx context.Context, dbPath, id string) (store.StoredTicket, error) {
	st, err := openExisting(dbPath)
	if err != nil {
		return store.StoredTicket{}, err
	}
	defer st.Close()
	return st.ReadTicket(ctx, id)
}

// replayFailure returns the failure message of a replay, or "".
func replayFailure(result ReplayResult) string {
	switch {
	case result.Expected != nil && !result.Reproduced:
		return "replay did not reproduce ticket " + shortID(result.Expected.ID)
	case result.Expected == nil && result.Fault != nil:
		return "replay produced a " + result.Fault.Kind
	}
	return ""
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{Status: "ok", Data: result}

	failure := replayFailure(result)
	if failure != "" {
		response.Status = "error"
		response.Error = &CLIError{Code: "E_REPLAY", Message: failure}
	}

	if err := writeJSON(cmd.OutOrStdout(), response); err != nil {
		return err
	}
	if failure != "" {
		return NewExitError(ExitFailure, failure)
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, fault *ticket.Ticket) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay: %s\n", result.Path)
	fmt.Fprintln(w)

	if fault != nil {
		writeTicketText(w, *fault)
		fmt.Fprintln(w)
	} else {
		fmt.Fprintln(w, "Run terminated cleanly.")
	}

	if failure := replayFailure(result); failure != "" {
		fmt.Fprintf(w, "✗ %s\n", failure)
		return NewExitError(ExitFailure, failure)
	}
	if result.Reproduced {
		fmt.Fprintf(w, "✓ Reproduced ticket %s\n", shortID(result.Expected.ID))
	}
	return nil
}
