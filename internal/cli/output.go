package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wdshin/Concuerror/internal/ticket"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Tickets found, scenarios failed, replay diverged
	ExitCommandError = 2 // Command error (invalid paths, database not found, etc.)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter renders command results as text or JSON.
//
// Results and errors go to Writer; diagnostics go to ErrWriter so JSON on
// Writer stays parseable.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // defaults to Writer
	Verbose   bool
}

// newFormatter builds the formatter of one command invocation.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// JSON reports whether results are rendered as JSON.
func (f *OutputFormatter) JSON() bool {
	return f.Format == "json"
}

// CLIResponse is the JSON envelope of every command result.
type CLIResponse struct {
	Status    string      `json:"status"`               // "ok" or "error"
	Data      interface{} `json:"data,omitempty"`       // command payload
	Error     *CLIError   `json:"error,omitempty"`      // set when Status is "error"
	SessionID string      `json:"session_id,omitempty"` // exploration session, if any
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E001", "E_TICKETS", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // e.g. validation problems
}

// Success writes data as an ok response. Text output is left to the
// command, so Success only handles JSON.
func (f *OutputFormatter) Success(data interface{}) error {
	return writeJSON(f.Writer, CLIResponse{Status: "ok", Data: data})
}

// Error reports an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.JSON() {
		return writeJSON(f.Writer, CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog writes a diagnostic line when verbose mode is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// writeJSON encodes response as indented JSON.
func writeJSON(w io.Writer, response CLIResponse) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// commandError reports err in the configured format and returns it as a
// command error (exit code 2).
func (f *OutputFormatter) commandError(code, message string, err error) error {
	_ = f.Error(code, fmt.Sprintf("%s: %v", message, err), nil)
	return WrapExitError(ExitCommandError, message, err)
}

// TicketView is the JSON form of a ticket.
type TicketView struct {
	ID     string         `json:"id"`
	Target string         `json:"target"`
	Kind   string         `json:"kind"`
	Detail string         `json:"detail"`
	Path   string         `json:"path"`
	Round  int            `json:"round"`
	Trace  []ticket.Event `json:"trace,omitempty"`
}

func viewTicket(t ticket.Ticket) TicketView {
	return TicketView{
		ID:     t.ID(),
		Target: t.Target,
		Kind:   t.Kind,
		Detail: t.Detail,
		Path:   t.Path.String(),
		Round:  t.Round,
		Trace:  t.Trace,
	}
}

func viewTickets(ts []ticket.Ticket) []TicketView {
	views := make([]TicketView, len(ts))
	for i, t := range ts {
		views[i] = viewTicket(t)
	}
	return views
}

// writeTicketText renders a ticket for humans:
//
//	✗ deadlock  ea547d89c065  round 1
//	  2 blocked: P1 (lock b), P1.1 (lock a)
//	  path: P1,P1,P1,P1.1,P1.1
func writeTicketText(w io.Writer, t ticket.Ticket) {
	fmt.Fprintf(w, "✗ %s  %s  round %d\n", t.Kind, shortID(t.ID()), t.Round)
	fmt.Fprintf(w, "  %s\n", t.Detail)
	fmt.Fprintf(w, "  path: %s\n", t.Path.String())
	if len(t.Trace) == 0 {
		return
	}
	width := 0
	for _, ev := range t.Trace {
		width = max(width, len(ev.LID))
	}
	fmt.Fprintln(w, "  trace:")
	for _, ev := range t.Trace {
		fmt.Fprintf(w, "  %4d  %-*s  %s\n", ev.Step, width, ev.LID, ev.Action)
	}
}

// shortID abbreviates a ticket ID; ReadTicket accepts any prefix of eight
// or more characters.
func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12]
}

// pluralize returns "1 ticket" or "n tickets".
func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// joinKinds lists the distinct ticket kinds in order of appearance.
func joinKinds(ts []ticket.Ticket) string {
	var kinds []string
	seen := map[string]bool{}
	for _, t := range ts {
		if !seen[t.Kind] {
			seen[t.Kind] = true
			kinds = append(kinds, t.Kind)
		}
	}
	return strings.Join(kinds, ", ")
}
