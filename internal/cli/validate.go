package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wdshin/Concuerror/internal/model"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                    `json:"valid"`
	Program   string                  `json:"program,omitempty"`
	Processes []string                `json:"processes,omitempty"`
	Errors    []model.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var programName string

	cmd := &cobra.Command{
		Use:   "validate <program>",
		Short: "Validate a program without exploring it",
		Long: `Validate a YAML or CUE program without exploring it.

Checks syntax, unknown fields, process references, and that every register
is assigned before it is read. All problems are reported, not just the
first one.

Exit codes:
  0 - Program is valid
  1 - Validation failed
  2 - Command error (file not found, CUE error, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], programName, cmd)
		},
	}

	cmd.Flags().StringVar(&programName, "program", "", "program name within a CUE file")

	return cmd
}

func runValidate(opts *RootOptions, programPath, programName string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	prog, err := LoadProgram(programPath, programName)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Error(), nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	formatter.VerboseLog("Validating program %s (%d processes)", prog.Name, len(prog.Processes))

	if errs := prog.Validate(); len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}
	return outputValidateSuccess(formatter, prog)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, prog *model.Program) error {
	if formatter.JSON() {
		return formatter.Success(ValidationResult{
			Valid:     true,
			Program:   prog.Name,
			Processes: prog.ProcessNames(),
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ Program %s is valid (%d processes)\n", prog.Name, len(prog.Processes))
	return nil
}

// outputValidateError outputs a single load error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []model.ValidationError) error {
	if formatter.JSON() {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := writeJSON(formatter.Writer, response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "%s\n", err.Field)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
