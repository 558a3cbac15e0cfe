package cli

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue/token"

	"github.com/wdshin/Concuerror/internal/compiler"
	"github.com/wdshin/Concuerror/internal/driver"
	"github.com/wdshin/Concuerror/internal/model"
)

// LoadError represents an error that occurred while loading a program.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available

	// Problems holds the validation errors when Code is ErrCodeInvalid.
	Problems []model.ValidationError
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadProgram reads the program in path without validating it. Files ending
// in .cue are compiled with CUE; name picks one program of a CUE file that
// declares several.
func LoadProgram(path, name string) (*model.Program, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("program file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing program file: %v", err)}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a file: %s", path)}
	}

	prog, err := compiler.LoadProgram(path, name)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return prog, nil
}

// LoadTarget loads and validates the program in path and builds the driver
// program that interprets it.
func LoadTarget(path, name string) (*model.Program, *driver.Program, error) {
	prog, err := LoadProgram(path, name)
	if err != nil {
		return nil, nil, err
	}
	if problems := prog.Validate(); len(problems) > 0 {
		return nil, nil, &LoadError{
			Code:     ErrCodeInvalid,
			Message:  fmt.Sprintf("program %q has %d problem(s), first: %s", prog.Name, len(problems), problems[0].Error()),
			Problems: problems,
		}
	}
	target, err := prog.Target()
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeInvalid, Message: err.Error()}
	}
	return prog, target, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeCompile,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// loadErrorCode returns the code of a LoadError, or ErrCodeGeneric.
func loadErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ErrCodeGeneric
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric    = "E001" // Generic/unknown error
	ErrCodeLoadFailed = "E004" // Program file unreadable or malformed
	ErrCodeNotFound   = "E005" // Path not found
	ErrCodeCompile    = "E006" // CUE compilation failed
	ErrCodeWrite      = "E007" // File write error
	ErrCodeInvalid    = "E010" // Program failed validation
	ErrCodeBadPath    = "E011" // Schedule path does not parse
	ErrCodeBadQuery   = "E012" // Ticket filter does not parse
	ErrCodeStore      = "E020" // Database error
	ErrCodeInternal   = "E030" // Exploration aborted by an internal fault
)
