// Package model describes target programs as data.
//
// A Program is a set of named processes, each a list of steps over shared
// mutexes, mailboxes and int64 variables. Programs are written in YAML (or
// CUE, see internal/compiler) and interpreted on top of internal/driver, so
// the same file can be explored, replayed and checked into a scenario.
package model

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Op names a step operation.
type Op string

const (
	OpLock   Op = "lock"
	OpUnlock Op = "unlock"
	OpSpawn  Op = "spawn"
	OpYield  Op = "yield"
	OpSend   Op = "send"
	OpRecv   Op = "recv"
	OpRead   Op = "read"
	OpWrite  Op = "write"
	OpAssert Op = "assert"
)

// Ops lists every supported operation in documentation order.
var Ops = []Op{OpLock, OpUnlock, OpSpawn, OpYield, OpSend, OpRecv, OpRead, OpWrite, OpAssert}

// Program is a target program.
type Program struct {
	Name        string             `yaml:"name" json:"name"`
	Description string             `yaml:"description,omitempty" json:"description,omitempty"`
	Main        string             `yaml:"main" json:"main"`
	MaxSteps    int                `yaml:"max_steps,omitempty" json:"max_steps,omitempty"`
	Processes   map[string]Process `yaml:"processes" json:"processes"`
}

// Process is the body of one kind of process.
type Process struct {
	Steps []Step `yaml:"steps" json:"steps"`
}

// Step is one operation of a process.
//
// Name is the mutex, mailbox, process, shared variable or yield label the
// operation refers to. Into and From name process-local registers.
type Step struct {
	Op     Op     `yaml:"op" json:"op"`
	Name   string `yaml:"name,omitempty" json:"name,omitempty"`
	Into   string `yaml:"into,omitempty" json:"into,omitempty"`
	From   string `yaml:"from,omitempty" json:"from,omitempty"`
	Add    int64  `yaml:"add,omitempty" json:"add,omitempty"`
	Value  int64  `yaml:"value,omitempty" json:"value,omitempty"`
	Equals *int64 `yaml:"equals,omitempty" json:"equals,omitempty"`
}

// String renders the step the way it appears in traces.
func (s Step) String() string {
	if s.Name == "" {
		return string(s.Op)
	}
	return string(s.Op) + " " + s.Name
}

// Load reads a YAML program from path.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read program file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML program. Unknown fields are rejected. Parse does not
// validate; call Validate before running the program.
func Parse(data []byte) (*Program, error) {
	var prog Program
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&prog); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &prog, nil
}

// ProcessNames returns the process names in sorted order.
func (p *Program) ProcessNames() []string {
	names := make([]string, 0, len(p.Processes))
	for name := range p.Processes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Validation error codes (E200-E299)
const (
	ErrProgramName     = "E201" // name is required
	ErrProgramMain     = "E202" // main is required
	ErrUnknownMain     = "E203" // main names no process
	ErrUnknownOp       = "E204" // unsupported op
	ErrMissingName     = "E205" // op requires a name
	ErrUnknownProcess  = "E206" // spawn of an undefined process
	ErrMissingInto     = "E207" // read/recv require into
	ErrMissingEquals   = "E208" // assert requires equals
	ErrUndefinedLocal  = "E209" // from names a register never assigned before
	ErrNegativeMaxStep = "E210" // max_steps must not be negative
)

// ValidationError is one problem found by Validate.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks the program and returns every problem found, ordered by
// process name and step index.
func (p *Program) Validate() []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "name is required", Code: ErrProgramName})
	}
	if p.Main == "" {
		errs = append(errs, ValidationError{Field: "main", Message: "main is required", Code: ErrProgramMain})
	} else if _, ok := p.Processes[p.Main]; !ok {
		errs = append(errs, ValidationError{
			Field:   "main",
			Message: fmt.Sprintf("process %q is not defined", p.Main),
			Code:    ErrUnknownMain,
		})
	}
	if p.MaxSteps < 0 {
		errs = append(errs, ValidationError{Field: "max_steps", Message: "must not be negative", Code: ErrNegativeMaxStep})
	}

	for _, name := range p.ProcessNames() {
		errs = append(errs, p.validateProcess(name)...)
	}
	return errs
}

func (p *Program) validateProcess(name string) []ValidationError {
	var errs []ValidationError
	assigned := map[string]bool{}

	for i, s := range p.Processes[name].Steps {
		field := fmt.Sprintf("processes.%s.steps[%d]", name, i)
		fail := func(code, format string, args ...any) {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code})
		}

		if !slices.Contains(Ops, s.Op) {
			fail(ErrUnknownOp, "unsupported op %q", s.Op)
			continue
		}
		if s.Name == "" && s.Op != OpYield {
			fail(ErrMissingName, "%s requires a name", s.Op)
		}

		switch s.Op {
		case OpSpawn:
			if _, ok := p.Processes[s.Name]; s.Name != "" && !ok {
				fail(ErrUnknownProcess, "process %q is not defined", s.Name)
			}
		case OpRead, OpRecv:
			if s.Into == "" {
				fail(ErrMissingInto, "%s requires into", s.Op)
			} else {
				assigned[s.Into] = true
			}
		case OpWrite, OpSend:
			if s.From != "" && !assigned[s.From] {
				fail(ErrUndefinedLocal, "register %q is read before it is assigned", s.From)
			}
		case OpAssert:
			if s.Equals == nil {
				fail(ErrMissingEquals, "assert requires equals")
			}
		}
	}
	return errs
}

// Err folds the result of Validate into one error, or nil.
func (p *Program) Err() error {
	errs := p.Validate()
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("invalid program %q: %s", p.Name, strings.Join(msgs, "; "))
}
