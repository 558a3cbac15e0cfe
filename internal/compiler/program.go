// Package compiler turns CUE program definitions into model programs.
//
// A CUE file declares programs under the top-level "program" struct:
//
//	program: LockOrder: {
//		description: "opposite lock order"
//		main:        "main"
//		process: main: steps: [
//			{op: "spawn", name: "worker"},
//			{op: "lock", name: "a"},
//		]
//		process: worker: steps: [{op: "lock", name: "b"}]
//	}
//
// The struct label is the program name. CUE constraints and defaults are
// resolved before compiling, so a program may be assembled from several
// definitions.
package compiler

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/wdshin/Concuerror/internal/model"
)

// CompileProgram parses a CUE value into a model.Program.
//
// The CUE value should be the program struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`program: Demo: { ... }`)
//	prog, err := CompileProgram(v.LookupPath(cue.ParsePath("program.Demo")))
//
// CompileProgram checks structure only; call Validate on the result for the
// semantic checks.
func CompileProgram(v cue.Value) (*model.Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	prog := &model.Program{Processes: map[string]model.Process{}}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		prog.Name = labels[len(labels)-1].String()
	}

	var err error
	if prog.Description, err = optionalString(v, "description"); err != nil {
		return nil, err
	}

	mainVal := v.LookupPath(cue.ParsePath("main"))
	if !mainVal.Exists() {
		return nil, &CompileError{
			Field:   "main",
			Message: "main is required",
			Pos:     v.Pos(),
		}
	}
	if prog.Main, err = mainVal.String(); err != nil {
		return nil, formatCUEError(err)
	}

	if msVal := v.LookupPath(cue.ParsePath("max_steps")); msVal.Exists() {
		n, err := msVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		prog.MaxSteps = int(n)
	}

	procsVal := v.LookupPath(cue.ParsePath("process"))
	if !procsVal.Exists() {
		return nil, &CompileError{
			Field:   "process",
			Message: "at least one process is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := procsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		proc, err := parseProcess(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		prog.Processes[iter.Label()] = proc
	}

	return prog, nil
}

func parseProcess(name string, v cue.Value) (model.Process, error) {
	var proc model.Process

	stepsVal := v.LookupPath(cue.ParsePath("steps"))
	if !stepsVal.Exists() {
		return proc, nil
	}
	list, err := stepsVal.List()
	if err != nil {
		return proc, formatCUEError(err)
	}

	for i := 0; list.Next(); i++ {
		step, err := parseStep(list.Value())
		if err != nil {
			if ce, ok := err.(*CompileError); ok {
				ce.Field = fmt.Sprintf("process.%s.steps[%d].%s", name, i, ce.Field)
			}
			return proc, err
		}
		proc.Steps = append(proc.Steps, step)
	}
	return proc, nil
}

func parseStep(v cue.Value) (model.Step, error) {
	var step model.Step

	opVal := v.LookupPath(cue.ParsePath("op"))
	if !opVal.Exists() {
		return step, &CompileError{Field: "op", Message: "op is required", Pos: v.Pos()}
	}
	op, err := opVal.String()
	if err != nil {
		return step, formatCUEError(err)
	}
	step.Op = model.Op(op)

	strs := []struct {
		field string
		dst   *string
	}{{"name", &step.Name}, {"into", &step.Into}, {"from", &step.From}}
	for _, s := range strs {
		if *s.dst, err = optionalString(v, s.field); err != nil {
			return step, err
		}
	}

	ints := []struct {
		field string
		dst   *int64
	}{{"add", &step.Add}, {"value", &step.Value}}
	for _, n := range ints {
		f := v.LookupPath(cue.ParsePath(n.field))
		if !f.Exists() {
			continue
		}
		if *n.dst, err = intField(f, n.field); err != nil {
			return step, err
		}
	}

	if eq := v.LookupPath(cue.ParsePath("equals")); eq.Exists() {
		n, err := intField(eq, "equals")
		if err != nil {
			return step, err
		}
		step.Equals = &n
	}

	return step, nil
}

// intField reads an integer field. Floats are rejected; shared variables
// are int64.
func intField(v cue.Value, field string) (int64, error) {
	switch v.IncompleteKind() {
	case cue.IntKind:
		return v.Int64()
	case cue.FloatKind, cue.NumberKind:
		return 0, &CompileError{
			Field:   field,
			Message: "float values are not supported, use int",
			Pos:     v.Pos(),
		}
	default:
		return 0, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("expected int, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func optionalString(v cue.Value, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileAll compiles every program declared under "program" in v, sorted
// by name.
func CompileAll(v cue.Value) ([]*model.Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	progsVal := v.LookupPath(cue.ParsePath("program"))
	if !progsVal.Exists() {
		return nil, &CompileError{Field: "program", Message: "no programs declared", Pos: v.Pos()}
	}

	iter, err := progsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var progs []*model.Program
	for iter.Next() {
		prog, err := CompileProgram(iter.Value())
		if err != nil {
			return nil, err
		}
		progs = append(progs, prog)
	}
	slices.SortFunc(progs, func(a, b *model.Program) int {
		return strings.Compare(a.Name, b.Name)
	})
	return progs, nil
}

// LoadFile compiles the programs of one .cue file.
func LoadFile(path string) ([]*model.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CUE file: %w", err)
	}
	v := cuecontext.New().CompileBytes(data, cue.Filename(path))
	return CompileAll(v)
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
