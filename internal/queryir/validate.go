package queryir

import (
	"errors"
	"fmt"
)

// ValidationResult contains the problems found in a query.
type ValidationResult struct {
	// IsValid indicates the query can be compiled.
	IsValid bool

	// Errors lists every problem found, in traversal order.
	Errors []string
}

// Err folds the result into one error, or nil.
func (r ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, msg := range r.Errors {
		errs[i] = errors.New(msg)
	}
	return fmt.Errorf("invalid query: %w", errors.Join(errs...))
}

// Validate checks that a query references known fields with values of the
// right type, and that every operator applies to its field.
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{errors: []string{}}
	v.validateQuery(query)

	return ValidationResult{
		IsValid: len(v.errors) == 0,
		Errors:  v.errors,
	}
}

// validator accumulates errors during traversal.
type validator struct {
	errors []string
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addError("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	default:
		v.addError("unsupported query type %T", q)
	}
}

func (v *validator) validateSelect(s Select) {
	if s.Limit < 0 {
		v.addError("limit must not be negative, got %d", s.Limit)
	}
	if s.Filter != nil {
		v.validatePredicate(s.Filter)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.validateValue("=", pred.Field, pred.Value)
	case NotEquals:
		v.validateValue("!=", pred.Field, pred.Value)
	case Compare:
		if !v.validateField(pred.Field) {
			return
		}
		switch pred.Op {
		case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		default:
			v.addError("unknown operator %q", pred.Op)
			return
		}
		if !pred.Field.IsInt() {
			v.addError("%s: operator %s needs an integer field", pred.Field, pred.Op)
		}
	case Contains:
		v.validateText("~", pred.Field)
	case Prefix:
		v.validateText("^", pred.Field)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case nil:
		v.addError("nil predicate")
	default:
		v.addError("unsupported predicate type %T", p)
	}
}

func (v *validator) validateField(f Field) bool {
	if !f.Known() {
		v.addError("unknown field %q", f)
		return false
	}
	return true
}

func (v *validator) validateText(op string, f Field) {
	if v.validateField(f) && f.IsInt() {
		v.addError("%s: operator %s needs a text field", f, op)
	}
}

func (v *validator) validateValue(op string, f Field, value any) {
	if !v.validateField(f) {
		return
	}
	switch value.(type) {
	case int64:
		if !f.IsInt() {
			v.addError("%s%s: text field compared to an integer", f, op)
		}
	case string:
		if f.IsInt() {
			v.addError("%s%s: integer field compared to text", f, op)
		}
	default:
		v.addError("%s%s: unsupported value type %T", f, op, value)
	}
}
