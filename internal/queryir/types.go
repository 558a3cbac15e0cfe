package queryir

import "fmt"

// Query selects a set of stored tickets.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate is a filter condition on one ticket row.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Equals: field = value
//   - NotEquals: field != value
//   - Compare: integer field <op> value
//   - Contains: text field contains value
//   - Prefix: text field starts with value
//   - And: all predicates must be true
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Field names a ticket column that filters may reference.
type Field string

const (
	FieldID      Field = "id"
	FieldSession Field = "session"
	FieldTarget  Field = "target"
	FieldKind    Field = "kind"
	FieldDetail  Field = "detail"
	FieldPath    Field = "path"
	FieldRound   Field = "round"
	FieldSeq     Field = "seq"
)

// Fields lists every filterable field in documentation order.
var Fields = []Field{FieldID, FieldSession, FieldTarget, FieldKind, FieldDetail, FieldPath, FieldRound, FieldSeq}

// IsInt reports whether f holds integers. All other fields hold text.
func (f Field) IsInt() bool {
	return f == FieldRound || f == FieldSeq
}

// Known reports whether f is one of Fields.
func (f Field) Known() bool {
	for _, known := range Fields {
		if f == known {
			return true
		}
	}
	return false
}

// Select reads the tickets matching Filter in discovery order: oldest
// session first, then by the order the session found them.
//
// Semantics:
//
//	SELECT <ticket columns> FROM tickets WHERE <filter> ORDER BY <discovery> LIMIT <limit>
type Select struct {
	Filter Predicate // WHERE conditions (nil = no filter)
	Limit  int       // 0 = no limit
}

func (Select) queryNode() {}

// Equals is field = value. Value is a string for text fields and an int64
// for integer fields.
type Equals struct {
	Field Field
	Value any
}

func (Equals) predicateNode() {}

// NotEquals is field != value.
type NotEquals struct {
	Field Field
	Value any
}

func (NotEquals) predicateNode() {}

// CompareOp is an ordering operator.
type CompareOp string

const (
	OpLess         CompareOp = "<"
	OpLessEqual    CompareOp = "<="
	OpGreater      CompareOp = ">"
	OpGreaterEqual CompareOp = ">="
)

// Compare orders an integer field against a value.
type Compare struct {
	Field Field
	Op    CompareOp
	Value int64
}

func (Compare) predicateNode() {}

// Contains matches text fields containing Value.
type Contains struct {
	Field Field
	Value string
}

func (Contains) predicateNode() {}

// Prefix matches text fields starting with Value.
type Prefix struct {
	Field Field
	Value string
}

func (Prefix) predicateNode() {}

// And is the conjunction of Predicates. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Where returns a Select over the conjunction of preds, dropping nils.
func Where(preds ...Predicate) Select {
	var kept []Predicate
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return Select{}
	case 1:
		return Select{Filter: kept[0]}
	}
	return Select{Filter: And{Predicates: kept}}
}

// String renders p in the filter syntax.
func String(p Predicate) string {
	switch pred := p.(type) {
	case nil:
		return ""
	case Equals:
		return fmt.Sprintf("%s=%s", pred.Field, formatValue(pred.Value))
	case NotEquals:
		return fmt.Sprintf("%s!=%s", pred.Field, formatValue(pred.Value))
	case Compare:
		return fmt.Sprintf("%s%s%d", pred.Field, pred.Op, pred.Value)
	case Contains:
		return fmt.Sprintf("%s~%s", pred.Field, formatValue(pred.Value))
	case Prefix:
		return fmt.Sprintf("%s^%s", pred.Field, formatValue(pred.Value))
	case And:
		s := ""
		for i, sub := range pred.Predicates {
			if i > 0 {
				s += " "
			}
			s += String(sub)
		}
		return s
	}
	return fmt.Sprintf("<%T>", p)
}

func formatValue(v any) string {
	if s, ok := v.(string); ok && needsQuotes(s) {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprint(v)
}
