package queryir

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// operators in match order; two-character operators first.
var operators = []string{"!=", "<=", ">=", "=", "<", ">", "~", "^"}

// Parse reads a filter (see the package documentation) and returns the
// validated Select. An empty filter selects every ticket.
func Parse(filter string) (Select, error) {
	terms, err := splitTerms(filter)
	if err != nil {
		return Select{}, err
	}

	preds := make([]Predicate, 0, len(terms))
	for _, term := range terms {
		p, err := parseTerm(term)
		if err != nil {
			return Select{}, fmt.Errorf("term %q: %w", term, err)
		}
		preds = append(preds, p)
	}

	q := Where(preds...)
	if err := Validate(q).Err(); err != nil {
		return Select{}, err
	}
	return q, nil
}

// splitTerms splits at whitespace and commas outside double quotes.
func splitTerms(s string) ([]string, error) {
	var terms []string
	var cur strings.Builder
	quoted := false
	escaped := false

	flush := func() {
		if cur.Len() > 0 {
			terms = append(terms, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case quoted && r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
		case !quoted && (r == ',' || unicode.IsSpace(r)):
			flush()
			continue
		}
		cur.WriteRune(r)
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote in filter %q", s)
	}
	flush()
	return terms, nil
}

func parseTerm(term string) (Predicate, error) {
	idx, op := -1, ""
	for _, candidate := range operators {
		if i := strings.Index(term, candidate); i > 0 && (idx < 0 || i < idx) {
			idx, op = i, candidate
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("expected field, operator and value")
	}

	field := Field(strings.ToLower(term[:idx]))
	raw := term[idx+len(op):]
	if !field.Known() {
		return nil, fmt.Errorf("unknown field %q", field)
	}

	text, err := unquote(raw)
	if err != nil {
		return nil, err
	}

	switch op {
	case "~":
		return Contains{Field: field, Value: text}, nil
	case "^":
		return Prefix{Field: field, Value: text}, nil
	}

	if !field.IsInt() {
		switch op {
		case "=":
			return Equals{Field: field, Value: text}, nil
		case "!=":
			return NotEquals{Field: field, Value: text}, nil
		}
		return nil, fmt.Errorf("operator %s needs an integer field", op)
	}

	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s takes an integer, got %q", field, text)
	}
	switch op {
	case "=":
		return Equals{Field: field, Value: n}, nil
	case "!=":
		return NotEquals{Field: field, Value: n}, nil
	}
	return Compare{Field: field, Op: CompareOp(op), Value: n}, nil
}

func unquote(s string) (string, error) {
	if !strings.HasPrefix(s, `"`) {
		if s == "" {
			return "", fmt.Errorf("missing value")
		}
		return s, nil
	}
	text, err := strconv.Unquote(s)
	if err != nil {
		return "", fmt.Errorf("bad quoted value %s", s)
	}
	return text, nil
}

func needsQuotes(s string) bool {
	return s == "" || strings.ContainsAny(s, "\", \t\n")
}
