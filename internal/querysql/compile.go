// Package querysql compiles ticket queries to parameterized SQLite SQL.
package querysql

import (
	"fmt"
	"strings"

	"github.com/wdshin/Concuerror/internal/queryir"
)

// TicketColumns is the column list every compiled query selects, in the
// order store.scanTicket reads them.
const TicketColumns = "t.id, t.session_id, t.target, t.kind, t.detail, t.path, t.round, t.trace, t.seq"

// columns maps every filterable field to its qualified column.
var columns = map[queryir.Field]string{
	queryir.FieldID:      "t.id",
	queryir.FieldSession: "t.session_id",
	queryir.FieldTarget:  "t.target",
	queryir.FieldKind:    "t.kind",
	queryir.FieldDetail:  "t.detail",
	queryir.FieldPath:    "t.path",
	queryir.FieldRound:   "t.round",
	queryir.FieldSeq:     "t.seq",
}

// Compile converts a query to parameterized SQL.
// Returns (sql, params, error) tuple.
//
// Every query is ordered by discovery: session seq, ticket seq, then ticket
// ID as a tiebreaker. Values are always bound as parameters, never
// interpolated.
func Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	if err := queryir.Validate(q).Err(); err != nil {
		return "", nil, err
	}

	switch query := q.(type) {
	case queryir.Select:
		return compileSelect(query)
	case *queryir.Select:
		return compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func compileSelect(q queryir.Select) (string, []any, error) {
	var whereClause string
	var params []any
	if q.Filter != nil {
		filterSQL, filterParams, err := compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		whereClause = " WHERE " + filterSQL
		params = filterParams
	}

	sql := "SELECT " + TicketColumns +
		" FROM tickets t JOIN sessions s ON t.session_id = s.id" +
		whereClause +
		" ORDER BY s.seq ASC, t.seq ASC, t.id COLLATE BINARY ASC"

	if q.Limit > 0 {
		sql += " LIMIT ?"
		params = append(params, q.Limit)
	}
	return sql, params, nil
}

// compilePredicate compiles a predicate to a WHERE clause fragment.
func compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return column(pred.Field) + " = ?", []any{pred.Value}, nil
	case queryir.NotEquals:
		return column(pred.Field) + " != ?", []any{pred.Value}, nil
	case queryir.Compare:
		return fmt.Sprintf("%s %s ?", column(pred.Field), pred.Op), []any{pred.Value}, nil
	case queryir.Contains:
		return column(pred.Field) + ` LIKE ? ESCAPE '\'`, []any{"%" + escapeLike(pred.Value) + "%"}, nil
	case queryir.Prefix:
		return column(pred.Field) + ` LIKE ? ESCAPE '\'`, []any{escapeLike(pred.Value) + "%"}, nil
	case queryir.And:
		return compileAnd(pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileAnd compiles an And predicate to conjunction with AND.
func compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // Always true (vacuous truth)
	}

	sqlParts := make([]string, 0, len(and.Predicates))
	var allParams []any
	for _, pred := range and.Predicates {
		sql, params, err := compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if _, nested := pred.(queryir.And); nested {
			sql = "(" + sql + ")"
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}
	return strings.Join(sqlParts, " AND "), allParams, nil
}

func column(f queryir.Field) string {
	return columns[f]
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
