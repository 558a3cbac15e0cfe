package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/wdshin/Concuerror/internal/ir"
	"github.com/wdshin/Concuerror/internal/schedule"
	"github.com/wdshin/Concuerror/internal/ticket"
)

// marshalPath converts a schedule path to canonical JSON TEXT for storage.
func marshalPath(p schedule.Path) (string, error) {
	data, err := ir.MarshalCanonical(p.Strings())
	if err != nil {
		return "", fmt.Errorf("marshal path: %w", err)
	}
	return string(data), nil
}

// marshalTrace converts a trace to canonical JSON TEXT. An empty trace is
// stored as NULL.
func marshalTrace(trace []ticket.Event) (sql.NullString, error) {
	if len(trace) == 0 {
		return sql.NullString{}, nil
	}
	events := make([]any, len(trace))
	for i, ev := range trace {
		events[i] = map[string]any{
			"step":   ev.Step,
			"lid":    ev.LID,
			"action": ev.Action,
		}
	}
	data, err := ir.MarshalCanonical(events)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal trace: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalPath(data string) (schedule.Path, error) {
	var p schedule.Path
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return schedule.Empty(), fmt.Errorf("unmarshal path: %w", err)
	}
	return p, nil
}

func unmarshalTrace(data sql.NullString) ([]ticket.Event, error) {
	if !data.Valid {
		return nil, nil
	}
	var trace []ticket.Event
	if err := json.Unmarshal([]byte(data.String), &trace); err != nil {
		return nil, fmt.Errorf("unmarshal trace: %w", err)
	}
	return trace, nil
}
