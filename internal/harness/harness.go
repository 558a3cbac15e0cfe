package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wdshin/Concuerror/internal/compiler"
	"github.com/wdshin/Concuerror/internal/engine"
	"github.com/wdshin/Concuerror/internal/logging"
	"github.com/wdshin/Concuerror/internal/model"
	"github.com/wdshin/Concuerror/internal/schedule"
	"github.com/wdshin/Concuerror/internal/store"
	"github.com/wdshin/Concuerror/internal/testutil"
	"github.com/wdshin/Concuerror/internal/ticket"
)

// Harness runs scenarios against a store.
type Harness struct {
	store  *store.Store
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, with the
// fixed test session ID so snapshots are reproducible.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load and validate the program
// 3. Explore it, persisting every ticket as it is found
// 4. Read the session and its tickets back from the store
// 5. Evaluate the expectations
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{store: st, logger: logging.NewNop()}
	return h.Run(context.Background(), scenario)
}

// Run executes scenario against the harness store.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	prog, err := loadProgram(scenario)
	if err != nil {
		return nil, err
	}
	target, err := prog.Target()
	if err != nil {
		return nil, err
	}
	initPath, err := schedule.Parse(scenario.Options.InitPath)
	if err != nil {
		return nil, fmt.Errorf("options.init_path: %w", err)
	}

	sessionID := testutil.FixedSessionID("").Generate()
	if err := h.store.WriteSession(ctx, store.Session{
		ID:      sessionID,
		Target:  prog.Name,
		Outcome: store.OutcomeRunning,
	}); err != nil {
		return nil, err
	}

	var seq int64
	hook := func(t ticket.Ticket) error {
		err := h.store.WriteTicket(ctx, sessionID, seq, t)
		seq++
		return err
	}

	session, err := engine.Explore(ctx, target,
		engine.WithLogger(h.logger),
		engine.WithSessionIDs(testutil.FixedSessionID(sessionID)),
		engine.WithInitSchedulePath(initPath),
		engine.WithMaxRounds(scenario.Options.MaxRounds),
		engine.WithDetails(scenario.Options.Details),
		engine.WithTicketHook(hook),
	)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	outcome := store.OutcomeOK
	if !session.OK() {
		outcome = store.OutcomeFail
	}
	if err := h.store.WriteSession(ctx, store.Session{
		ID:      sessionID,
		Target:  prog.Name,
		Runs:    session.Runs,
		Rounds:  session.Rounds,
		Pending: session.Pending,
		Outcome: outcome,
	}); err != nil {
		return nil, err
	}

	result := NewResult()
	result.Session = session
	if result.Tickets, err = h.store.ListTickets(ctx, sessionID); err != nil {
		return nil, err
	}

	for _, msg := range CheckExpect(scenario.Expect, result) {
		result.AddError(msg)
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"runs", session.Runs,
		"tickets", len(result.Tickets),
	)
	return result, nil
}

func loadProgram(s *Scenario) (*model.Program, error) {
	if s.Program != nil {
		return s.Program, nil
	}
	prog, err := compiler.LoadProgram(s.ProgramFile, s.ProgramName)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	return prog, nil
}
