package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lockOrderTicket = "ea547d89c065fb71da138f1cf2b9383f2e08e91fd22be39fd08ea0040d07f74a"


// exploreToDB explores lock_order into a fresh database and returns its path.
func exploreToDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "tickets.db")
	_, _, err := execute(exploreCommand("text"), "--db", dbPath, "testdata/lock_order.yaml")
	require.Equal(t, ExitFailure, GetExitCode(err))
	return dbPath
}

func TestReplay_PathText(t *testing.T) {
	stdout, _, err := execute(NewReplayCommand(&RootOptions{Format: "text"}),
		"--path", "P1,P1,P1,P1.1,P1.1", "testdata/lock_order.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	newGoldie(t).Assert(t, "replay_lock_order", []byte(stdout))
}

func TestReplay_PathClean(t *testing.T) {
	stdout, _, err := execute(NewReplayCommand(&RootOptions{Format: "text"}),
		"--path", "P1", "testdata/lock_order.yaml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Run terminated cleanly.")
}

func TestReplay_Ticket(t *testing.T) {
	dbPath := exploreToDB(t)

	stdout, _, err := execute(NewReplayCommand(&RootOptions{Format: "json"}),
		"--db", dbPath, "--ticket", lockOrderTicket[:8], "testdata/lock_order.yaml")
	require.NoError(t, err)

	var response struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &response))

	assert.Equal(t, "ok", response.Status)
	assert.True(t, response.Data.Reproduced)
	assert.Equal(t, "P1,P1,P1,P1.1,P1.1", response.Data.Path)
	require.NotNil(t, response.Data.Expected)
	require.NotNil(t, response.Data.Fault)
	assert.Equal(t, lockOrderTicket, response.Data.Fault.ID)
	assert.Equal(t, 1, response.Data.Expected.Round)
	assert.Len(t, response.Data.Fault.Trace, 5)
}

func TestReplay_TicketText(t *testing.T) {
	dbPath := exploreToDB(t)

	stdout, _, err := execute(NewReplayCommand(&RootOptions{Format: "text"}),
		"--db", dbPath, "--ticket", lockOrderTicket, "testdata/lock_order.yaml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Reproduced ticket ea547d89c065")
}

func TestReplay_TicketFromOtherProgram(t *testing.T) {
	dbPath := exploreToDB(t)

	_, _, err := execute(NewReplayCommand(&RootOptions{Format: "text"}),
		"--db", dbPath, "--ticket", lockOrderTicket, "testdata/guarded_update.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "ticket does not match program")
}

func TestReplay_Diverged(t *testing.T) {
	stdout, _, err := execute(NewReplayCommand(&RootOptions{Format: "text"}),
		"--path", "P1,P2", "testdata/lock_order.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "replay diverged")
	assert.Contains(t, stdout, "E_DIVERGED")
}

func TestReplay_Errors(t *testing.T) {
	missingDB := filepath.Join(t.TempDir(), "missing.db")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"nothing to replay", []string{"testdata/lock_order.yaml"}, "one of --path or --ticket is required"},
		{"missing database", []string{"--db", missingDB, "--ticket", lockOrderTicket, "testdata/lock_order.yaml"}, "database not found"},
		{"bad path", []string{"--path", "Q1", "testdata/lock_order.yaml"}, "invalid --path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(NewReplayCommand(&RootOptions{Format: "text"}), tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReplay_UnknownTicket(t *testing.T) {
	dbPath := exploreToDB(t)

	_, _, err := execute(NewReplayCommand(&RootOptions{Format: "text"}),
		"--db", dbPath, "--ticket", "00000000", "testdata/lock_order.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "not found")
}

func TestReplay_FlagConflicts(t *testing.T) {
	_, _, err := execute(NewReplayCommand(&RootOptions{Format: "text"}),
		"--path", "P1", "--ticket", lockOrderTicket, "--db", "x.db", "testdata/lock_order.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")

	_, _, err = execute(NewReplayCommand(&RootOptions{Format: "text"}),
		"--ticket", lockOrderTicket, "testdata/lock_order.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must all be set")
}
