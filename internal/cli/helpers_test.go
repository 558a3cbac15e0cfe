package cli

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/spf13/cobra"

	"github.com/wdshin/Concuerror/internal/testutil"
)

const testSessionID = "cli-test-session"

// execute runs cmd with args and returns what it wrote to stdout and
// stderr.
func execute(cmd *cobra.Command, args ...string) (stdout, stderr string, err error) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// exploreCommand returns an explore command with a fixed session ID.
func exploreCommand(format string) *cobra.Command {
	return newExploreCommand(&ExploreOptions{
		RootOptions: &RootOptions{Format: format},
		SessionIDs:  testutil.FixedSessionID(testSessionID),
	})
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}
