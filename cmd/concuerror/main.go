// Command concuerror explores the interleavings of concurrent programs.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/wdshin/Concuerror/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "concuerror:", err)

	// Commands report their outcomes as ExitErrors; anything else is cobra
	// rejecting the command line.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		os.Exit(cli.ExitCommandError)
	}
	os.Exit(exitErr.Code)
}
