// Command claimspec evaluates claim suites against datasets.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/claimspec/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		var exitErr *cli.ExitError
		// Commands print their own errors; only report the rest.
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	os.Exit(cli.GetExitCode(err))
}
