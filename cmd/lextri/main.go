// Command lextri detects tri-temporal anomalies and runs the analyst swarm.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/Clyde17271/LEX-TRI/internal/cli"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	cmd := cli.NewRootCommand()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(stderr, "Error: "+err.Error())
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}
