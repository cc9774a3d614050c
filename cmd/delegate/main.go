// Command delegate compiles formula expressions for delegation to tabular
// data sources. See "delegate --help".
package main

import (
	"fmt"
	"os"

	"github.com/roach88/delegation/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "delegate: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
