// Command concha answers natural-language sentences with tricks.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/concha/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
