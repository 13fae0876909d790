// Command timealg drives, records and replays time-tagged simulation runs.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/timealgebra/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "timealg:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
