// Command fxdispatch compiles animation catalogs and dispatches tabletop
// actions against them.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/fxdispatch/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
