// Command undoredo records changes to SQLite tables and steps them back and
// forth.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/undoredo/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
