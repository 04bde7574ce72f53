// Command salesagg aggregates sales CSV files into a per-product revenue
// summary.
//
//	salesagg [input_directory] [output_path]
//	salesagg inspect [input_directory]
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	// register every engine and mirror driver; the config picks one at runtime.
	_ "salesagg/internal/engine/all"
	_ "salesagg/internal/storage/all"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "❌ %s: %v\n", failurePrefix(err), err)
		return 1
	}
	return 0
}
