package main

import (
	"log/slog"
	"os"

	"storefront/internal/infrastructure"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the CLI and returns the process exit code. The log file is
// closed before returning.
func run(args []string) int {
	defer infrastructure.CloseLogFile()

	cmd := newRootCmd()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		slog.Error("storefront failed", slog.String("error", err.Error()))
		return 1
	}
	return 0
}
