package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/scim-tools/scim-console/cmd"
	"github.com/scim-tools/scim-console/internal/logging"
)

func main() {
	// Pre-parse --debug so the logger is configured before cobra runs.
	var debug bool
	for _, arg := range os.Args[1:] {
		if arg == "--debug" {
			debug = true
			break
		}
	}
	logging.Init(debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.ExecuteContext(ctx)
}
