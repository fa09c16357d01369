// Package cli provides the command-line interface for StockLens
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dyike/StockLens/internal/display"
)

// Run starts the CLI application
func Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		display.DisplayError(err, "")
		stop()
		os.Exit(1)
	}
}
