package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonmartinstorm/commitsnusern/internal/logger"
)

func main() {
	logger.SetupLogger()

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	code := runCommand(ctx, newRootCmd())
	cancel()

	os.Exit(code)
}
