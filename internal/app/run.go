package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/logging"
)

type Runner func(ctx context.Context) error

// drainTimeout bounds how long Run waits for the runner after a signal.
var drainTimeout = 30 * time.Second

// Run executes run with a context cancelled on SIGINT/SIGTERM and returns the
// process exit code.
func Run(serviceName string, run Runner) int {
	return runWithContext(context.Background(), serviceName, run)
}

func runWithContext(parent context.Context, serviceName string, run Runner) int {
	logging.Info().Str("service", serviceName).Msg("starting")

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx) }()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		logging.Info().Str("service", serviceName).Msg("shutting down")
		select {
		case err = <-errCh:
		case <-time.After(drainTimeout):
			logging.Error().Str("service", serviceName).Dur("timeout", drainTimeout).Msg("shutdown timed out")
			return 1
		}
	}

	if err != nil {
		logging.Error().Err(err).Str("service", serviceName).Msg("failed")
		return 1
	}
	logging.Info().Str("service", serviceName).Msg("stopped")
	return 0
}
