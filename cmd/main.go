package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/reelx/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	if err := newApp(runner).Run(context.Background(), os.Args); err != nil {
		os.Exit(exitCode(logger, err))
	}
}

// exitCode logs err with a hint for the session errors and returns the process exit status.
func exitCode(logger *log.Logger, err error) int {
	switch {
	case errors.Is(err, shared.ErrRefreshUnrecoverable):
		logger.Error("session expired, run 'reelx auth login'", "error", err)
		return 2
	case errors.Is(err, shared.ErrNotAuthenticated):
		logger.Error("not logged in, run 'reelx auth login'", "error", err)
		return 2
	case errors.Is(err, shared.ErrUnauthorizedAfterRetry), errors.Is(err, shared.ErrForbidden):
		logger.Error("request not permitted for this account", "error", err)
		return 2
	case errors.Is(err, shared.ErrRefreshFailed):
		logger.Error("could not refresh the session, try again later", "error", err)
		return 3
	case errors.Is(err, shared.ErrServiceUnavailable):
		logger.Error("movie API unavailable", "error", err)
		return 3
	default:
		logger.Errorf("application error: %v", err)
		return 1
	}
}
