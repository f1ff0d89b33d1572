// Package signal ties a run's context to SIGINT and SIGTERM so an
// interrupted run can persist what it has recorded before exiting.
package signal

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	clog "github.com/xrsl/reachout/pkg/log"
)

// WithInterrupt returns a context cancelled on the first SIGINT or SIGTERM.
// A second signal is left to the default handler, which kills the process.
func WithInterrupt(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			clog.Warn("interrupted, stopping after the current recipient", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
