package platform

import (
	"context"
	"os/signal"
)

// NewShutdownContext returns a context that is cancelled when the process is
// asked to stop. Calling stop restores default signal handling.
func NewShutdownContext(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	return signal.NotifyContext(parent, shutdownSignals...)
}
