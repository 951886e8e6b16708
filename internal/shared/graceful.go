package shared

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Context returns a root context cancelled on SIGINT or SIGTERM.
func Context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
