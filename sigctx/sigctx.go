// Package sigctx provides a context canceled by SIGINT or SIGTERM, so that an
// interrupted run stops between records rather than mid-write.
package sigctx

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// New returns a context that is canceled when the process receives an
// interrupt or termination signal. The stop function is deliberately
// discarded: the context lives for the whole process.
func New() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}
