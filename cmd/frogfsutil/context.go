package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// interruptibleContext returns a context canceled on SIGINT or SIGTERM, so
// that a long-running verb (mount) can unwind cleanly instead of being
// killed mid-write.
func interruptibleContext() (context.Context, context.CancelFunc) {
	ctx, canc := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		// A second signal terminates immediately, in case cleanup hangs.
		signal.Stop(sig)
		canc()
	}()
	return ctx, canc
}
