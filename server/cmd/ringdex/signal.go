// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// shutdownSignal is closed when an interrupt signal is received. Any contexts
// created using withShutdownCancel are cancelled when this is closed.
var shutdownSignal = make(chan struct{})

// interruptSignals defines the signals that are handled to do a clean
// shutdown.
var interruptSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// withShutdownCancel creates a copy of a context that is cancelled whenever
// shutdown is invoked through an interrupt signal.
func withShutdownCancel(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		<-shutdownSignal
		cancel()
	}()
	return ctx
}

// shutdownListener listens for interrupt signals and cancels all contexts
// created from withShutdownCancel. This function never returns and is intended
// to be spawned in a new goroutine.
func shutdownListener() {
	interruptChannel := make(chan os.Signal, 1)
	signal.Notify(interruptChannel, interruptSignals...)

	sig := <-interruptChannel
	log.Infof("Received signal (%s). Shutting down...", sig)
	close(shutdownSignal)

	// Listen for any more signals and log that shutdown has already been
	// signaled.
	for range interruptChannel {
		log.Info("Shutdown signaled. Already shutting down...")
	}
}
