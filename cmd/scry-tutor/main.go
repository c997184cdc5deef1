// Package main implements the scry-tutor command line client. It wires the
// configuration, logging, response cache, rate gate and Gemini backend
// together and exposes each content operation as a subcommand.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(defaultBackend).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", userMessage(err))
		stop()
		os.Exit(exitCode(err))
	}
}
