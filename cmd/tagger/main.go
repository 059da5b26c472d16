// Package main implements the tagger command, which suggests topic tags for
// flashcards and flags definition cards with a language model.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// main is the entry point for the tagger CLI. An interrupt cancels the
// current run; cards reconciled so far are still written back.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
