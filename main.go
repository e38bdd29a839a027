package main

import (
	"context"
	"gpuresize/internal/adapters/cli"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cli.NewRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("gpuresize failed")
		cancel()
		os.Exit(1)
	}
}
