package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/juju/errors"

	"github.com/hijra-meet/hijra-meet/client/cli"
	"github.com/hijra-meet/hijra-meet/client/logger"
)

const gitDescribe string = "v0.0.0"

func start(ctx context.Context, log logger.Logger, args []string) error {
	err := cli.Exec(ctx, cli.Props{
		Log:     log,
		Version: gitDescribe,
		Args:    args,
	})

	return errors.Trace(err)
}

func main() {
	log := logger.New().
		WithConfig(
			logger.ConfigMap{
				"pion": logger.LevelWarn,
				"sfu":  logger.LevelInfo,
				"":     logger.LevelInfo,
			},
		).
		WithConfig(logger.NewConfigMapFromString(os.Getenv("MEET_LOG"))).
		WithNamespaceAppended("main")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := start(ctx, log, os.Args[1:]); err != nil {
		log.Error("Command error", errors.Trace(err), nil)
		os.Exit(1)
	}
}
