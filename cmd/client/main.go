package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/kumo/internal/client/cli"
	"github.com/dmitrijs2005/kumo/internal/client/config"
	"github.com/dmitrijs2005/kumo/internal/logging"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := cli.Bootstrap(ctx, cfg, logger)
	if err != nil {
		stop()
		log.Fatalf("%v", err)
	}
	defer cleanup()

	app.Run(ctx, cfg.OnlineCheckInterval)
}
