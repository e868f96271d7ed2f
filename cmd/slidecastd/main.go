// Command slidecastd runs the conversion daemon: it owns the queue database,
// drives the prepare and compose stages, and serves the HTTP API.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"slidecast/internal/config"
	"slidecast/internal/daemon"
	"slidecast/internal/logging"
	"slidecast/internal/queue"
	"slidecast/internal/workflow"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return
	}

	manager := workflow.NewManager(cfg, store, logger)
	manager.ConfigureStages(buildStages(cfg, store, logger))

	d, err := daemon.New(cfg, store, logger, manager)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("slidecastd shutting down")
}
