package main

import (
	"log/slog"

	"slidecast/internal/compose"
	"slidecast/internal/config"
	"slidecast/internal/prepare"
	"slidecast/internal/queue"
	"slidecast/internal/workflow"
)

func buildStages(cfg *config.Config, store *queue.Store, logger *slog.Logger) workflow.StageSet {
	return workflow.StageSet{
		Preparer: prepare.NewPreparer(cfg, store, logger),
		Composer: compose.NewComposer(cfg, store, logger),
	}
}
