package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"houseprice/pkg/artifact"
	"houseprice/pkg/logger"
	"houseprice/pkg/metrics"
	"houseprice/pkg/predict"
	"houseprice/pkg/server"
	"houseprice/pkg/train"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions and retraining over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	reg := metrics.NewRegistry()
	store := artifact.NewStore(cfg.Model.StorePath)

	p, err := predict.New(store,
		predict.WithFallbackPrice(cfg.Model.FallbackPrice),
		predict.WithCacheSize(cfg.Model.CacheSize),
		predict.WithMetrics(reg.Metrics),
	)
	if err != nil {
		return err
	}
	if a := p.Get(); a.Fallback {
		log.Warn("No trained model found, serving the fallback price",
			"path", store.Path(), "price", cfg.Model.FallbackPrice)
	} else {
		log.Info("Loaded model", "path", store.Path(), "run_id", a.RunID, "columns", len(a.Columns))
	}

	opts := append(trainerOptions(cfg.Train),
		train.WithMetrics(reg.Metrics),
		train.WithOnTrained(func(a *artifact.Artifact) {
			if err := p.Replace(a); err != nil {
				log.Error("Failed to swap in retrained model", "run_id", a.RunID, "error", err)
			}
		}),
	)
	t := train.New(store, opts...)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = logger.ContextWithLogger(ctx, log)
	return server.New(cfg.Server, p, t, reg, log).Run(ctx)
}
