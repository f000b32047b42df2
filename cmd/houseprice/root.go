package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"houseprice/pkg/config"
	"houseprice/pkg/logger"
	"houseprice/pkg/train"
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "houseprice",
		Short:        "House price regression service",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "YAML configuration file")
	root.PersistentFlags().String("env-file", ".env", "dotenv file read before the environment")
	logger.AddFlags(root)

	root.AddCommand(
		serveCmd(),
		trainCmd(),
		predictCmd(),
	)
	return root
}

// setup loads the configuration and initialises the default logger. Logging
// flags, when given, win over the configuration.
func setup(cmd *cobra.Command) (*config.Config, logger.Logger, error) {
	cfgPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get env-file flag: %w", err)
	}
	cfg, err := config.Load(config.Options{YAMLPath: cfgPath, EnvFile: envFile})
	if err != nil {
		return nil, nil, err
	}

	level, logJSON, logSource, err := logger.GetLoggerConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if level == "" {
		level = cfg.Log.Level
	}
	logger.SetupLogger(level, logJSON || cfg.Log.JSON, logSource || cfg.Log.Source)
	return cfg, logger.GetDefault(), nil
}

func trainerOptions(cfg config.TrainConfig) []train.Option {
	return []train.Option{
		train.WithEstimators(cfg.Estimators),
		train.WithMaxDepth(cfg.MaxDepth),
		train.WithMinSamplesSplit(cfg.MinSamplesSplit),
		train.WithMinSamplesLeaf(cfg.MinSamplesLeaf),
		train.WithMaxFeatures(cfg.MaxFeatures),
		train.WithBootstrap(cfg.Bootstrap),
		train.WithTestRatio(cfg.TestRatio),
		train.WithSeed(cfg.Seed),
		train.WithMinSamples(cfg.MinSamples),
		train.WithWorkers(cfg.Workers),
	}
}
