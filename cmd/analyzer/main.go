package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sonu96/project-athena-sub001/internal/analytics"
	"github.com/sonu96/project-athena-sub001/internal/config"
	"github.com/sonu96/project-athena-sub001/internal/replay"
	"github.com/sonu96/project-athena-sub001/internal/storage"
	"github.com/sonu96/project-athena-sub001/internal/storage/postgres"
	redisstore "github.com/sonu96/project-athena-sub001/internal/storage/redis"
)

func main() {
	root := &cobra.Command{
		Use:          "analyzer",
		Short:        "Pool analytics and pattern recognition engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay scan records into pool profiles",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("in", "", "input scan records JSONL")
	replayCmd.Flags().String("pg-dsn", "", "Postgres DSN for profile persistence")
	replayCmd.Flags().String("redis-addr", "", "Redis address for profile persistence")
	replayCmd.Flags().String("redis-password", "", "Redis password")
	replayCmd.Flags().Int("redis-db", 0, "Redis database")
	replayCmd.Flags().String("profiles-file", "", "local profile store file")
	replayCmd.Flags().Bool("load-on-start", true, "load stored profiles before replay")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Report profile summary and ranked opportunities",
		RunE:  runReport,
	}

	reportCmd.Flags().String("pg-dsn", "", "Postgres DSN for profile persistence")
	reportCmd.Flags().String("redis-addr", "", "Redis address for profile persistence")
	reportCmd.Flags().String("redis-password", "", "Redis password")
	reportCmd.Flags().Int("redis-db", 0, "Redis database")
	reportCmd.Flags().String("profiles-file", "", "local profile store file")
	reportCmd.Flags().String("target", "", "forecast target (unix seconds or RFC3339, default now)")
	reportCmd.Flags().Float64("min-confidence", 0.7, "confidence threshold for the high-confidence listing")
	reportCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(reportCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	registry := analytics.NewRegistry(store, logger)
	if store != nil && cfg.LoadOnStart {
		if err := registry.LoadProfiles(ctx); err != nil {
			return err
		}
	}

	logger.Info("replay start",
		zap.String("input", cfg.Input),
		zap.Bool("persistence", store != nil),
	)

	runner := replay.NewRunner(registry, logger)
	if err := runner.Run(ctx, cfg.Input); err != nil {
		return err
	}
	registry.Close()

	summary := registry.Summary()
	logger.Info("registry summary",
		zap.Int("total_profiles", summary.TotalProfiles),
		zap.Int("high_confidence", summary.HighConfidence),
		zap.Int("gas_correlated", summary.GasCorrelated),
		zap.Float64("avg_observations", summary.AvgObservations),
		zap.Int("with_hourly_coverage", summary.WithHourlyCoverage),
	)
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (storage.ProfileStore, func(), error) {
	switch {
	case cfg.PGDSN != "":
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return store, store.Close, nil
	case cfg.RedisAddr != "":
		store := redisstore.NewStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		return store, func() { store.Close() }, nil
	case cfg.ProfilesFile != "":
		return storage.NewFileProfileStore(cfg.ProfilesFile), nil, nil
	default:
		return nil, nil, nil
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
