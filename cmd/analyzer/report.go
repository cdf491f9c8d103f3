package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sonu96/project-athena-sub001/internal/analytics"
	"github.com/sonu96/project-athena-sub001/internal/config"
)

type report struct {
	Summary        analytics.Summary       `json:"summary"`
	HighConfidence []string                `json:"high_confidence_pools"`
	Opportunities  []analytics.Opportunity `json:"opportunities"`
}

func runReport(cmd *cobra.Command, _ []string) error {
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

	target, err := config.ParseTarget(cfg.Target)
	if err != nil {
		return fmt.Errorf("parse target: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("a profile store is required (pg-dsn, redis-addr, or profiles-file)")
	}
	if closeStore != nil {
		defer closeStore()
	}

	registry := analytics.NewRegistry(store, logger)
	if err := registry.LoadProfiles(ctx); err != nil {
		return err
	}

	out := report{
		Summary:       registry.Summary(),
		Opportunities: registry.PredictOpportunities(target),
	}
	for _, profile := range registry.HighConfidencePools(cfg.MinConfidence) {
		out.HighConfidence = append(out.HighConfidence, profile.Address())
	}

	logger.Info("report",
		zap.Time("target", target),
		zap.Int("profiles", out.Summary.TotalProfiles),
		zap.Int("opportunities", len(out.Opportunities)),
	)

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	fmt.Println(string(encoded))
	return nil
}
