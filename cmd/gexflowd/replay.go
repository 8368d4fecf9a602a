package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantsight/gexflow/internal/chain"
	"github.com/quantsight/gexflow/internal/config"
	"github.com/quantsight/gexflow/internal/engine"
	"github.com/quantsight/gexflow/internal/record"
	"github.com/quantsight/gexflow/internal/session"
)

func newReplayCmd() *cobra.Command {
	var (
		archivePath string
		outputDate  string
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run a recorded session archive through the engine",
		Long: `replay reads a chains.jsonl.zst archive produced by the run daemon and
feeds every recorded poll through a fresh engine, printing a session summary.
With --out-date, the derived snapshots are archived as well.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfigAndLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return runReplay(cmd, archivePath, outputDate, cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&archivePath, "archive", "a", "", "path to a recorded chains.jsonl.zst archive")
	cmd.Flags().StringVar(&outputDate, "out-date", "", "archive derived snapshots under this date (e.g. 2026-08-21)")
	_ = cmd.MarkFlagRequired("archive")

	return cmd
}

func runReplay(cmd *cobra.Command, archivePath, outputDate string, cfg *config.Config, logger *zap.Logger) error {
	source, err := chain.NewReplaySource(archivePath, logger)
	if err != nil {
		return err
	}
	defer source.Close()

	clock := session.NewMarketClock(cfg.Timezone)
	eng, err := engine.New(cfg.EngineConfig(), clock, nil, logger)
	if err != nil {
		return err
	}

	var snapRecorder *record.Recorder
	if outputDate != "" {
		snapRecorder, err = record.NewRecorder(cfg.Record.Directory, outputDate, "snapshots-replay", logger)
		if err != nil {
			return err
		}
		defer snapRecorder.Close()
	}

	start := time.Now()
	var (
		polls      int
		noData     int
		alertTotal int
		flipTotal  int
		lastRegime engine.Regime
		lastSignal engine.SignalKind
	)

	for {
		ch, err := source.Fetch(cmd.Context())
		if err != nil {
			if errors.Is(err, chain.ErrExhausted) {
				break
			}
			return fmt.Errorf("reading archive: %w", err)
		}

		snap, alerts, err := eng.Process(ch)
		if err != nil {
			return fmt.Errorf("processing poll %d: %w", polls, err)
		}
		polls++

		if snap.NoData {
			noData++
			continue
		}

		alertTotal += len(alerts)
		flipTotal += len(snap.FlipEvents)
		lastRegime = snap.Regime
		lastSignal = snap.Signal.Kind

		if snapRecorder != nil {
			if err := snapRecorder.Write(snap); err != nil {
				logger.Warn("failed to archive replay snapshot", zap.Error(err))
			}
		}
	}

	logger.Info("replay complete",
		zap.String("archive", archivePath),
		zap.Int("polls", polls),
		zap.Int("noData", noData),
		zap.Int("alerts", alertTotal),
		zap.Int("flipEvents", flipTotal),
		zap.String("finalRegime", string(lastRegime)),
		zap.String("finalSignal", string(lastSignal)),
		zap.Duration("elapsed", time.Since(start)),
	)
	if snapRecorder != nil {
		logger.Info("replay snapshots archived",
			zap.String("path", snapRecorder.Path()),
			zap.Int("records", snapRecorder.Count()),
		)
	}

	return nil
}
