package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantsight/gexflow/internal/chain"
	"github.com/quantsight/gexflow/internal/config"
	"github.com/quantsight/gexflow/internal/engine"
	"github.com/quantsight/gexflow/internal/notify"
	"github.com/quantsight/gexflow/internal/record"
	"github.com/quantsight/gexflow/internal/server"
	"github.com/quantsight/gexflow/internal/session"
	"github.com/quantsight/gexflow/internal/ws"
)

// prePollSlack starts polling a little before the open so the engine sees
// the first prints of the session.
const prePollSlack = 15 * time.Minute

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the live poll daemon with the HTTP/WebSocket API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfigAndLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return runDaemon(cfg, logger)
		},
	}
}

// daemon bundles the long-lived pieces the poll loop touches every tick.
type daemon struct {
	cfg      *config.Config
	logger   *zap.Logger
	clock    *session.MarketClock
	engine   *engine.Engine
	source   chain.Source
	state    *server.State
	notifier notify.Notifier
	updates  chan ws.Update

	sessionDate   string
	chainRecorder *record.Recorder
	snapRecorder  *record.Recorder
}

func runDaemon(cfg *config.Config, logger *zap.Logger) error {
	clock := session.NewMarketClock(cfg.Timezone)

	eng, err := engine.New(cfg.EngineConfig(), clock, nil, logger)
	if err != nil {
		return err
	}

	source := chain.NewHTTPClient(
		cfg.Poll.APIBaseURL,
		cfg.Poll.APIKey,
		cfg.Ticker,
		cfg.Poll.RatePerSecond,
		time.Duration(cfg.Poll.TimeoutSec)*time.Second,
		time.Duration(cfg.Poll.RetryDelaySec)*time.Second,
		cfg.Poll.RetryCount,
		logger,
	)
	defer source.Close()

	d := &daemon{
		cfg:      cfg,
		logger:   logger,
		clock:    clock,
		engine:   eng,
		source:   source,
		state:    server.NewState(),
		notifier: notify.New(cfg.NotifyConfig(), logger),
	}
	defer d.closeRecorders()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// WebSocket components (optional)
	var hub *ws.Hub
	if cfg.Server.WSEnabled {
		hub = ws.NewHub(logger)
		go hub.Run(ctx)

		d.updates = make(chan ws.Update, 16)
		streamer := ws.NewStreamer(hub, d.updates, logger)
		go streamer.Run(ctx)
	}

	router := server.NewRouter(server.NewServer(d.state, cfg.Ticker, logger), hub, logger)
	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	logger.Info("daemon started",
		zap.String("ticker", cfg.Ticker),
		zap.Duration("pollInterval", cfg.PollInterval()),
		zap.String("timezone", cfg.Timezone),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.PollInterval())
	defer ticker.Stop()

	d.pollOnce(ctx)

	for {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", zap.String("signal", sig.String()))
			cancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown error", zap.Error(err))
				return err
			}
			logger.Info("daemon stopped")
			return nil

		case <-ticker.C:
			d.pollOnce(ctx)
		}
	}
}

// pollOnce runs one fetch/process/fan-out cycle if the session gate allows it.
func (d *daemon) pollOnce(ctx context.Context) {
	now := d.clock.Now()

	if !d.clock.IsTradingDay(now) {
		d.logger.Debug("not a trading day", zap.Time("now", now))
		return
	}
	open := d.clock.SessionOpen(now)
	if now.Before(open.Add(-prePollSlack)) || now.After(d.clock.SessionClose(now)) {
		d.logger.Debug("outside polling window", zap.Time("now", now))
		return
	}

	d.rolloverIfNeeded(now)

	fetchCtx, cancel := context.WithTimeout(ctx, d.cfg.PollInterval())
	defer cancel()

	ch, err := d.source.Fetch(fetchCtx)
	if err != nil {
		d.logger.Warn("chain fetch failed, will retry next poll", zap.Error(err))
		return
	}

	if d.chainRecorder != nil {
		if err := d.chainRecorder.Write(ch); err != nil {
			d.logger.Warn("failed to record chain", zap.Error(err))
		}
	}

	snap, alerts, err := d.engine.Process(ch)
	if err != nil {
		d.logger.Error("engine rejected poll", zap.Error(err))
		return
	}

	if d.snapRecorder != nil && !snap.NoData {
		if err := d.snapRecorder.Write(snap); err != nil {
			d.logger.Warn("failed to record snapshot", zap.Error(err))
		}
	}

	d.state.Set(snap, alerts)

	if d.updates != nil {
		select {
		case d.updates <- ws.Update{Snapshot: snap, Alerts: alerts}:
		default:
			d.logger.Warn("update fan-out full, dropping broadcast")
		}
	}

	if err := d.notifier.SendAlerts(ctx, d.cfg.Ticker, alerts); err != nil {
		d.logger.Warn("alert notification failed", zap.Error(err))
	}

	d.logger.Info("poll complete",
		zap.String("regime", string(snap.Regime)),
		zap.String("signal", string(snap.Signal.Kind)),
		zap.Float64("spot", snap.Spot),
		zap.Int("alerts", len(alerts)),
		zap.Bool("noData", snap.NoData),
	)
}

// rolloverIfNeeded resets session state and rotates archives on a new
// trading date. Forgetting this would carry yesterday's baselines forward.
func (d *daemon) rolloverIfNeeded(now time.Time) {
	date := now.Format("2006-01-02")
	if date == d.sessionDate {
		return
	}

	if d.sessionDate != "" {
		d.logger.Info("session rollover", zap.String("from", d.sessionDate), zap.String("to", date))
		d.engine.Reset()
		d.state.ResetAlerts()
	}
	d.sessionDate = date

	d.closeRecorders()
	if d.cfg.Record.Enabled {
		var err error
		d.chainRecorder, err = record.NewRecorder(d.cfg.Record.Directory, date, "chains", d.logger)
		if err != nil {
			d.logger.Error("failed to open chain archive", zap.Error(err))
		}
		d.snapRecorder, err = record.NewRecorder(d.cfg.Record.Directory, date, "snapshots", d.logger)
		if err != nil {
			d.logger.Error("failed to open snapshot archive", zap.Error(err))
		}
	}
}

func (d *daemon) closeRecorders() {
	if d.chainRecorder != nil {
		_ = d.chainRecorder.Close()
		d.chainRecorder = nil
	}
	if d.snapRecorder != nil {
		_ = d.snapRecorder.Close()
		d.snapRecorder = nil
	}
}
