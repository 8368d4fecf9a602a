package ws

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/quantsight/gexflow/internal/engine"
)

// Update is one completed poll's output, as fanned out by the daemon.
type Update struct {
	Snapshot *engine.GammaSnapshot `json:"snapshot"`
	Alerts   []engine.Alert        `json:"alerts"`
}

// Streamer forwards poll updates from the daemon's fan-out channel to hub
// subscribers: full snapshots, alert batches, and the trade signal.
type Streamer struct {
	hub     *Hub
	updates <-chan Update
	logger  *zap.Logger
}

func NewStreamer(hub *Hub, updates <-chan Update, logger *zap.Logger) *Streamer {
	return &Streamer{
		hub:     hub,
		updates: updates,
		logger:  logger,
	}
}

// Run consumes updates until the context is cancelled or the channel closes.
func (s *Streamer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ws streamer shutting down")
			return

		case update, ok := <-s.updates:
			if !ok {
				s.logger.Info("ws streamer input closed")
				return
			}
			s.publish(update)
		}
	}
}

func (s *Streamer) publish(update Update) {
	if update.Snapshot == nil {
		return
	}

	if payload, err := json.Marshal(update.Snapshot); err != nil {
		s.logger.Warn("failed to encode snapshot", zap.Error(err))
	} else {
		s.hub.Broadcast(ChannelSnapshots, payload)
	}

	if len(update.Alerts) > 0 {
		if payload, err := json.Marshal(update.Alerts); err != nil {
			s.logger.Warn("failed to encode alerts", zap.Error(err))
		} else {
			s.hub.Broadcast(ChannelAlerts, payload)
		}
	}

	if payload, err := json.Marshal(update.Snapshot.Signal); err != nil {
		s.logger.Warn("failed to encode signal", zap.Error(err))
	} else {
		s.hub.Broadcast(ChannelSignals, payload)
	}
}
