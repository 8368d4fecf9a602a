package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gexflow.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Ticker != "SPX" {
		t.Fatalf("ticker = %q, want SPX", cfg.Ticker)
	}
	if cfg.Timezone != "America/New_York" {
		t.Fatalf("timezone = %q", cfg.Timezone)
	}
	if cfg.PollInterval() != time.Minute {
		t.Fatalf("poll interval = %v, want 1m", cfg.PollInterval())
	}
	if !cfg.Engine.SmoothingEnabled || cfg.Engine.SmoothingWindow != 5 {
		t.Fatalf("engine defaults = %+v", cfg.Engine)
	}
	if cfg.Server.Port != "8080" || !cfg.Server.WSEnabled {
		t.Fatalf("server defaults = %+v", cfg.Server)
	}
	if cfg.Notify.Enabled {
		t.Fatal("notifications default to off")
	}
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeConfig(t, `
ticker: NDX
poll:
  interval_sec: 30
engine:
  magnet_count: 3
  orderflow_min_depth: 250
server:
  port: "9090"
  ws_enabled: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Ticker != "NDX" {
		t.Fatalf("ticker = %q, want NDX", cfg.Ticker)
	}
	if cfg.PollInterval() != 30*time.Second {
		t.Fatalf("poll interval = %v, want 30s", cfg.PollInterval())
	}
	if cfg.Engine.MagnetCount != 3 {
		t.Fatalf("magnet count = %d, want 3", cfg.Engine.MagnetCount)
	}
	if cfg.Server.Port != "9090" || cfg.Server.WSEnabled {
		t.Fatalf("server = %+v", cfg.Server)
	}
	// Untouched keys keep their defaults.
	if cfg.Engine.SmoothingWindow != 5 {
		t.Fatalf("smoothing window = %d, want default 5", cfg.Engine.SmoothingWindow)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero poll interval", "poll:\n  interval_sec: 0\n"},
		{"empty ticker", "ticker: \"\"\n"},
		{"bad engine window", "engine:\n  smoothing_window: 0\n"},
		{"notify without topic", "notify:\n  enabled: true\n  topic: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestEngineConfigMapping(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ec := cfg.EngineConfig()
	if err := ec.Validate(); err != nil {
		t.Fatalf("mapped engine config invalid: %v", err)
	}
	if ec.HistoryRetention != 420*time.Minute {
		t.Fatalf("history retention = %v, want 420m", ec.HistoryRetention)
	}
	if ec.MinDepth != 100 || ec.ATMWidthPct != 3.0 {
		t.Fatalf("orderflow knobs = %+v", ec)
	}
}

func TestNotifyConfigMapping(t *testing.T) {
	path := writeConfig(t, `
notify:
  enabled: true
  topic: gex-alerts
  priority: high
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	nc := cfg.NotifyConfig()
	if !nc.Enabled || nc.Topic != "gex-alerts" || nc.Priority != "high" {
		t.Fatalf("notify config = %+v", nc)
	}
	if nc.Server != "https://ntfy.sh" {
		t.Fatalf("notify server = %q, want default", nc.Server)
	}
}
