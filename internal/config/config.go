package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/quantsight/gexflow/internal/engine"
	"github.com/quantsight/gexflow/internal/notify"
)

type Config struct {
	Ticker   string       `mapstructure:"ticker"`
	Timezone string       `mapstructure:"timezone"`
	Poll     PollConfig   `mapstructure:"poll"`
	Engine   EngineConfig `mapstructure:"engine"`
	Server   ServerConfig `mapstructure:"server"`
	Record   RecordConfig `mapstructure:"record"`
	Notify   NotifyConfig `mapstructure:"notify"`
	Logging  LogConfig    `mapstructure:"logging"`
}

type PollConfig struct {
	IntervalSec   int    `mapstructure:"interval_sec"`
	APIBaseURL    string `mapstructure:"api_base_url"`
	APIKey        string `mapstructure:"api_key"`
	RatePerSecond int    `mapstructure:"rate_per_second"`
	TimeoutSec    int    `mapstructure:"timeout_sec"`
	RetryCount    int    `mapstructure:"retry_count"`
	RetryDelaySec int    `mapstructure:"retry_delay_sec"`
}

type EngineConfig struct {
	SmoothingEnabled  bool    `mapstructure:"smoothing_enabled"`
	SmoothingWindow   int     `mapstructure:"smoothing_window"`
	MaxChangePct      float64 `mapstructure:"max_change_pct"`
	ExpectedMoveEMA   float64 `mapstructure:"expected_move_ema"`
	HistoryMinutes    int     `mapstructure:"history_minutes"`
	MagnetCount       int     `mapstructure:"magnet_count"`
	OrderflowMinDepth float64 `mapstructure:"orderflow_min_depth"`
	OrderflowATMWidth float64 `mapstructure:"orderflow_atm_width_pct"`
}

type ServerConfig struct {
	Port      string `mapstructure:"port"`
	WSEnabled bool   `mapstructure:"ws_enabled"`
}

type RecordConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
}

type NotifyConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Server   string `mapstructure:"server"`
	Topic    string `mapstructure:"topic"`
	Priority string `mapstructure:"priority"`
	Tags     string `mapstructure:"tags"`
	Token    string `mapstructure:"token"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("ticker", "SPX")
	v.SetDefault("timezone", "America/New_York")
	v.SetDefault("poll.interval_sec", 60)
	v.SetDefault("poll.api_base_url", "https://api.gex.bot")
	v.SetDefault("poll.rate_per_second", 2)
	v.SetDefault("poll.timeout_sec", 30)
	v.SetDefault("poll.retry_count", 3)
	v.SetDefault("poll.retry_delay_sec", 5)
	v.SetDefault("engine.smoothing_enabled", true)
	v.SetDefault("engine.smoothing_window", 5)
	v.SetDefault("engine.max_change_pct", 50.0)
	v.SetDefault("engine.expected_move_ema", 0.3)
	v.SetDefault("engine.history_minutes", 420)
	v.SetDefault("engine.magnet_count", 5)
	v.SetDefault("engine.orderflow_min_depth", 100.0)
	v.SetDefault("engine.orderflow_atm_width_pct", 3.0)
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.ws_enabled", true)
	v.SetDefault("record.enabled", true)
	v.SetDefault("record.directory", "data")
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.server", "https://ntfy.sh")
	v.SetDefault("notify.priority", "default")
	v.SetDefault("notify.tags", "chart_with_upwards_trend")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	// Environment variable support
	v.SetEnvPrefix("GEXFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Explicitly bind nested keys to env vars
	_ = v.BindEnv("poll.api_key", "GEXFLOW_API_KEY")
	_ = v.BindEnv("notify.token", "GEXFLOW_NTFY_TOKEN")

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("default")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Ticker == "" {
		return fmt.Errorf("ticker is required")
	}
	if c.Poll.IntervalSec < 1 {
		return fmt.Errorf("poll interval must be >= 1s")
	}
	if err := c.EngineConfig().Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	nc := c.NotifyConfig()
	if err := nc.Validate(); err != nil {
		return err
	}
	return nil
}

// EngineConfig maps the flat viper keys onto the engine's Config.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		SmoothingEnabled: c.Engine.SmoothingEnabled,
		SmoothingWindow:  c.Engine.SmoothingWindow,
		MaxChangePct:     c.Engine.MaxChangePct,
		ExpectedMoveEMA:  c.Engine.ExpectedMoveEMA,
		HistoryRetention: time.Duration(c.Engine.HistoryMinutes) * time.Minute,
		MagnetCount:      c.Engine.MagnetCount,
		MinDepth:         c.Engine.OrderflowMinDepth,
		ATMWidthPct:      c.Engine.OrderflowATMWidth,
	}
}

// NotifyConfig maps onto the notifier's Config.
func (c *Config) NotifyConfig() *notify.Config {
	return &notify.Config{
		Enabled:  c.Notify.Enabled,
		Server:   c.Notify.Server,
		Topic:    c.Notify.Topic,
		Priority: c.Notify.Priority,
		Tags:     c.Notify.Tags,
		Token:    c.Notify.Token,
	}
}

// PollInterval returns the poll cadence as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalSec) * time.Second
}
