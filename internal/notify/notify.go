// Package notify pushes high-priority engine alerts to an ntfy topic so a
// phone hears about regime changes without watching the dashboard.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/quantsight/gexflow/internal/engine"
)

// Notifier is the interface for pushing alert notifications.
type Notifier interface {
	SendAlerts(ctx context.Context, ticker string, alerts []engine.Alert) error
}

// Client implements the ntfy notification client.
type Client struct {
	httpClient *http.Client
	config     *Config
	logger     *zap.Logger
}

// NewClient creates a new ntfy client.
func NewClient(cfg *Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
	}
}

// SendAlerts pushes the high-severity alerts from one poll as a single
// notification. Info-level alerts are skipped; an all-info batch is a no-op.
func (c *Client) SendAlerts(ctx context.Context, ticker string, alerts []engine.Alert) error {
	if !c.config.Enabled {
		return nil
	}

	var urgent []engine.Alert
	for _, a := range alerts {
		if a.Severity == engine.SeverityHigh {
			urgent = append(urgent, a)
		}
	}
	if len(urgent) == 0 {
		return nil
	}

	title := fmt.Sprintf("%s: %d gamma alert(s)", ticker, len(urgent))
	message := FormatAlertMessage(urgent)
	tags := c.config.Tags + ",warning"

	return c.send(ctx, title, message, tags, "high")
}

// FormatAlertMessage renders a compact notification body, capped at the
// first five alerts.
func FormatAlertMessage(alerts []engine.Alert) string {
	var sb strings.Builder

	limit := 5
	if len(alerts) < limit {
		limit = len(alerts)
	}
	for i := 0; i < limit; i++ {
		sb.WriteString(fmt.Sprintf("[%s] %s\n", alerts[i].Type, alerts[i].Message))
	}
	if len(alerts) > limit {
		sb.WriteString(fmt.Sprintf("... and %d more", len(alerts)-limit))
	}

	return sb.String()
}

func (c *Client) send(ctx context.Context, title, message, tags, priority string) error {
	url := fmt.Sprintf("%s/%s", strings.TrimSuffix(c.config.Server, "/"), c.config.Topic)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Title", title)
	req.Header.Set("Priority", priority)
	req.Header.Set("Tags", tags)

	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("failed to send notification", zap.Error(err))
		return fmt.Errorf("sending notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain response body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("notification failed",
			zap.Int("status", resp.StatusCode),
			zap.String("url", url),
		)
		return fmt.Errorf("notification failed with status: %d", resp.StatusCode)
	}

	c.logger.Debug("notification sent", zap.String("title", title))
	return nil
}

// NoopNotifier is a no-op implementation for when notifications are disabled.
type NoopNotifier struct{}

// SendAlerts is a no-op.
func (n *NoopNotifier) SendAlerts(_ context.Context, _ string, _ []engine.Alert) error {
	return nil
}

// New creates the appropriate notifier based on config.
func New(cfg *Config, logger *zap.Logger) Notifier {
	if !cfg.Enabled {
		return &NoopNotifier{}
	}
	return NewClient(cfg, logger)
}
