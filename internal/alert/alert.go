// Package alert delivers operational notifications. Delivery failures are
// logged and swallowed; alerting never propagates errors into the pipeline.
package alert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
)

// Severity labels an alert's urgency.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Sink accepts free-text alerts.
type Sink interface {
	Notify(ctx context.Context, severity Severity, message string)
}

// SlackSink posts alerts to a Slack incoming webhook.
type SlackSink struct {
	webhookURL string
	logger     *slog.Logger
}

// NewSlackSink builds a Slack-backed sink.
func NewSlackSink(webhookURL string, logger *slog.Logger) *SlackSink {
	return &SlackSink{webhookURL: webhookURL, logger: logger}
}

// Notify posts the message. Failures are logged, never returned.
func (s *SlackSink) Notify(ctx context.Context, severity Severity, message string) {
	icon := ":warning:"
	if severity == SeverityError {
		icon = ":rotating_light:"
	}

	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf("%s *[%s]* %s", icon, severity, message),
	}
	if err := slack.PostWebhookContext(ctx, s.webhookURL, msg); err != nil {
		s.logger.Error("alert delivery failed", "severity", string(severity), "error", err)
		return
	}
	s.logger.Debug("alert delivered", "severity", string(severity))
}

// NoopSink drops alerts. Used when no webhook is configured.
type NoopSink struct{}

// Notify discards the alert.
func (NoopSink) Notify(ctx context.Context, severity Severity, message string) {}

// MemorySink records alerts for tests.
type MemorySink struct {
	Alerts []RecordedAlert
}

// RecordedAlert is one captured alert.
type RecordedAlert struct {
	Severity Severity
	Message  string
}

// Notify records the alert.
func (m *MemorySink) Notify(ctx context.Context, severity Severity, message string) {
	m.Alerts = append(m.Alerts, RecordedAlert{Severity: severity, Message: message})
}
