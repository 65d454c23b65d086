package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"intentgate/internal/config"
	"intentgate/internal/domain"
)

// Notifier is told when a request enters the human review queue. Delivery is
// best effort: the pending event is already durable when a notifier runs,
// and a failed notification never fails the pipeline.
type Notifier interface {
	NotifyElevation(ctx context.Context, event *domain.ElevationEvent) error
}

// NoopNotifier drops all notifications.
type NoopNotifier struct{}

func (NoopNotifier) NotifyElevation(context.Context, *domain.ElevationEvent) error { return nil }

type logNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier announces pending reviews on the process log.
func NewLogNotifier(log *slog.Logger) Notifier {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &logNotifier{logger: log}
}

func (n *logNotifier) NotifyElevation(ctx context.Context, event *domain.ElevationEvent) error {
	n.logger.InfoContext(ctx, "review_pending",
		"elevation_id", event.ID,
		"reason", event.Reason,
		"user_id", event.UserID,
		"session_id", event.SessionID,
		"action", event.CanonicalIntent.Action,
	)
	return nil
}

type webhookNotifier struct {
	url  string
	http *http.Client
	log  *slog.Logger
}

// NewWebhookNotifier posts pending reviews as JSON to the configured URL,
// the shape Slack- and Teams-style incoming webhooks accept.
func NewWebhookNotifier(cfg config.Notify, log *slog.Logger) Notifier {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &webhookNotifier{
		url:  cfg.WebhookURL,
		http: &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond},
		log:  log,
	}
}

// webhookPayload is the notification body. Text carries a rendered summary
// for chat-style receivers; the structured fields serve custom ones.
type webhookPayload struct {
	Text        string `json:"text"`
	ElevationID string `json:"elevation_id"`
	Reason      string `json:"reason"`
	UserID      string `json:"user_id"`
	SessionID   string `json:"session_id"`
	Action      string `json:"action"`
	CreatedAt   string `json:"created_at"`
}

func (n *webhookNotifier) NotifyElevation(ctx context.Context, event *domain.ElevationEvent) error {
	payload := webhookPayload{
		Text: fmt.Sprintf("Review pending: %s (user %s, action %s)",
			event.Reason, event.UserID, event.CanonicalIntent.Action),
		ElevationID: event.ID,
		Reason:      event.Reason,
		UserID:      event.UserID,
		SessionID:   event.SessionID,
		Action:      event.CanonicalIntent.Action,
		CreatedAt:   event.CreatedAt.Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		n.log.WarnContext(ctx, "notification delivery failed", "elevation_id", event.ID, "error", err)
		return fmt.Errorf("delivering notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		n.log.WarnContext(ctx, "notification rejected", "elevation_id", event.ID, "status", resp.StatusCode)
		return fmt.Errorf("notification webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func notifierOrNoop(n Notifier) Notifier {
	if n == nil {
		return NoopNotifier{}
	}
	return n
}
