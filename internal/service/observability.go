package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"intentgate/internal/domain"
)

// PipelineEvent records one pass through the trust pipeline or the review
// queue. Outcome fields are zero-valued when the stage they describe was
// never reached, so a log line shows exactly how far the request got.
type PipelineEvent struct {
	Op          string
	UserID      string
	SessionID   string
	Status      domain.RequestStatus
	Decision    domain.Decision
	ElevationID string
	ApproverID  string
	Approved    bool
	Duration    time.Duration
	Err         error
	StartedAt   time.Time
}

// Observer receives pipeline events after each run resolves.
type Observer interface {
	ObservePipeline(ctx context.Context, event PipelineEvent)
}

// NoopObserver ignores all events.
type NoopObserver struct{}

func (NoopObserver) ObservePipeline(context.Context, PipelineEvent) {}

type logObserver struct {
	logger *slog.Logger
}

// NewLogObserver writes pipeline events to the provided writer as
// structured log lines.
func NewLogObserver(w io.Writer) Observer {
	if w == nil {
		return NoopObserver{}
	}
	return &logObserver{
		logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})),
	}
}

func (o *logObserver) ObservePipeline(ctx context.Context, event PipelineEvent) {
	attrs := make([]any, 0, 20)
	attrs = append(attrs,
		"op", event.Op,
		"duration_ms", event.Duration.Milliseconds(),
	)
	if event.UserID != "" {
		attrs = append(attrs, "user_id", event.UserID)
	}
	if event.SessionID != "" {
		attrs = append(attrs, "session_id", event.SessionID)
	}
	if event.Status != "" {
		attrs = append(attrs, "status", string(event.Status))
	}
	if event.Decision != "" {
		attrs = append(attrs, "decision", string(event.Decision))
	}
	if event.ElevationID != "" {
		attrs = append(attrs, "elevation_id", event.ElevationID,
			"approver_id", event.ApproverID,
			"approved", event.Approved)
	}
	if event.Err != nil {
		attrs = append(attrs, "error", event.Err.Error())
		o.logger.ErrorContext(ctx, "pipeline", attrs...)
		return
	}
	o.logger.InfoContext(ctx, "pipeline", attrs...)
}

func observerOrNoop(observers []Observer) Observer {
	for _, obs := range observers {
		if obs != nil {
			return obs
		}
	}
	return NoopObserver{}
}
