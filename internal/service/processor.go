package service

import (
	"context"
	"time"

	"intentgate/internal/domain"
)

// StubProcessor is the local stand-in for the real execution engine. It
// echoes the intent's identifiers back as the result.
type StubProcessor struct{}

func (StubProcessor) Execute(_ context.Context, intent *domain.TrustedIntent) (*domain.ProcessingOutput, error) {
	start := time.Now()
	return &domain.ProcessingOutput{
		Success: true,
		Result: map[string]any{
			"intent_id": intent.ID,
			"action":    intent.Action,
			"topic_id":  intent.TopicID,
		},
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}
