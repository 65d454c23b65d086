// Package testutil provides the shared in-memory database and fixture
// builders used across package tests.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"intentgate/internal/domain"
)

// ParsedIntent options

type IntentOption func(*domain.ParsedIntent)

func WithParserID(id string) IntentOption {
	return func(p *domain.ParsedIntent) {
		p.ParserID = id
	}
}

func WithDeterministic() IntentOption {
	return func(p *domain.ParsedIntent) {
		p.IsDeterministic = true
	}
}

func WithAction(action string) IntentOption {
	return func(p *domain.ParsedIntent) {
		p.Action = action
	}
}

func WithTopic(topic string) IntentOption {
	return func(p *domain.ParsedIntent) {
		p.Topic = topic
	}
}

func WithExpertise(areas ...string) IntentOption {
	return func(p *domain.ParsedIntent) {
		p.Expertise = areas
	}
}

func WithConfidence(c float64) IntentOption {
	return func(p *domain.ParsedIntent) {
		p.Confidence = c
	}
}

func WithBudget(budget int64) IntentOption {
	return func(p *domain.ParsedIntent) {
		p.Constraints.MaxBudget = &budget
	}
}

func NewTestIntent(opts ...IntentOption) *domain.ParsedIntent {
	p := &domain.ParsedIntent{
		ParserID:   "test_parser",
		Action:     "find_experts",
		Topic:      "supply chain risk",
		Expertise:  []string{"ml"},
		Confidence: 0.9,
		RawQuery:   "find experts on supply chain risk",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LedgerEntry options

type EntryOption func(*domain.LedgerEntry)

func WithUser(userID string) EntryOption {
	return func(e *domain.LedgerEntry) {
		e.UserID = userID
	}
}

func WithSession(sessionID string) EntryOption {
	return func(e *domain.LedgerEntry) {
		e.SessionID = sessionID
	}
}

func WithTimestamp(ts time.Time) EntryOption {
	return func(e *domain.LedgerEntry) {
		e.Timestamp = ts
	}
}

func WithBlocked(score float64) EntryOption {
	return func(e *domain.LedgerEntry) {
		e.MaliciousScore = &score
		e.MaliciousBlocked = true
	}
}

func WithVotingResult(v *domain.VotingResult) EntryOption {
	return func(e *domain.LedgerEntry) {
		e.VotingResult = v
	}
}

func WithComparisonResult(c *domain.ComparisonResult) EntryOption {
	return func(e *domain.LedgerEntry) {
		e.ComparisonResult = c
	}
}

func WithElevation(ev *domain.ElevationEvent) EntryOption {
	return func(e *domain.LedgerEntry) {
		e.ElevationEvent = ev
	}
}

func NewTestEntry(opts ...EntryOption) *domain.LedgerEntry {
	e := domain.NewLedgerEntry("session_1", "user_1", "find experts on supply chain risk")
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ElevationEvent options

type ElevationOption func(*domain.ElevationEvent)

func WithElevationReason(reason string) ElevationOption {
	return func(e *domain.ElevationEvent) {
		e.Reason = reason
	}
}

func WithElevationCreatedAt(ts time.Time) ElevationOption {
	return func(e *domain.ElevationEvent) {
		e.CreatedAt = ts
	}
}

func NewTestElevation(opts ...ElevationOption) *domain.ElevationEvent {
	e := &domain.ElevationEvent{
		ID:              uuid.New().String(),
		Reason:          "budget exceeds ceiling within tolerance",
		Status:          domain.ElevationPending,
		CanonicalIntent: *NewTestIntent(),
		UserID:          "user_1",
		SessionID:       "session_1",
		CreatedAt:       time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
