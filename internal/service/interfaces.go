package service

import (
	"context"

	"intentgate/internal/domain"
)

// ProcessRequest is one inbound query plus its attribution.
type ProcessRequest struct {
	UserID      string
	SessionID   string
	Query       string
	ContentRefs []string
	IPAddress   *string
	UserAgent   *string
}

// ProcessResult reports how a request ended. The ledger entry id always
// refers to a persisted record; TrustedIntent and Output are set only on
// the completed path.
type ProcessResult struct {
	Status        domain.RequestStatus
	LedgerEntryID string
	VotingResult  *domain.VotingResult
	Comparison    *domain.ComparisonResult
	Elevation     *domain.ElevationEvent
	TrustedIntent *domain.TrustedIntent
	Output        *domain.ProcessingOutput
}

// PipelineService runs one request through the full trust pipeline.
type PipelineService interface {
	Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error)
}

// ElevationService manages the human-review queue. Approve re-enters the
// pipeline at the generator with the stored canonical intent; Reject
// terminates the request with no trusted intent.
type ElevationService interface {
	ListPending(ctx context.Context) ([]*domain.ElevationEvent, error)
	Resolve(ctx context.Context, id, approverID string, approve bool, notes *string) (*ResolveResult, error)
}

// ResolveResult is the outcome of one elevation decision.
type ResolveResult struct {
	Event         *domain.ElevationEvent
	LedgerEntryID string
	TrustedIntent *domain.TrustedIntent
	Output        *domain.ProcessingOutput
}

// Processor executes a trusted intent. The real engine lives outside this
// module; StubProcessor ships for local runs and tests.
type Processor interface {
	Execute(ctx context.Context, intent *domain.TrustedIntent) (*domain.ProcessingOutput, error)
}
