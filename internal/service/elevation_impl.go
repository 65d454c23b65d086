package service

import (
	"context"
	"fmt"
	"time"

	"intentgate/internal/domain"
	"intentgate/internal/generator"
	"intentgate/internal/repository"
)

type elevationService struct {
	elevations repository.ElevationRepo
	ledger     repository.LedgerRepo
	generator  *generator.Generator
	processor  Processor
	observer   Observer
}

// NewElevationService creates the human-review service. Approvals re-enter
// the pipeline at the generator, so it shares the generator and processor
// with the pipeline service.
func NewElevationService(
	elevations repository.ElevationRepo,
	ledger repository.LedgerRepo,
	gen *generator.Generator,
	proc Processor,
	observers ...Observer,
) ElevationService {
	return &elevationService{
		elevations: elevations,
		ledger:     ledger,
		generator:  gen,
		processor:  proc,
		observer:   observerOrNoop(observers),
	}
}

func (s *elevationService) ListPending(ctx context.Context) ([]*domain.ElevationEvent, error) {
	return s.elevations.ListPending(ctx)
}

// Resolve transitions the event exactly once. On approval the stored
// canonical intent re-enters at the generator and a NEW ledger entry is
// appended for the resumed run; the original pending entry is immutable and
// never touched. A rejection terminates with no trusted intent.
func (s *elevationService) Resolve(ctx context.Context, id, approverID string, approve bool, notes *string) (*ResolveResult, error) {
	start := time.Now()
	result, err := s.resolve(ctx, id, approverID, approve, notes)
	event := PipelineEvent{
		Op:          "resolve",
		ElevationID: id,
		ApproverID:  approverID,
		Approved:    approve,
		Duration:    time.Since(start),
		Err:         err,
		StartedAt:   start,
	}
	if result != nil && result.Event != nil {
		event.UserID = result.Event.UserID
		event.SessionID = result.Event.SessionID
	}
	s.observer.ObservePipeline(ctx, event)
	return result, err
}

func (s *elevationService) resolve(ctx context.Context, id, approverID string, approve bool, notes *string) (*ResolveResult, error) {
	status := domain.ElevationRejected
	if approve {
		status = domain.ElevationApproved
	}

	event, err := s.elevations.Resolve(ctx, id, approverID, status, notes)
	if err != nil {
		return nil, err
	}
	if !approve {
		return &ResolveResult{Event: event}, nil
	}

	// Approved: resume at the generator using the intent that triggered
	// the escalation.
	entry := domain.NewLedgerEntry(event.SessionID, event.UserID, event.CanonicalIntent.RawQuery)
	entry.ElevationEvent = event

	trusted, err := s.generator.Generate(&event.CanonicalIntent, event.ContentRefs, generator.Metadata{
		UserID:    event.UserID,
		SessionID: event.SessionID,
	})
	if err != nil {
		if _, appendErr := s.ledger.Append(ctx, entry); appendErr != nil {
			return nil, appendErr
		}
		return &ResolveResult{Event: event, LedgerEntryID: entry.ID},
			fmt.Errorf("generating trusted intent after approval: %w", err)
	}
	entry.TrustedIntent = trusted

	output, err := s.processor.Execute(ctx, trusted)
	if err != nil {
		msg := err.Error()
		output = &domain.ProcessingOutput{Success: false, Error: &msg}
	}
	entry.ProcessingOutput = output

	ledgerID, err := s.ledger.Append(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("appending resumed ledger entry: %w", err)
	}
	return &ResolveResult{
		Event:         event,
		LedgerEntryID: ledgerID,
		TrustedIntent: trusted,
		Output:        output,
	}, nil
}
