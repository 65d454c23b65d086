package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"intentgate/internal/comparator"
	"intentgate/internal/detector"
	"intentgate/internal/domain"
	"intentgate/internal/generator"
	"intentgate/internal/parser"
	"intentgate/internal/repository"
	"intentgate/internal/voting"
)

// appendAttempts bounds ledger retry on transient storage failure. Upstream
// stages are never re-run; only the INSERT is retried.
const (
	appendAttempts = 3
	appendBackoff  = 10 * time.Millisecond
)

type pipelineService struct {
	detector   *detector.Detector
	ensemble   *parser.Ensemble
	engine     *voting.Engine
	comparator *comparator.Comparator
	generator  *generator.Generator
	processor  Processor
	ledger     repository.LedgerRepo
	elevations repository.ElevationRepo
	notifier   Notifier
	observer   Observer
}

// NewPipelineService wires the full trust pipeline. All collaborators are
// required except the notifier and observers, which may be nil.
func NewPipelineService(
	det *detector.Detector,
	ensemble *parser.Ensemble,
	engine *voting.Engine,
	comp *comparator.Comparator,
	gen *generator.Generator,
	proc Processor,
	ledger repository.LedgerRepo,
	elevations repository.ElevationRepo,
	notifier Notifier,
	observers ...Observer,
) PipelineService {
	return &pipelineService{
		detector:   det,
		ensemble:   ensemble,
		engine:     engine,
		comparator: comp,
		generator:  gen,
		processor:  proc,
		ledger:     ledger,
		elevations: elevations,
		notifier:   notifierOrNoop(notifier),
		observer:   observerOrNoop(observers),
	}
}

// Process runs the seven pipeline stages in strict sequence. Fail-closed:
// any error in voting or generation aborts before the processing engine,
// and nothing is ledgered for aborted runs. Terminal outcomes (blocked,
// rejected, pending, completed, failed generation) are always ledgered.
func (s *pipelineService) Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	start := time.Now()
	result, err := s.process(ctx, req)
	event := PipelineEvent{
		Op:        "process",
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Duration:  time.Since(start),
		Err:       err,
		StartedAt: start,
	}
	if result != nil {
		event.Status = result.Status
		if result.Comparison != nil {
			event.Decision = result.Comparison.Decision
		}
		if result.Elevation != nil {
			event.ElevationID = result.Elevation.ID
		}
	}
	s.observer.ObservePipeline(ctx, event)
	return result, err
}

func (s *pipelineService) process(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	entry := domain.NewLedgerEntry(req.SessionID, req.UserID, req.Query)
	entry.IPAddress = req.IPAddress
	entry.UserAgent = req.UserAgent

	// Stage 1: screening. A blocked request skips parsing entirely but is
	// still ledgered for the audit trail.
	verdict := s.detector.Scan(req.Query)
	entry.MaliciousScore = &verdict.Score
	if verdict.Blocked {
		entry.MaliciousBlocked = true
		id, err := s.appendWithRetry(ctx, entry)
		if err != nil {
			return nil, err
		}
		return &ProcessResult{Status: domain.StatusBlocked, LedgerEntryID: id}, nil
	}

	// Stage 2: parser fan-out.
	results, err := s.ensemble.ParseAll(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("parsing query: %w", err)
	}

	// Stage 3: vote. The deterministic anchor is claimed only when its
	// result actually survived; a timed-out rule parser does not turn a
	// degraded vote into an abort.
	voteRes, err := s.engine.Vote(results, survivingDeterministicID(results))
	if err != nil {
		return nil, fmt.Errorf("voting on parser results: %w", err)
	}
	entry.VotingResult = voteRes

	// Stage 4: policy comparison.
	compRes := s.comparator.Compare(&voteRes.CanonicalIntent)
	entry.ComparisonResult = &compRes

	// Stage 5: hard mismatch terminates. Checked before escalation so a
	// conflicted vote whose canonical intent violates policy can never
	// reach the review queue; a hard mismatch is not human-approvable.
	if compRes.IsHardMismatch() {
		id, err := s.appendWithRetry(ctx, entry)
		if err != nil {
			return nil, err
		}
		return &ProcessResult{
			Status:        domain.StatusRejected,
			LedgerEntryID: id,
			VotingResult:  voteRes,
			Comparison:    &compRes,
		}, nil
	}

	// Stage 6: escalation for conflicts and soft mismatches; the ledger
	// entry carries the pending event.
	if voteRes.HasConflict() || compRes.RequiresElevation {
		event := newElevationEvent(voteRes, &compRes, req)
		if err := s.elevations.Create(ctx, event); err != nil {
			return nil, fmt.Errorf("creating elevation event: %w", err)
		}
		// The event is durable; notification delivery is best effort.
		_ = s.notifier.NotifyElevation(ctx, event)
		entry.ElevationEvent = event
		id, err := s.appendWithRetry(ctx, entry)
		if err != nil {
			return nil, err
		}
		return &ProcessResult{
			Status:        domain.StatusPendingApproval,
			LedgerEntryID: id,
			VotingResult:  voteRes,
			Comparison:    &compRes,
			Elevation:     event,
		}, nil
	}

	// Stage 7: generate and execute.
	trusted, err := s.generator.Generate(&voteRes.CanonicalIntent, req.ContentRefs, generator.Metadata{
		UserID:    req.UserID,
		SessionID: req.SessionID,
	})
	if err != nil {
		// Fail-closed: the comparison verdict is ledgered, no trusted
		// intent is produced and nothing executes.
		id, appendErr := s.appendWithRetry(ctx, entry)
		if appendErr != nil {
			return nil, appendErr
		}
		return &ProcessResult{
			Status:        domain.StatusFailed,
			LedgerEntryID: id,
			VotingResult:  voteRes,
			Comparison:    &compRes,
		}, fmt.Errorf("generating trusted intent: %w", err)
	}
	entry.TrustedIntent = trusted

	output := s.execute(ctx, trusted)
	entry.ProcessingOutput = output

	id, err := s.appendWithRetry(ctx, entry)
	if err != nil {
		return nil, err
	}
	return &ProcessResult{
		Status:        domain.StatusCompleted,
		LedgerEntryID: id,
		VotingResult:  voteRes,
		Comparison:    &compRes,
		TrustedIntent: trusted,
		Output:        output,
	}, nil
}

// execute folds processor failures into the output instead of surfacing
// them: by this point the request is trusted and the ledger records how
// execution went either way.
func (s *pipelineService) execute(ctx context.Context, trusted *domain.TrustedIntent) *domain.ProcessingOutput {
	output, err := s.processor.Execute(ctx, trusted)
	if err != nil {
		msg := err.Error()
		return &domain.ProcessingOutput{Success: false, Error: &msg}
	}
	return output
}

// appendWithRetry retries lock contention only. Deterministic failures
// (append-only violations, marshaling errors) surface on the first attempt;
// retrying them would repeat the same result and delay the caller.
func (s *pipelineService) appendWithRetry(ctx context.Context, entry *domain.LedgerEntry) (string, error) {
	var lastErr error
	for attempt := 0; attempt < appendAttempts; attempt++ {
		id, err := s.ledger.Append(ctx, entry)
		if err == nil {
			return id, nil
		}
		lastErr = err
		if !repository.IsTransient(err) {
			return "", fmt.Errorf("appending ledger entry: %w", err)
		}
		if attempt == appendAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("appending ledger entry: %w", lastErr)
		case <-time.After(time.Duration(attempt+1) * appendBackoff):
		}
	}
	return "", fmt.Errorf("appending ledger entry after %d attempts: %w", appendAttempts, lastErr)
}

func survivingDeterministicID(results []domain.ParsedIntent) string {
	for _, r := range results {
		if r.IsDeterministic {
			return r.ParserID
		}
	}
	return ""
}

func newElevationEvent(vote *domain.VotingResult, comp *domain.ComparisonResult, req ProcessRequest) *domain.ElevationEvent {
	reason := comp.Explanation
	if vote.HasConflict() {
		reason = fmt.Sprintf("parser conflict: min similarity %.2f, avg %.2f", vote.MinSimilarity, vote.AvgSimilarity)
	}
	return &domain.ElevationEvent{
		ID:              uuid.New().String(),
		Reason:          reason,
		Status:          domain.ElevationPending,
		CanonicalIntent: vote.CanonicalIntent,
		ContentRefs:     req.ContentRefs,
		UserID:          req.UserID,
		SessionID:       req.SessionID,
		CreatedAt:       time.Now().UTC(),
	}
}
