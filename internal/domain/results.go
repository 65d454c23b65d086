package domain

import "time"

// VotingResult is the consensus derived from the parser ensemble. Derived
// once per request, never mutated.
type VotingResult struct {
	AgreementLevel  AgreementLevel `json:"agreement_level"`
	CanonicalIntent ParsedIntent   `json:"canonical_intent"`
	ParserResults   []ParsedIntent `json:"parser_results"`
	MinSimilarity   float64        `json:"min_similarity"`
	AvgSimilarity   float64        `json:"avg_similarity"`
}

// IsHighConfidence reports whether all parsers effectively agreed.
func (v *VotingResult) IsHighConfidence() bool {
	return v.AgreementLevel == AgreementHighConfidence
}

// HasConflict reports whether the ensemble disagreed badly enough to require
// human review.
func (v *VotingResult) HasConflict() bool {
	return v.AgreementLevel == AgreementConflict
}

// ComparisonResult is the comparator's verdict on the canonical intent
// against provider policy.
type ComparisonResult struct {
	Decision          Decision `json:"decision"`
	Mismatches        []string `json:"mismatches"`
	RequiresElevation bool     `json:"requires_elevation"`
	Explanation       string   `json:"explanation"`
}

// IsApproved reports whether every policy check passed.
func (c *ComparisonResult) IsApproved() bool {
	return c.Decision == DecisionApproved
}

// IsHardMismatch reports an unconditionally blocking violation. A hard
// mismatch is never auto-approvable downstream.
func (c *ComparisonResult) IsHardMismatch() bool {
	return c.Decision == DecisionHardMismatch
}

// ElevationEvent is one human-review record. It is created Pending and
// resolved to Approved or Rejected exactly once. The canonical intent and
// the request's content refs are carried so an approval can re-enter the
// pipeline at the generator with the full original input.
type ElevationEvent struct {
	ID              string          `json:"id"`
	Reason          string          `json:"reason"`
	Status          ElevationStatus `json:"status"`
	CanonicalIntent ParsedIntent    `json:"canonical_intent"`
	ContentRefs     []string        `json:"content_refs,omitempty"`
	UserID          string          `json:"user_id"`
	SessionID       string          `json:"session_id"`
	ApproverID      *string         `json:"approver_id,omitempty"`
	ResolvedAt      *time.Time      `json:"resolved_at,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Terminal reports whether the event has been resolved.
func (e *ElevationEvent) Terminal() bool {
	return e.Status != ElevationPending
}

// ProcessingOutput is the execution engine's report, folded into the ledger.
type ProcessingOutput struct {
	Success         bool           `json:"success"`
	Result          map[string]any `json:"result,omitempty"`
	Error           *string        `json:"error,omitempty"`
	ExecutionTimeMs int64          `json:"execution_time_ms"`
}
