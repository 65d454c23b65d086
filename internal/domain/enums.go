package domain

// AgreementLevel classifies how strongly the parser ensemble concurred.
type AgreementLevel string

const (
	AgreementHighConfidence AgreementLevel = "high_confidence"
	AgreementLowConfidence  AgreementLevel = "low_confidence"
	AgreementConflict       AgreementLevel = "conflict"
)

// Decision is the comparator's verdict on a canonical intent.
type Decision string

const (
	DecisionApproved     Decision = "approved"
	DecisionSoftMismatch Decision = "soft_mismatch"
	DecisionHardMismatch Decision = "hard_mismatch"
)

// ElevationStatus tracks the human-review state machine. Pending transitions
// to Approved or Rejected exactly once; both are terminal.
type ElevationStatus string

const (
	ElevationPending  ElevationStatus = "pending"
	ElevationApproved ElevationStatus = "approved"
	ElevationRejected ElevationStatus = "rejected"
)

// RequestStatus is the terminal state of one pipeline run.
type RequestStatus string

const (
	StatusCompleted       RequestStatus = "completed"
	StatusBlocked         RequestStatus = "blocked"
	StatusRejected        RequestStatus = "rejected"
	StatusPendingApproval RequestStatus = "pending_approval"
	StatusFailed          RequestStatus = "failed"
)
