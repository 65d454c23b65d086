package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// LedgerEntry aggregates one request's passage through the pipeline. Created
// once per request and append-only: no field may change after persistence.
// The ledger is the sole long-term owner of everything it records.
type LedgerEntry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`

	UserInput     string `json:"user_input"`
	UserInputHash string `json:"user_input_hash"`

	MaliciousScore   *float64 `json:"malicious_score,omitempty"`
	MaliciousBlocked bool     `json:"malicious_blocked"`

	VotingResult     *VotingResult     `json:"voting_result,omitempty"`
	ComparisonResult *ComparisonResult `json:"comparison_result,omitempty"`
	ElevationEvent   *ElevationEvent   `json:"elevation_event,omitempty"`
	TrustedIntent    *TrustedIntent    `json:"trusted_intent,omitempty"`
	ProcessingOutput *ProcessingOutput `json:"processing_output,omitempty"`

	IPAddress *string `json:"ip_address,omitempty"`
	UserAgent *string `json:"user_agent,omitempty"`
}

// NewLedgerEntry creates an entry with a fresh ID, the current timestamp and
// the duplicate-detection hash of the raw input.
func NewLedgerEntry(sessionID, userID, userInput string) *LedgerEntry {
	return &LedgerEntry{
		ID:            uuid.New().String(),
		SessionID:     sessionID,
		UserID:        userID,
		Timestamp:     time.Now().UTC(),
		UserInput:     userInput,
		UserInputHash: HashInput(userInput),
	}
}

// HashInput returns the sha256 hex digest used for duplicate detection.
func HashInput(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// WasExecuted reports whether the processing engine ran for this entry.
func (e *LedgerEntry) WasExecuted() bool {
	return e.ProcessingOutput != nil
}

// LedgerStats aggregates counts across the whole ledger.
type LedgerStats struct {
	TotalEntries    int64      `json:"total_entries"`
	TotalUsers      int64      `json:"total_users"`
	TotalSessions   int64      `json:"total_sessions"`
	BlockedEntries  int64      `json:"blocked_entries"`
	ElevationEvents int64      `json:"elevation_events"`
	OldestEntry     *time.Time `json:"oldest_entry,omitempty"`
	NewestEntry     *time.Time `json:"newest_entry,omitempty"`
}
