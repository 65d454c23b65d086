package domain

import "time"

// TrustedIntent is the fully sanitized, hashed, optionally signed instruction
// handed to the processing engine. It carries identifiers only; no substring
// of the original free-form user text survives into it. Immutable once
// constructed.
type TrustedIntent struct {
	ID          string      `json:"id"`
	Timestamp   time.Time   `json:"timestamp"`
	Action      string      `json:"action"`
	TopicID     string      `json:"topic_id"`
	Expertise   []string    `json:"expertise"`
	Constraints Constraints `json:"constraints"`
	ContentRefs []string    `json:"content_refs"`
	ContentHash string      `json:"content_hash"`
	Signature   *string     `json:"signature,omitempty"`
	SigScheme   string      `json:"sig_scheme,omitempty"`
	UserID      string      `json:"user_id"`
	SessionID   string      `json:"session_id"`
}

// Signed reports whether a signature was attached at generation time.
func (t *TrustedIntent) Signed() bool {
	return t.Signature != nil && *t.Signature != ""
}
