package repository

import (
	"context"
	"errors"
	"time"

	"intentgate/internal/domain"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAppendOnly indicates an update or delete was attempted on the
	// ledger. The storage triggers reject the statement; this error is the
	// Go-side mapping of that rejection.
	ErrAppendOnly = errors.New("append-only violation")

	// ErrAlreadyResolved indicates an elevation event was already resolved
	// by another approver. The original resolution stands.
	ErrAlreadyResolved = errors.New("elevation already resolved")
)

// LedgerFilter narrows ListByTimeRange style queries.
type LedgerFilter struct {
	UserID    string
	SessionID string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// LedgerRepo is the append-only audit store. Append is the only mutation;
// no update or delete exists in the contract, and the storage layer rejects
// them even when issued as raw SQL.
type LedgerRepo interface {
	Append(ctx context.Context, entry *domain.LedgerEntry) (string, error)
	GetByID(ctx context.Context, id string) (*domain.LedgerEntry, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.LedgerEntry, error)
	ListBySession(ctx context.Context, sessionID string) ([]*domain.LedgerEntry, error)
	ListByTimeRange(ctx context.Context, filter LedgerFilter) ([]*domain.LedgerEntry, error)
	ListBlocked(ctx context.Context, limit, offset int) ([]*domain.LedgerEntry, error)
	ListWithElevation(ctx context.Context, limit, offset int) ([]*domain.LedgerEntry, error)
	Stats(ctx context.Context) (*domain.LedgerStats, error)
}

// ElevationRepo stores human-review events. Resolve is a compare-and-
// transition guarded on pending status: exactly one resolution wins.
type ElevationRepo interface {
	Create(ctx context.Context, e *domain.ElevationEvent) error
	GetByID(ctx context.Context, id string) (*domain.ElevationEvent, error)
	ListPending(ctx context.Context) ([]*domain.ElevationEvent, error)
	Resolve(ctx context.Context, id, approverID string, status domain.ElevationStatus, notes *string) (*domain.ElevationEvent, error)
}
