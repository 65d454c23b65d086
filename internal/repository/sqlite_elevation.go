package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"intentgate/internal/domain"
)

// SQLiteElevationRepo implements ElevationRepo over SQLite.
type SQLiteElevationRepo struct {
	db *sql.DB
}

// NewSQLiteElevationRepo creates a new SQLiteElevationRepo.
func NewSQLiteElevationRepo(db *sql.DB) *SQLiteElevationRepo {
	return &SQLiteElevationRepo{db: db}
}

const elevationColumns = `id, reason, status, canonical_intent, content_refs, user_id, session_id,
	approver_id, resolved_at, notes, created_at`

func (r *SQLiteElevationRepo) Create(ctx context.Context, e *domain.ElevationEvent) error {
	intentJSON, err := json.Marshal(e.CanonicalIntent)
	if err != nil {
		return fmt.Errorf("marshaling canonical intent: %w", err)
	}
	refsJSON, err := marshalNullable(e.ContentRefs)
	if err != nil {
		return fmt.Errorf("marshaling content refs: %w", err)
	}

	query := `INSERT INTO elevation_events (` + elevationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		e.ID,
		e.Reason,
		string(e.Status),
		string(intentJSON),
		refsJSON,
		e.UserID,
		e.SessionID,
		nullableString(e.ApproverID),
		nullableTimeToString(e.ResolvedAt),
		nullableString(e.Notes),
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting elevation event: %w", err)
	}
	return nil
}

func (r *SQLiteElevationRepo) GetByID(ctx context.Context, id string) (*domain.ElevationEvent, error) {
	query := `SELECT ` + elevationColumns + ` FROM elevation_events WHERE id = ?`
	e, err := scanElevationRow(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("elevation event: %w", ErrNotFound)
	}
	return e, err
}

func (r *SQLiteElevationRepo) ListPending(ctx context.Context) ([]*domain.ElevationEvent, error) {
	query := `SELECT ` + elevationColumns + ` FROM elevation_events
		WHERE status = 'pending' ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing pending elevations: %w", err)
	}
	defer rows.Close()

	var events []*domain.ElevationEvent
	for rows.Next() {
		e, err := scanElevationRow(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating elevation events: %w", err)
	}
	return events, nil
}

// Resolve transitions a pending event to the given terminal status. The
// UPDATE is guarded on status = 'pending' so exactly one resolution wins
// under concurrent attempts; the loser gets ErrAlreadyResolved and the
// record keeps the winner's values.
func (r *SQLiteElevationRepo) Resolve(ctx context.Context, id, approverID string, status domain.ElevationStatus, notes *string) (*domain.ElevationEvent, error) {
	if status != domain.ElevationApproved && status != domain.ElevationRejected {
		return nil, fmt.Errorf("resolve requires a terminal status, got %q", status)
	}

	query := `UPDATE elevation_events
		SET status = ?, approver_id = ?, resolved_at = ?, notes = ?
		WHERE id = ? AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query,
		string(status),
		approverID,
		time.Now().UTC().Format(time.RFC3339Nano),
		nullableString(notes),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("resolving elevation event: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking resolution effect: %w", err)
	}
	if affected == 0 {
		existing, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return existing, fmt.Errorf("elevation %s: %w", id, ErrAlreadyResolved)
	}
	return r.GetByID(ctx, id)
}

func scanElevationRow(row rowScanner) (*domain.ElevationEvent, error) {
	var e domain.ElevationEvent
	var status, intentJSON, createdAtStr string
	var refsJSON, approverID, resolvedAt, notes sql.NullString

	err := row.Scan(
		&e.ID, &e.Reason, &status, &intentJSON, &refsJSON, &e.UserID, &e.SessionID,
		&approverID, &resolvedAt, &notes, &createdAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning elevation event: %w", err)
	}

	e.Status = domain.ElevationStatus(status)
	if err := json.Unmarshal([]byte(intentJSON), &e.CanonicalIntent); err != nil {
		return nil, fmt.Errorf("decoding canonical intent: %w", err)
	}
	if err := unmarshalNullable(refsJSON, &e.ContentRefs); err != nil {
		return nil, err
	}
	created, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing elevation created_at: %w", err)
	}
	e.CreatedAt = created
	e.ApproverID = stringPtr(approverID)
	e.ResolvedAt = parseNullableTime(resolvedAt)
	e.Notes = stringPtr(notes)
	return &e, nil
}
