package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"intentgate/internal/domain"
)

// SQLiteLedgerRepo implements LedgerRepo over SQLite. The append-only
// guarantee is enforced by database triggers; this type deliberately has no
// update or delete method.
type SQLiteLedgerRepo struct {
	db *sql.DB
}

// NewSQLiteLedgerRepo creates a new SQLiteLedgerRepo.
func NewSQLiteLedgerRepo(db *sql.DB) *SQLiteLedgerRepo {
	return &SQLiteLedgerRepo{db: db}
}

const ledgerColumns = `id, session_id, user_id, timestamp, user_input, user_input_hash,
	malicious_score, malicious_blocked, voting_result, comparison_result,
	elevation_event, trusted_intent, processing_output, ip_address, user_agent`

// Append persists the entry in a single atomic INSERT and returns its id.
// Either the full record lands or none of it does.
func (r *SQLiteLedgerRepo) Append(ctx context.Context, entry *domain.LedgerEntry) (string, error) {
	votingJSON, err := marshalNullable(entry.VotingResult)
	if err != nil {
		return "", err
	}
	comparisonJSON, err := marshalNullable(entry.ComparisonResult)
	if err != nil {
		return "", err
	}
	elevationJSON, err := marshalNullable(entry.ElevationEvent)
	if err != nil {
		return "", err
	}
	trustedJSON, err := marshalNullable(entry.TrustedIntent)
	if err != nil {
		return "", err
	}
	outputJSON, err := marshalNullable(entry.ProcessingOutput)
	if err != nil {
		return "", err
	}

	query := `INSERT INTO ledger_entries (` + ledgerColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.SessionID,
		entry.UserID,
		entry.Timestamp.UTC().Format(time.RFC3339Nano),
		entry.UserInput,
		entry.UserInputHash,
		nullableFloat(entry.MaliciousScore),
		boolToInt(entry.MaliciousBlocked),
		votingJSON,
		comparisonJSON,
		elevationJSON,
		trustedJSON,
		outputJSON,
		nullableString(entry.IPAddress),
		nullableString(entry.UserAgent),
	)
	if err != nil {
		return "", fmt.Errorf("appending ledger entry: %w", mapSQLiteError(err))
	}
	return entry.ID, nil
}

func (r *SQLiteLedgerRepo) GetByID(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE id = ?`
	return r.scanEntry(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteLedgerRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries
		WHERE user_id = ? ORDER BY timestamp DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, userID, normalizeLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("listing ledger entries by user: %w", err)
	}
	defer rows.Close()
	return r.scanEntries(rows)
}

func (r *SQLiteLedgerRepo) ListBySession(ctx context.Context, sessionID string) ([]*domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries
		WHERE session_id = ? ORDER BY timestamp`
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing ledger entries by session: %w", err)
	}
	defer rows.Close()
	return r.scanEntries(rows)
}

func (r *SQLiteLedgerRepo) ListByTimeRange(ctx context.Context, filter LedgerFilter) ([]*domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE 1=1`
	var args []any

	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.SessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, filter.SessionID)
	}
	if filter.From != nil {
		query += ` AND timestamp >= ?`
		args = append(args, filter.From.UTC().Format(time.RFC3339Nano))
	}
	if filter.To != nil {
		query += ` AND timestamp < ?`
		args = append(args, filter.To.UTC().Format(time.RFC3339Nano))
	}
	query += ` ORDER BY timestamp DESC LIMIT ? OFFSET ?`
	args = append(args, normalizeLimit(filter.Limit), filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing ledger entries by time range: %w", err)
	}
	defer rows.Close()
	return r.scanEntries(rows)
}

func (r *SQLiteLedgerRepo) ListBlocked(ctx context.Context, limit, offset int) ([]*domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries
		WHERE malicious_blocked = 1 ORDER BY timestamp DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, normalizeLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("listing blocked ledger entries: %w", err)
	}
	defer rows.Close()
	return r.scanEntries(rows)
}

func (r *SQLiteLedgerRepo) ListWithElevation(ctx context.Context, limit, offset int) ([]*domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries
		WHERE elevation_event IS NOT NULL ORDER BY timestamp DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, normalizeLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("listing elevated ledger entries: %w", err)
	}
	defer rows.Close()
	return r.scanEntries(rows)
}

func (r *SQLiteLedgerRepo) Stats(ctx context.Context) (*domain.LedgerStats, error) {
	query := `SELECT
		COUNT(*),
		COUNT(DISTINCT user_id),
		COUNT(DISTINCT session_id),
		COALESCE(SUM(malicious_blocked), 0),
		COUNT(elevation_event),
		MIN(timestamp),
		MAX(timestamp)
	FROM ledger_entries`

	var stats domain.LedgerStats
	var oldest, newest sql.NullString
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalEntries,
		&stats.TotalUsers,
		&stats.TotalSessions,
		&stats.BlockedEntries,
		&stats.ElevationEvents,
		&oldest,
		&newest,
	)
	if err != nil {
		return nil, fmt.Errorf("computing ledger stats: %w", err)
	}
	stats.OldestEntry = parseNullableTime(oldest)
	stats.NewestEntry = parseNullableTime(newest)
	return &stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteLedgerRepo) scanEntry(row *sql.Row) (*domain.LedgerEntry, error) {
	entry, err := scanLedgerRow(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("ledger entry: %w", ErrNotFound)
	}
	return entry, err
}

func (r *SQLiteLedgerRepo) scanEntries(rows *sql.Rows) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ledger entries: %w", err)
	}
	return entries, nil
}

func scanLedgerRow(row rowScanner) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var timestampStr string
	var score sql.NullFloat64
	var blocked int
	var votingJSON, comparisonJSON, elevationJSON, trustedJSON, outputJSON sql.NullString
	var ipAddress, userAgent sql.NullString

	err := row.Scan(
		&e.ID, &e.SessionID, &e.UserID, &timestampStr, &e.UserInput, &e.UserInputHash,
		&score, &blocked, &votingJSON, &comparisonJSON,
		&elevationJSON, &trustedJSON, &outputJSON, &ipAddress, &userAgent,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning ledger entry: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, timestampStr)
	if err != nil {
		return nil, fmt.Errorf("parsing ledger timestamp: %w", err)
	}
	e.Timestamp = ts
	if score.Valid {
		e.MaliciousScore = &score.Float64
	}
	e.MaliciousBlocked = blocked != 0

	if votingJSON.Valid {
		e.VotingResult = &domain.VotingResult{}
		if err := unmarshalNullable(votingJSON, e.VotingResult); err != nil {
			return nil, err
		}
	}
	if comparisonJSON.Valid {
		e.ComparisonResult = &domain.ComparisonResult{}
		if err := unmarshalNullable(comparisonJSON, e.ComparisonResult); err != nil {
			return nil, err
		}
	}
	if elevationJSON.Valid {
		e.ElevationEvent = &domain.ElevationEvent{}
		if err := unmarshalNullable(elevationJSON, e.ElevationEvent); err != nil {
			return nil, err
		}
	}
	if trustedJSON.Valid {
		e.TrustedIntent = &domain.TrustedIntent{}
		if err := unmarshalNullable(trustedJSON, e.TrustedIntent); err != nil {
			return nil, err
		}
	}
	if outputJSON.Valid {
		e.ProcessingOutput = &domain.ProcessingOutput{}
		if err := unmarshalNullable(outputJSON, e.ProcessingOutput); err != nil {
			return nil, err
		}
	}
	e.IPAddress = stringPtr(ipAddress)
	e.UserAgent = stringPtr(userAgent)
	return &e, nil
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}
