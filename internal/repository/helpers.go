package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"intentgate/internal/db"
)

// mapSQLiteError translates trigger aborts into the package sentinel so
// callers can errors.Is against ErrAppendOnly regardless of driver wording.
func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), db.AppendOnlyMessage) {
		return fmt.Errorf("%w: %v", ErrAppendOnly, err)
	}
	return err
}

// IsTransient reports whether a storage error is worth retrying: SQLite
// lock contention clears on its own, while constraint violations and
// marshaling failures repeat identically on every attempt.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "busy")
}

// marshalNullable serializes a nested result to JSON, or SQL NULL for nil.
// The pointer check uses Marshal's own nil handling: a typed nil pointer
// marshals to "null", which we store as NULL.
func marshalNullable(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling nested result: %w", err)
	}
	if string(data) == "null" {
		return nil, nil
	}
	return string(data), nil
}

// unmarshalNullable decodes a JSON column into target when present.
func unmarshalNullable(s sql.NullString, target any) error {
	if !s.Valid || s.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s.String), target); err != nil {
		return fmt.Errorf("decoding nested result: %w", err)
	}
	return nil
}

// parseNullableTime parses a nullable RFC3339 column.
func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}

// nullableTimeToString converts *time.Time to a storable value.
func nullableTimeToString(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

// nullableString converts *string to a storable value.
func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// stringPtr returns a *string for a valid NullString, nil otherwise.
func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
