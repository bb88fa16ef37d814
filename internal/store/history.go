// ABOUTME: Append-only setting history ledger and bounded retrieval
// ABOUTME: Records are written only from the upsert update path, inside its transaction

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/2389/confstore/internal/settings"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertChange appends one change record. Called exclusively from the
// setting upsert's update path so the insert shares that transaction; it is
// not part of the public store surface.
func insertChange(ctx context.Context, e execer, rec *settings.ChangeRecord) error {
	query := `
		INSERT INTO setting_history
			(id, setting_id, name, screen, scope, instance_id, user_id,
			 value_type, old_value, new_value, changed_at, changed_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := e.ExecContext(ctx, query,
		rec.ID,
		rec.SettingID,
		rec.Name,
		rec.Screen,
		string(rec.Scope),
		rec.InstanceID,
		rec.UserID,
		string(rec.ValueType),
		rec.OldValue,
		rec.NewValue,
		formatTime(rec.ChangedAt),
		rec.ChangedBy,
	)
	if err != nil {
		return fmt.Errorf("inserting history record: %w", err)
	}
	return nil
}

// normalizeHistoryLimit applies default (10) and cap (1000) to history limit.
func normalizeHistoryLimit(limit int) int {
	switch {
	case limit <= 0:
		return 10
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}

// ListSettingHistory returns up to limit most recent transitions for the
// (name, screen) pair, newest first. All scopes sharing that name and screen
// contribute to the result.
func (s *SQLiteStore) ListSettingHistory(ctx context.Context, name, screen string, limit int) ([]*settings.ChangeRecord, error) {
	limit = normalizeHistoryLimit(limit)

	query := `
		SELECT id, setting_id, name, screen, scope, instance_id, user_id,
		       value_type, old_value, new_value, changed_at, changed_by
		FROM setting_history
		WHERE name = ? AND screen = ?
		ORDER BY changed_at DESC, id
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, name, screen, limit)
	if err != nil {
		return nil, fmt.Errorf("querying setting history: %w", err)
	}
	defer rows.Close()

	var records []*settings.ChangeRecord
	for rows.Next() {
		rec, err := scanChangeRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history rows: %w", err)
	}
	return records, nil
}

// scanChangeRecord scans a row into a ChangeRecord.
func scanChangeRecord(scanner interface{ Scan(dest ...any) error }) (*settings.ChangeRecord, error) {
	var rec settings.ChangeRecord
	var scopeStr, typeStr, changedAtStr string

	if err := scanner.Scan(
		&rec.ID,
		&rec.SettingID,
		&rec.Name,
		&rec.Screen,
		&scopeStr,
		&rec.InstanceID,
		&rec.UserID,
		&typeStr,
		&rec.OldValue,
		&rec.NewValue,
		&changedAtStr,
		&rec.ChangedBy,
	); err != nil {
		return nil, fmt.Errorf("scanning history record: %w", err)
	}

	rec.Scope = settings.Scope(scopeStr)
	rec.ValueType = settings.ValueType(typeStr)

	var err error
	rec.ChangedAt, err = parseTime(changedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing changed_at: %w", err)
	}
	return &rec, nil
}
