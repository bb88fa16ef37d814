// ABOUTME: Settings CRUD over the settings table with transactional upsert
// ABOUTME: Flattens the typed Value union to four nullable payload columns

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/2389/confstore/internal/settings"
)

const settingColumns = `id, name, screen, scope, instance_id, user_id, value_type,
		value_string, value_integer, value_float, value_boolean,
		description, editable, visible, default_value,
		created_at, updated_at, created_by, updated_by`

// payloadArgs flattens a Value into the four nullable payload columns in
// (string, integer, float, boolean) order. Exactly one is non-nil.
func payloadArgs(v settings.Value) (valString, valInteger, valFloat, valBoolean any) {
	switch v.Type {
	case settings.TypeBoolean:
		return nil, nil, nil, v.Bool()
	case settings.TypeInteger:
		return nil, v.Int(), nil, nil
	case settings.TypeFloat:
		return nil, nil, v.Float(), nil
	default:
		return v.Str(), nil, nil, nil
	}
}

// rebuildValue reassembles a Value from the recorded type and the payload
// columns. The recorded type selects which column is authoritative.
func rebuildValue(t settings.ValueType, vs sql.NullString, vi sql.NullInt64, vf sql.NullFloat64, vb sql.NullBool) settings.Value {
	switch t {
	case settings.TypeBoolean:
		return settings.BoolValue(vb.Bool)
	case settings.TypeInteger:
		return settings.IntValue(vi.Int64)
	case settings.TypeFloat:
		return settings.FloatValue(vf.Float64)
	default:
		return settings.StringValue(vs.String)
	}
}

// scanSetting scans a row into a Setting.
func scanSetting(scanner interface{ Scan(dest ...any) error }) (*settings.Setting, error) {
	var st settings.Setting
	var scopeStr, typeStr, createdAtStr, updatedAtStr string
	var vs, defaultValue sql.NullString
	var vi sql.NullInt64
	var vf sql.NullFloat64
	var vb sql.NullBool

	if err := scanner.Scan(
		&st.ID,
		&st.Name,
		&st.Screen,
		&scopeStr,
		&st.InstanceID,
		&st.UserID,
		&typeStr,
		&vs,
		&vi,
		&vf,
		&vb,
		&st.Description,
		&st.Editable,
		&st.Visible,
		&defaultValue,
		&createdAtStr,
		&updatedAtStr,
		&st.CreatedBy,
		&st.UpdatedBy,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, settings.ErrNotFound
		}
		return nil, fmt.Errorf("scanning setting: %w", err)
	}

	st.Scope = settings.Scope(scopeStr)
	st.Value = rebuildValue(settings.ValueType(typeStr), vs, vi, vf, vb)
	if defaultValue.Valid {
		st.DefaultValue = defaultValue.String
	}

	var err error
	st.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	st.UpdatedAt, err = parseTime(updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &st, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// getSetting performs the exact-identity lookup against db or an open
// transaction. Sentinel values make the identity comparison plain equality.
func getSetting(ctx context.Context, q querier, key settings.Key) (*settings.Setting, error) {
	query := `
		SELECT ` + settingColumns + `
		FROM settings
		WHERE name = ? AND screen = ? AND scope = ? AND instance_id = ? AND user_id = ?
	`
	row := q.QueryRowContext(ctx, query, key.Name, key.Screen, string(key.Scope), key.InstanceID, key.UserID)
	return scanSetting(row)
}

// GetSetting retrieves the setting addressed by key.
// Returns settings.ErrNotFound if no exact identity match exists.
func (s *SQLiteStore) GetSetting(ctx context.Context, key settings.Key) (*settings.Setting, error) {
	return getSetting(ctx, s.db, key)
}

// UpsertSetting inserts or updates the setting addressed by st's identity.
//
// The read of the existing row, the entry mutation and the history insert all
// run inside one transaction: on any failure the whole operation rolls back
// and no partial state is observable. A history record is written only on the
// update path, carrying the previous payload value read inside the same
// transaction. Returns true when a new row was created.
func (s *SQLiteStore) UpsertSetting(ctx context.Context, st *settings.Setting) (created bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	existing, err := getSetting(ctx, tx, st.Key)
	if err != nil && !errors.Is(err, settings.ErrNotFound) {
		return false, fmt.Errorf("reading existing setting: %w", err)
	}

	vs, vi, vf, vb := payloadArgs(st.Value)

	if existing == nil {
		if st.ID == "" {
			st.ID = uuid.New().String()
		}
		st.CreatedAt = now
		st.UpdatedAt = now

		insert := `
			INSERT INTO settings
				(id, name, screen, scope, instance_id, user_id, value_type,
				 value_string, value_integer, value_float, value_boolean,
				 description, editable, visible, default_value,
				 created_at, updated_at, created_by, updated_by)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		if _, err = tx.ExecContext(ctx, insert,
			st.ID,
			st.Name,
			st.Screen,
			string(st.Scope),
			st.InstanceID,
			st.UserID,
			string(st.Value.Type),
			vs, vi, vf, vb,
			st.Description,
			st.Editable,
			st.Visible,
			nullString(st.DefaultValue),
			formatTime(st.CreatedAt),
			formatTime(st.UpdatedAt),
			st.CreatedBy,
			st.UpdatedBy,
		); err != nil {
			return false, fmt.Errorf("inserting setting: %w", err)
		}

		if err = tx.Commit(); err != nil {
			return false, fmt.Errorf("committing setting insert: %w", err)
		}

		s.logger.Debug("created setting",
			"name", st.Name, "screen", st.Screen, "scope", st.Scope)
		return true, nil
	}

	// Identity fields are immutable: the update touches only payload,
	// metadata and audit columns.
	st.ID = existing.ID
	st.CreatedAt = existing.CreatedAt
	st.CreatedBy = existing.CreatedBy
	st.UpdatedAt = now

	update := `
		UPDATE settings
		SET value_type = ?,
			value_string = ?, value_integer = ?, value_float = ?, value_boolean = ?,
			description = ?, editable = ?, visible = ?, default_value = ?,
			updated_at = ?, updated_by = ?
		WHERE id = ?
	`
	if _, err = tx.ExecContext(ctx, update,
		string(st.Value.Type),
		vs, vi, vf, vb,
		st.Description,
		st.Editable,
		st.Visible,
		nullString(st.DefaultValue),
		formatTime(st.UpdatedAt),
		st.UpdatedBy,
		existing.ID,
	); err != nil {
		return false, fmt.Errorf("updating setting: %w", err)
	}

	rec := &settings.ChangeRecord{
		ID:        uuid.New().String(),
		SettingID: existing.ID,
		Key:       st.Key,
		ValueType: st.Value.Type,
		OldValue:  existing.Value.String(),
		NewValue:  st.Value.String(),
		ChangedAt: now,
		ChangedBy: st.UpdatedBy,
	}
	if err = insertChange(ctx, tx, rec); err != nil {
		return false, err
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("committing setting update: %w", err)
	}

	s.logger.Debug("updated setting",
		"name", st.Name, "screen", st.Screen, "scope", st.Scope,
		"old", rec.OldValue, "new", rec.NewValue)
	return false, nil
}

// ListSettingsByScreen returns all settings for a screen, optionally narrowed
// by scope, instance or user, ordered by name.
func (s *SQLiteStore) ListSettingsByScreen(ctx context.Context, screen string, f settings.Filter) ([]*settings.Setting, error) {
	query := `
		SELECT ` + settingColumns + `
		FROM settings
		WHERE screen = ?
	`
	args := []any{screen}

	if f.Scope != "" {
		query += " AND scope = ?"
		args = append(args, string(f.Scope))
	}
	if f.InstanceID != "" {
		query += " AND instance_id = ?"
		args = append(args, f.InstanceID)
	}
	if f.UserID != 0 {
		query += " AND user_id = ?"
		args = append(args, f.UserID)
	}

	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying settings by screen: %w", err)
	}
	defer rows.Close()

	return collectSettings(rows)
}

// ListUserSettings returns all USER-scope settings for an account, ordered by
// screen then name.
func (s *SQLiteStore) ListUserSettings(ctx context.Context, userID int64) ([]*settings.Setting, error) {
	query := `
		SELECT ` + settingColumns + `
		FROM settings
		WHERE scope = ? AND user_id = ?
		ORDER BY screen, name
	`

	rows, err := s.db.QueryContext(ctx, query, string(settings.ScopeUser), userID)
	if err != nil {
		return nil, fmt.Errorf("querying user settings: %w", err)
	}
	defer rows.Close()

	return collectSettings(rows)
}

// collectSettings drains rows into a slice of settings.
func collectSettings(rows *sql.Rows) ([]*settings.Setting, error) {
	var out []*settings.Setting
	for rows.Next() {
		st, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating setting rows: %w", err)
	}
	return out, nil
}

// DeleteSetting removes the setting addressed by key and reports whether a
// row was removed. History records referencing the setting are left in place.
func (s *SQLiteStore) DeleteSetting(ctx context.Context, key settings.Key) (bool, error) {
	query := `
		DELETE FROM settings
		WHERE name = ? AND screen = ? AND scope = ? AND instance_id = ? AND user_id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		key.Name, key.Screen, string(key.Scope), key.InstanceID, key.UserID)
	if err != nil {
		return false, fmt.Errorf("deleting setting: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected > 0 {
		s.logger.Debug("deleted setting", "name", key.Name, "screen", key.Screen, "scope", key.Scope)
	}
	return rowsAffected > 0, nil
}

// nullString returns nil for empty strings, otherwise the string itself.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
