// ABOUTME: Error-path tests for the upsert transaction using sqlmock
// ABOUTME: Asserts that any failure inside the transaction rolls the whole write back

package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/confstore/internal/settings"
)

func setupMockStore(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &SQLiteStore{db: db, logger: slog.Default()}, mock
}

func existingSettingRows() *sqlmock.Rows {
	now := formatTime(time.Now())
	return sqlmock.NewRows([]string{
		"id", "name", "screen", "scope", "instance_id", "user_id", "value_type",
		"value_string", "value_integer", "value_float", "value_boolean",
		"description", "editable", "visible", "default_value",
		"created_at", "updated_at", "created_by", "updated_by",
	}).AddRow(
		"setting-1", "theme", "Appearance", "GLOBAL", "", 0, "STRING",
		"dark", nil, nil, nil,
		"", true, true, nil,
		now, now, "test", "test",
	)
}

func mockUpsertInput() *settings.Setting {
	return &settings.Setting{
		Key: settings.Key{
			Name: "theme", Screen: "Appearance", Scope: settings.ScopeGlobal,
		},
		Value:     settings.StringValue("light"),
		Editable:  true,
		Visible:   true,
		CreatedBy: "test",
		UpdatedBy: "test",
	}
}

func TestStore_UpsertSetting_UpdateFailureRollsBack(t *testing.T) {
	s, mock := setupMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM settings").WillReturnRows(existingSettingRows())
	mock.ExpectExec("UPDATE settings").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	_, err := s.UpsertSetting(context.Background(), mockUpsertInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "updating setting")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpsertSetting_HistoryFailureRollsBack(t *testing.T) {
	s, mock := setupMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM settings").WillReturnRows(existingSettingRows())
	mock.ExpectExec("UPDATE settings").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO setting_history").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	// The value update succeeded inside the transaction, but the history
	// append failed, so neither survives.
	_, err := s.UpsertSetting(context.Background(), mockUpsertInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inserting history record")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpsertSetting_InsertFailureRollsBack(t *testing.T) {
	s, mock := setupMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM settings").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO settings").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	_, err := s.UpsertSetting(context.Background(), mockUpsertInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inserting setting")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpsertSetting_CommitFailureSurfaces(t *testing.T) {
	s, mock := setupMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM settings").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO settings").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("disk I/O error"))

	_, err := s.UpsertSetting(context.Background(), mockUpsertInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "committing setting insert")
	assert.NoError(t, mock.ExpectationsWereMet())
}
