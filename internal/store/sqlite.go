// ABOUTME: SQLite implementation of the confstore persistence layer
// ABOUTME: Opens the database, creates the schema and applies idempotent migrations

package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/2389/confstore/internal/settings"
)

// SQLiteStore implements settings.Store and UserStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Ensure SQLiteStore implements the store contracts.
var (
	_ settings.Store = (*SQLiteStore)(nil)
	_ UserStore      = (*SQLiteStore)(nil)
)

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	// SQLite allows a single writer. Funneling every statement through one
	// connection keeps read-modify-write transactions from hitting
	// SQLITE_BUSY when a deferred transaction upgrades to a write lock.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist.
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS settings (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			screen        TEXT NOT NULL,
			scope         TEXT NOT NULL,
			instance_id   TEXT NOT NULL DEFAULT '',
			user_id       INTEGER NOT NULL DEFAULT 0,
			value_type    TEXT NOT NULL,
			value_string  TEXT,
			value_integer INTEGER,
			value_float   REAL,
			value_boolean INTEGER,
			description   TEXT NOT NULL DEFAULT '',
			editable      INTEGER NOT NULL DEFAULT 1,
			visible       INTEGER NOT NULL DEFAULT 1,
			default_value TEXT,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL,
			created_by    TEXT NOT NULL,
			updated_by    TEXT NOT NULL,

			UNIQUE (name, screen, scope, instance_id, user_id),
			CHECK (scope IN ('GLOBAL', 'INSTANCE', 'USER')),
			CHECK (value_type IN ('BOOLEAN', 'INTEGER', 'FLOAT', 'STRING')),
			CHECK (
				(value_type = 'BOOLEAN' AND value_boolean IS NOT NULL AND value_integer IS NULL AND value_float IS NULL AND value_string IS NULL) OR
				(value_type = 'INTEGER' AND value_integer IS NOT NULL AND value_boolean IS NULL AND value_float IS NULL AND value_string IS NULL) OR
				(value_type = 'FLOAT'   AND value_float   IS NOT NULL AND value_boolean IS NULL AND value_integer IS NULL AND value_string IS NULL) OR
				(value_type = 'STRING'  AND value_string  IS NOT NULL AND value_boolean IS NULL AND value_integer IS NULL AND value_float IS NULL)
			)
		);

		CREATE INDEX IF NOT EXISTS idx_settings_screen ON settings(screen);
		CREATE INDEX IF NOT EXISTS idx_settings_user ON settings(scope, user_id);

		-- setting_id is a plain reference, not a foreign key: history rows
		-- must survive deletion of the setting they describe.
		CREATE TABLE IF NOT EXISTS setting_history (
			id          TEXT PRIMARY KEY,
			setting_id  TEXT NOT NULL,
			name        TEXT NOT NULL,
			screen      TEXT NOT NULL,
			scope       TEXT NOT NULL,
			instance_id TEXT NOT NULL DEFAULT '',
			user_id     INTEGER NOT NULL DEFAULT 0,
			value_type  TEXT NOT NULL,
			old_value   TEXT NOT NULL,
			new_value   TEXT NOT NULL,
			changed_at  TEXT NOT NULL,
			changed_by  TEXT NOT NULL,

			CHECK (value_type IN ('BOOLEAN', 'INTEGER', 'FLOAT', 'STRING'))
		);

		CREATE INDEX IF NOT EXISTS idx_history_name_screen
			ON setting_history(name, screen, changed_at DESC);

		CREATE TABLE IF NOT EXISTS users (
			account_id    INTEGER PRIMARY KEY AUTOINCREMENT,
			id            TEXT NOT NULL UNIQUE,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			is_active     INTEGER NOT NULL DEFAULT 1,
			is_superuser  INTEGER NOT NULL DEFAULT 0,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
		CREATE INDEX IF NOT EXISTS idx_users_active ON users(is_active);

		CREATE TABLE IF NOT EXISTS roles (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			created_at  TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS permissions (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL UNIQUE,
			resource    TEXT NOT NULL,
			action      TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_permissions_resource_action
			ON permissions(resource, action);

		CREATE TABLE IF NOT EXISTS user_roles (
			user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			role_id     TEXT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
			assigned_at TEXT NOT NULL,
			PRIMARY KEY (user_id, role_id)
		);

		CREATE TABLE IF NOT EXISTS role_permissions (
			role_id       TEXT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
			permission_id TEXT NOT NULL REFERENCES permissions(id) ON DELETE CASCADE,
			assigned_at   TEXT NOT NULL,
			PRIMARY KEY (role_id, permission_id)
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// runMigrations applies schema migrations for existing databases.
// These are idempotent - safe to run multiple times.
func (s *SQLiteStore) runMigrations() error {
	// SQLite doesn't support ADD COLUMN IF NOT EXISTS, so we check first
	migrations := []struct {
		check  string // Query to check if migration is needed
		apply  string // Query to apply the migration
		column string // Column name for logging
		table  string
	}{
		{
			check:  `SELECT 1 FROM pragma_table_info('settings') WHERE name = 'default_value'`,
			apply:  `ALTER TABLE settings ADD COLUMN default_value TEXT`,
			column: "default_value",
			table:  "settings",
		},
		{
			check:  `SELECT 1 FROM pragma_table_info('settings') WHERE name = 'visible'`,
			apply:  `ALTER TABLE settings ADD COLUMN visible INTEGER NOT NULL DEFAULT 1`,
			column: "visible",
			table:  "settings",
		},
		{
			check:  `SELECT 1 FROM pragma_table_info('users') WHERE name = 'is_superuser'`,
			apply:  `ALTER TABLE users ADD COLUMN is_superuser INTEGER NOT NULL DEFAULT 0`,
			column: "is_superuser",
			table:  "users",
		},
	}

	for _, m := range migrations {
		var exists int
		err := s.db.QueryRow(m.check).Scan(&exists)
		if err == nil {
			// Column already exists, skip
			continue
		}
		// Column doesn't exist, apply migration
		if _, err := s.db.Exec(m.apply); err != nil {
			return fmt.Errorf("adding %s column to %s: %w", m.column, m.table, err)
		}
		s.logger.Info("applied migration", "column", m.column, "table", m.table)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint
// violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// storedTimeLayout is RFC 3339 with a fixed-width nanosecond fraction.
// Fixed width keeps lexicographic ORDER BY changed_at chronological;
// RFC3339Nano trims trailing zeros and would not sort correctly as text.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTime renders a timestamp in the canonical stored form.
func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

// parseTime parses a stored timestamp. Accepts plain RFC 3339 with or
// without a fractional second, so older rows still read back.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
