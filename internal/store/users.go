// ABOUTME: User account CRUD over the users table
// ABOUTME: Accounts carry the integer surrogate id referenced by USER-scope settings

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const userColumns = `account_id, id, name, email, password_hash, is_active, is_superuser, created_at, updated_at`

// CreateUser creates a new user. A missing uuid and timestamps are filled
// in; the integer account id is assigned by the database and written back to
// u.AccountID. Returns ErrEmailExists when the email is already registered.
func (s *SQLiteStore) CreateUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}

	query := `
		INSERT INTO users (id, name, email, password_hash, is_active, is_superuser, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		u.ID,
		u.Name,
		u.Email,
		u.PasswordHash,
		u.IsActive,
		u.IsSuperuser,
		formatTime(u.CreatedAt),
		formatTime(u.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	// account_id aliases the rowid, so LastInsertId returns it.
	accountID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading account id: %w", err)
	}
	u.AccountID = accountID

	s.logger.Debug("created user", "id", u.ID, "email", u.Email, "account_id", u.AccountID)
	return nil
}

// scanUser scans a row into a User.
func scanUser(scanner interface{ Scan(dest ...any) error }) (*User, error) {
	var u User
	var createdAtStr, updatedAtStr string

	if err := scanner.Scan(
		&u.AccountID,
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.IsActive,
		&u.IsSuperuser,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	var err error
	u.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	u.UpdatedAt, err = parseTime(updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &u, nil
}

// GetUser retrieves a user by ID. Returns ErrNotFound if absent.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email. Returns ErrNotFound if absent.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// GetUserByAccountID retrieves a user by its integer account id.
// Returns ErrNotFound if absent.
func (s *SQLiteStore) GetUserByAccountID(ctx context.Context, accountID int64) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE account_id = ?`, accountID)
	return scanUser(row)
}

// UpdateUser updates a user's mutable fields. Returns ErrNotFound if the
// user doesn't exist.
func (s *SQLiteStore) UpdateUser(ctx context.Context, u *User) error {
	query := `
		UPDATE users
		SET name = ?, email = ?, password_hash = ?, is_active = ?, is_superuser = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		u.Name,
		u.Email,
		u.PasswordHash,
		u.IsActive,
		u.IsSuperuser,
		formatTime(time.Now()),
		u.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("updating user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated user", "id", u.ID)
	return nil
}

// DeleteUser removes a user and reports whether a row was removed.
// Role assignments cascade; the user's settings are left in place.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ListUsers returns all users ordered by email.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}
	return users, nil
}
