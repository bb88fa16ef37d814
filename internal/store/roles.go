// ABOUTME: Role and permission entities with idempotent grant/revoke operations
// ABOUTME: Roles group (resource, action) permissions for assignment to users

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateRole creates a new role. A missing id and creation time are filled
// in. Returns ErrNameExists when the name is taken.
func (s *SQLiteStore) CreateRole(ctx context.Context, r *Role) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO roles (id, name, description, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID,
		r.Name,
		r.Description,
		formatTime(r.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrNameExists
		}
		return fmt.Errorf("inserting role: %w", err)
	}

	s.logger.Debug("created role", "id", r.ID, "name", r.Name)
	return nil
}

// scanRole scans a row into a Role.
func scanRole(scanner interface{ Scan(dest ...any) error }) (*Role, error) {
	var r Role
	var createdAtStr string

	if err := scanner.Scan(&r.ID, &r.Name, &r.Description, &createdAtStr); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning role: %w", err)
	}

	var err error
	r.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &r, nil
}

// GetRoleByName retrieves a role by name. Returns ErrNotFound if absent.
func (s *SQLiteStore) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at FROM roles WHERE name = ?`, name)
	return scanRole(row)
}

// ListRoles returns all roles ordered by name.
func (s *SQLiteStore) ListRoles(ctx context.Context) ([]*Role, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, created_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying roles: %w", err)
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating role rows: %w", err)
	}
	return roles, nil
}

// AssignRole assigns a role to a user. This operation is idempotent -
// assigning an existing role succeeds silently.
func (s *SQLiteStore) AssignRole(ctx context.Context, userID, roleID string) error {
	query := `
		INSERT OR IGNORE INTO user_roles (user_id, role_id, assigned_at)
		VALUES (?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query, userID, roleID, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("assigning role: %w", err)
	}

	s.logger.Debug("assigned role", "user_id", userID, "role_id", roleID)
	return nil
}

// RevokeRole removes a role from a user. This operation is idempotent -
// revoking a non-existent assignment succeeds silently.
func (s *SQLiteStore) RevokeRole(ctx context.Context, userID, roleID string) error {
	query := `DELETE FROM user_roles WHERE user_id = ? AND role_id = ?`

	_, err := s.db.ExecContext(ctx, query, userID, roleID)
	if err != nil {
		return fmt.Errorf("revoking role: %w", err)
	}

	s.logger.Debug("revoked role", "user_id", userID, "role_id", roleID)
	return nil
}

// ListUserRoles returns all roles assigned to a user, ordered by name.
func (s *SQLiteStore) ListUserRoles(ctx context.Context, userID string) ([]*Role, error) {
	query := `
		SELECT r.id, r.name, r.description, r.created_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = ?
		ORDER BY r.name
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying user roles: %w", err)
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user role rows: %w", err)
	}
	return roles, nil
}

// CreatePermission creates a new permission. A missing id and creation time
// are filled in. Returns ErrNameExists when the name is taken.
func (s *SQLiteStore) CreatePermission(ctx context.Context, p *Permission) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO permissions (id, name, resource, action, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID,
		p.Name,
		p.Resource,
		p.Action,
		p.Description,
		formatTime(p.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrNameExists
		}
		return fmt.Errorf("inserting permission: %w", err)
	}

	s.logger.Debug("created permission", "id", p.ID, "name", p.Name)
	return nil
}

// scanPermission scans a row into a Permission.
func scanPermission(scanner interface{ Scan(dest ...any) error }) (*Permission, error) {
	var p Permission
	var createdAtStr string

	if err := scanner.Scan(&p.ID, &p.Name, &p.Resource, &p.Action, &p.Description, &createdAtStr); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning permission: %w", err)
	}

	var err error
	p.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &p, nil
}

// GetPermissionByName retrieves a permission by name. Returns ErrNotFound if
// absent.
func (s *SQLiteStore) GetPermissionByName(ctx context.Context, name string) (*Permission, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, resource, action, description, created_at FROM permissions WHERE name = ?`, name)
	return scanPermission(row)
}

// GrantPermission grants a permission to a role. Idempotent.
func (s *SQLiteStore) GrantPermission(ctx context.Context, roleID, permissionID string) error {
	query := `
		INSERT OR IGNORE INTO role_permissions (role_id, permission_id, assigned_at)
		VALUES (?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query, roleID, permissionID, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("granting permission: %w", err)
	}

	s.logger.Debug("granted permission", "role_id", roleID, "permission_id", permissionID)
	return nil
}

// ListRolePermissions returns all permissions granted to a role, ordered by
// name.
func (s *SQLiteStore) ListRolePermissions(ctx context.Context, roleID string) ([]*Permission, error) {
	query := `
		SELECT p.id, p.name, p.resource, p.action, p.description, p.created_at
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = ?
		ORDER BY p.name
	`

	rows, err := s.db.QueryContext(ctx, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("querying role permissions: %w", err)
	}
	defer rows.Close()

	var perms []*Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating permission rows: %w", err)
	}
	return perms, nil
}
