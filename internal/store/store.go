// ABOUTME: Store types and contracts for confstore account persistence
// ABOUTME: Defines User, Role, Permission structs and the UserStore interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when creating a user with an email that is
// already registered.
var ErrEmailExists = errors.New("email already exists")

// ErrNameExists is returned when creating a role or permission whose name is
// already taken.
var ErrNameExists = errors.New("name already exists")

// User represents an account that can own USER-scope settings.
type User struct {
	ID           string // uuid
	AccountID    int64  // surrogate integer id referenced by USER-scope settings
	Name         string
	Email        string
	PasswordHash string
	IsActive     bool
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role groups permissions for assignment to users.
type Role struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

// Permission is a named (resource, action) capability.
type Permission struct {
	ID          string
	Name        string
	Resource    string
	Action      string
	Description string
	CreatedAt   time.Time
}

// UserStore is the persistence contract for accounts, roles and permissions.
// Setting persistence is covered separately by the settings.Store contract,
// which SQLiteStore also implements.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByAccountID(ctx context.Context, accountID int64) (*User, error)
	UpdateUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, id string) (bool, error)
	ListUsers(ctx context.Context) ([]*User, error)

	CreateRole(ctx context.Context, r *Role) error
	GetRoleByName(ctx context.Context, name string) (*Role, error)
	ListRoles(ctx context.Context) ([]*Role, error)
	AssignRole(ctx context.Context, userID, roleID string) error
	RevokeRole(ctx context.Context, userID, roleID string) error
	ListUserRoles(ctx context.Context, userID string) ([]*Role, error)

	CreatePermission(ctx context.Context, p *Permission) error
	GetPermissionByName(ctx context.Context, name string) (*Permission, error)
	GrantPermission(ctx context.Context, roleID, permissionID string) error
	ListRolePermissions(ctx context.Context, roleID string) ([]*Permission, error)
}
