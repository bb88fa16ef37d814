// ABOUTME: Tests for user, role and permission persistence
// ABOUTME: Covers uniqueness errors, idempotent grants and the account id surrogate

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser(email string) *User {
	return &User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: "hash",
		IsActive:     true,
	}
}

func TestStore_CreateUser(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	u := testUser("alice@example.com")
	require.NoError(t, s.CreateUser(ctx, u))

	assert.NotEmpty(t, u.ID)
	assert.Greater(t, u.AccountID, int64(0))

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, u.AccountID, got.AccountID)
	assert.True(t, got.IsActive)
}

func TestStore_CreateUser_DuplicateEmail(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, testUser("dup@example.com")))

	err := s.CreateUser(ctx, testUser("dup@example.com"))
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestStore_CreateUser_AccountIDsIncrement(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first := testUser("first@example.com")
	second := testUser("second@example.com")
	require.NoError(t, s.CreateUser(ctx, first))
	require.NoError(t, s.CreateUser(ctx, second))

	assert.Greater(t, second.AccountID, first.AccountID)

	got, err := s.GetUserByAccountID(ctx, second.AccountID)
	require.NoError(t, err)
	assert.Equal(t, "second@example.com", got.Email)
}

func TestStore_GetUserByEmail_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UpdateUser(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	u := testUser("update@example.com")
	require.NoError(t, s.CreateUser(ctx, u))

	u.Name = "Renamed"
	u.IsActive = false
	require.NoError(t, s.UpdateUser(ctx, u))

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.False(t, got.IsActive)
}

func TestStore_UpdateUser_NotFound(t *testing.T) {
	s := setupTestStore(t)

	u := testUser("ghost@example.com")
	u.ID = "no-such-id"
	err := s.UpdateUser(context.Background(), u)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DeleteUser(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	u := testUser("doomed@example.com")
	require.NoError(t, s.CreateUser(ctx, u))

	deleted, err := s.DeleteUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteUser(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestStore_Roles(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	admin := &Role{Name: "admin", Description: "full access"}
	require.NoError(t, s.CreateRole(ctx, admin))
	assert.NotEmpty(t, admin.ID)

	err := s.CreateRole(ctx, &Role{Name: "admin"})
	assert.ErrorIs(t, err, ErrNameExists)

	got, err := s.GetRoleByName(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)

	_, err = s.GetRoleByName(ctx, "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_AssignRole_Idempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	u := testUser("roles@example.com")
	require.NoError(t, s.CreateUser(ctx, u))

	role := &Role{Name: "editor"}
	require.NoError(t, s.CreateRole(ctx, role))

	require.NoError(t, s.AssignRole(ctx, u.ID, role.ID))
	require.NoError(t, s.AssignRole(ctx, u.ID, role.ID))

	roles, err := s.ListUserRoles(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "editor", roles[0].Name)

	require.NoError(t, s.RevokeRole(ctx, u.ID, role.ID))
	require.NoError(t, s.RevokeRole(ctx, u.ID, role.ID))

	roles, err = s.ListUserRoles(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestStore_Permissions(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	read := &Permission{Name: "settings:read", Resource: "settings", Action: "read"}
	write := &Permission{Name: "settings:write", Resource: "settings", Action: "write"}
	require.NoError(t, s.CreatePermission(ctx, read))
	require.NoError(t, s.CreatePermission(ctx, write))

	err := s.CreatePermission(ctx, &Permission{Name: "settings:read"})
	assert.ErrorIs(t, err, ErrNameExists)

	role := &Role{Name: "viewer"}
	require.NoError(t, s.CreateRole(ctx, role))
	require.NoError(t, s.GrantPermission(ctx, role.ID, read.ID))
	require.NoError(t, s.GrantPermission(ctx, role.ID, read.ID))

	perms, err := s.ListRolePermissions(ctx, role.ID)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, "settings:read", perms[0].Name)
	assert.Equal(t, "read", perms[0].Action)
}

func TestStore_DeleteUser_CascadesRoleAssignments(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	u := testUser("cascade@example.com")
	require.NoError(t, s.CreateUser(ctx, u))
	role := &Role{Name: "temp"}
	require.NoError(t, s.CreateRole(ctx, role))
	require.NoError(t, s.AssignRole(ctx, u.ID, role.ID))

	_, err := s.DeleteUser(ctx, u.ID)
	require.NoError(t, err)

	// The role itself survives, only the assignment is gone.
	_, err = s.GetRoleByName(ctx, "temp")
	require.NoError(t, err)

	roles, err := s.ListUserRoles(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)
}
