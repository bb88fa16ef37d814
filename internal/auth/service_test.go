// ABOUTME: Tests for registration and login against a real temporary store
// ABOUTME: Covers validation, credential errors, inactive accounts and issued claims

package auth

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/confstore/internal/store"
)

// bcryptTestCost keeps hashing fast in tests.
const bcryptTestCost = 4

func setupAuthService(t *testing.T) (*Service, *store.SQLiteStore) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	tokens := NewJWTManager([]byte("test-secret"), time.Hour)
	svc := NewService(s, tokens, NewHasher(bcryptTestCost), slog.Default())
	return svc, s
}

func TestService_Register(t *testing.T) {
	svc, _ := setupAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Alice", "Alice@Example.com", "password123")
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Greater(t, user.AccountID, int64(0))
	// Email is normalized to lowercase.
	assert.Equal(t, "alice@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "password123", user.PasswordHash)
}

func TestService_Register_Validation(t *testing.T) {
	svc, _ := setupAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		userName string
		email    string
		password string
	}{
		{"short name", "ab", "a@example.com", "password123"},
		{"bad email", "Alice", "not-an-email", "password123"},
		{"short password", "Alice", "a@example.com", "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.userName, tt.email, tt.password)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	svc, _ := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Alice", "alice@example.com", "password123")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Other Alice", "alice@example.com", "password456")
	assert.ErrorIs(t, err, store.ErrEmailExists)
}

func TestService_Login(t *testing.T) {
	svc, s := setupAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "Alice", "alice@example.com", "password123")
	require.NoError(t, err)

	role := &store.Role{Name: "admin"}
	require.NoError(t, s.CreateRole(ctx, role))
	require.NoError(t, s.AssignRole(ctx, registered.ID, role.ID))

	user, pair, err := svc.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.True(t, pair.ExpiresAt.After(time.Now()))

	claims, err := svc.tokens.Verify(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.Subject)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, []string{"admin"}, claims.Roles)
}

func TestService_Login_WrongPassword(t *testing.T) {
	svc, _ := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Alice", "alice@example.com", "password123")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Login_UnknownEmail(t *testing.T) {
	svc, _ := setupAuthService(t)

	_, _, err := svc.Login(context.Background(), "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Login_InactiveUser(t *testing.T) {
	svc, s := setupAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Alice", "alice@example.com", "password123")
	require.NoError(t, err)

	user.IsActive = false
	require.NoError(t, s.UpdateUser(ctx, user))

	_, _, err = svc.Login(ctx, "alice@example.com", "password123")
	assert.ErrorIs(t, err, ErrInactiveUser)
}
