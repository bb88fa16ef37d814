// ABOUTME: Account registration and login on top of the user store
// ABOUTME: Issues JWT access tokens carrying the user's roles

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/confstore/internal/store"
)

// Service errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveUser       = errors.New("user is inactive")
	ErrValidation         = errors.New("validation failed")
)

// dummyHash is compared against when the email is unknown, so login takes
// the same time whether or not the account exists.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Service handles registration and login.
type Service struct {
	users  store.UserStore
	tokens *JWTManager
	hasher *Hasher
	logger *slog.Logger
}

// NewService creates an auth service.
func NewService(users store.UserStore, tokens *JWTManager, hasher *Hasher, logger *slog.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		logger: logger.With("component", "auth"),
	}
}

// Register creates a new active account.
// Returns store.ErrEmailExists when the email is already registered.
func (s *Service) Register(ctx context.Context, name, email, password string) (*store.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))

	if len(name) < 3 {
		return nil, fmt.Errorf("%w: name must be at least 3 characters", ErrValidation)
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &store.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("registered user", "email", email, "account_id", user.AccountID)
	return user, nil
}

// TokenPair is the result of a successful login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Login verifies the credentials and issues a token pair.
// Returns ErrInvalidCredentials for unknown emails and wrong passwords
// alike, and ErrInactiveUser for deactivated accounts.
func (s *Service) Login(ctx context.Context, email, password string) (*store.User, *TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a hash comparison anyway to keep timing uniform.
			s.hasher.Compare(dummyHash, password)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("looking up user: %w", err)
	}

	if !s.hasher.Compare(user.PasswordHash, password) {
		return nil, nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, nil, ErrInactiveUser
	}

	roles, err := s.users.ListUserRoles(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing user roles: %w", err)
	}
	roleNames := make([]string, 0, len(roles))
	for _, r := range roles {
		roleNames = append(roleNames, r.Name)
	}

	access, err := s.tokens.Generate(user.ID, user.Email, roleNames)
	if err != nil {
		return nil, nil, fmt.Errorf("generating access token: %w", err)
	}
	refresh, err := s.tokens.GenerateRefresh(user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("generating refresh token: %w", err)
	}

	s.logger.Info("user logged in", "email", email)
	return user, &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(s.tokens.expiry),
	}, nil
}
