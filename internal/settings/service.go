// ABOUTME: Resolution service over the setting store: typed set/get with defaults
// ABOUTME: Validates scope requirements and coerces values before persistence

package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrScopeValidation is returned when a scope-required field is missing:
// INSTANCE scope without an instance id, or USER scope without a user id.
// Raised before any storage access.
var ErrScopeValidation = errors.New("scope validation failed")

// ErrPersistence wraps any backing-store failure during a write. The write
// transaction has been rolled back in full; no partial entry/history state
// exists. The service never retries - that decision belongs to the caller.
var ErrPersistence = errors.New("persistence failed")

// Store is the persistence surface the service needs. The SQLite store in
// internal/store implements it.
type Store interface {
	// UpsertSetting inserts or updates the setting addressed by its key.
	// Both the entry mutation and the history insert (update path only)
	// happen in one transaction. Returns true when a new row was created.
	UpsertSetting(ctx context.Context, s *Setting) (created bool, err error)

	// GetSetting performs an exact-identity lookup, returning ErrNotFound
	// when absent.
	GetSetting(ctx context.Context, key Key) (*Setting, error)

	// ListSettingsByScreen returns all settings for a screen, optionally
	// narrowed by filter, ordered by name.
	ListSettingsByScreen(ctx context.Context, screen string, f Filter) ([]*Setting, error)

	// ListUserSettings returns all USER-scope settings for an account,
	// ordered by screen then name.
	ListUserSettings(ctx context.Context, userID int64) ([]*Setting, error)

	// DeleteSetting removes the setting addressed by key and reports
	// whether a row was removed. History records are left untouched.
	DeleteSetting(ctx context.Context, key Key) (bool, error)

	// ListSettingHistory returns up to limit most recent transitions for
	// the (name, screen) pair across all scopes, newest first.
	ListSettingHistory(ctx context.Context, name, screen string, limit int) ([]*ChangeRecord, error)
}

// SetParams carries everything needed to create or update a setting.
type SetParams struct {
	Key

	// Value is the raw input; it is coerced to Type before storage.
	Value any
	Type  ValueType

	Description  string
	DefaultValue string

	// Editable and Visible default to true when nil, matching the entry
	// defaults.
	Editable *bool
	Visible  *bool

	// Actor is the audit attribution for the write, supplied by the
	// embedding authentication layer.
	Actor string
}

// Service resolves settings against a store. Construct one instance and pass
// it by reference to all callers; there is no package-level shared state.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a settings service over the given store.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger.With("component", "settings"),
	}
}

// validateKey enforces the scope/identity invariants shared by every
// operation that addresses a single setting.
func validateKey(key Key) error {
	if key.Name == "" {
		return fmt.Errorf("%w: name is required", ErrScopeValidation)
	}
	if key.Screen == "" {
		return fmt.Errorf("%w: screen is required", ErrScopeValidation)
	}
	if !key.Scope.Valid() {
		return fmt.Errorf("%w: unknown scope %q", ErrScopeValidation, key.Scope)
	}
	if key.Scope == ScopeInstance && key.InstanceID == "" {
		return fmt.Errorf("%w: instance_id is required for INSTANCE scope", ErrScopeValidation)
	}
	if key.Scope == ScopeUser && key.UserID == 0 {
		return fmt.Errorf("%w: user_id is required for USER scope", ErrScopeValidation)
	}
	return nil
}

// Set validates, coerces and persists a setting. The first write for an
// identity creates the entry and produces no history; subsequent writes
// update it in place and append exactly one history record inside the same
// transaction. Storage failures surface wrapped in ErrPersistence after a
// full rollback.
func (s *Service) Set(ctx context.Context, p SetParams) error {
	if err := validateKey(p.Key); err != nil {
		return err
	}
	if !p.Type.Valid() {
		return fmt.Errorf("%w: unknown value type %q", ErrTypeConversion, p.Type)
	}

	value, err := Coerce(p.Value, p.Type)
	if err != nil {
		return err
	}

	setting := &Setting{
		Key:          p.Key,
		Value:        value,
		Description:  p.Description,
		DefaultValue: p.DefaultValue,
		Editable:     boolOrDefault(p.Editable, true),
		Visible:      boolOrDefault(p.Visible, true),
		CreatedBy:    p.Actor,
		UpdatedBy:    p.Actor,
	}

	created, err := s.store.UpsertSetting(ctx, setting)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.logger.Debug("set setting",
		"name", p.Key.Name, "screen", p.Key.Screen, "scope", p.Key.Scope,
		"created", created)
	return nil
}

// Get performs an exact-identity lookup. Returns ErrNotFound when absent;
// absence is a normal outcome and callers check it with errors.Is.
// There is no scope fallback chain: GLOBAL, INSTANCE and USER are independent
// identities, and callers wanting layered resolution query each explicitly.
func (s *Service) Get(ctx context.Context, key Key) (*Setting, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	return s.store.GetSetting(ctx, key)
}

// GetValue returns the unwrapped payload of the setting addressed by key,
// selecting the representation via the entry's own recorded type. When the
// entry is absent and def is non-nil, *def is returned; absent without a
// default yields the zero Value and ErrNotFound.
func (s *Service) GetValue(ctx context.Context, key Key, def *Value) (Value, error) {
	entry, err := s.Get(ctx, key)
	if err != nil {
		if def != nil && errors.Is(err, ErrNotFound) {
			return *def, nil
		}
		return Value{}, err
	}
	return entry.Value, nil
}

// ByScreen returns all settings for a screen, optionally narrowed by filter,
// ordered by name.
func (s *Service) ByScreen(ctx context.Context, screen string, f Filter) ([]*Setting, error) {
	if screen == "" {
		return nil, fmt.Errorf("%w: screen is required", ErrScopeValidation)
	}
	return s.store.ListSettingsByScreen(ctx, screen, f)
}

// ForUser returns every USER-scope setting belonging to an account, ordered
// by screen then name. Used to export a user's preferences.
func (s *Service) ForUser(ctx context.Context, userID int64) ([]*Setting, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: user_id is required", ErrScopeValidation)
	}
	return s.store.ListUserSettings(ctx, userID)
}

// Delete removes the setting addressed by key and reports whether a row was
// removed. History records are never touched: the ledger outlives the entry.
func (s *Service) Delete(ctx context.Context, key Key) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	removed, err := s.store.DeleteSetting(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if removed {
		s.logger.Debug("deleted setting", "name", key.Name, "screen", key.Screen, "scope", key.Scope)
	}
	return removed, nil
}

// History returns up to limit most recent transitions for the (name, screen)
// pair across all scopes, newest first.
func (s *Service) History(ctx context.Context, name, screen string, limit int) ([]*ChangeRecord, error) {
	if name == "" || screen == "" {
		return nil, fmt.Errorf("%w: name and screen are required", ErrScopeValidation)
	}
	return s.store.ListSettingHistory(ctx, name, screen, limit)
}

// boolOrDefault dereferences p, falling back to def when unset.
func boolOrDefault(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
