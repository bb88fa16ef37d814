// ABOUTME: Idempotent database seeding from a TOML file
// ABOUTME: Creates permissions, roles, users and default settings, skipping what exists

package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BurntSushi/toml"

	"github.com/2389/confstore/internal/auth"
	"github.com/2389/confstore/internal/settings"
	"github.com/2389/confstore/internal/store"
)

// File is the decoded seed file.
type File struct {
	Permissions []PermissionSpec `toml:"permissions"`
	Roles       []RoleSpec       `toml:"roles"`
	Users       []UserSpec       `toml:"users"`
	Settings    []SettingSpec    `toml:"settings"`
}

// PermissionSpec declares one permission.
type PermissionSpec struct {
	Name        string `toml:"name"`
	Resource    string `toml:"resource"`
	Action      string `toml:"action"`
	Description string `toml:"description"`
}

// RoleSpec declares one role and the permissions granted to it.
type RoleSpec struct {
	Name        string   `toml:"name"`
	Description string   `toml:"description"`
	Permissions []string `toml:"permissions"`
}

// UserSpec declares one account and the roles assigned to it.
type UserSpec struct {
	Name      string   `toml:"name"`
	Email     string   `toml:"email"`
	Password  string   `toml:"password"`
	Superuser bool     `toml:"superuser"`
	Roles     []string `toml:"roles"`
}

// SettingSpec declares one default setting. Value accepts any TOML scalar
// and is coerced to the declared type on apply.
type SettingSpec struct {
	Name        string `toml:"name"`
	Screen      string `toml:"screen"`
	Scope       string `toml:"scope"`
	InstanceID  string `toml:"instance_id"`
	UserID      int64  `toml:"user_id"`
	Type        string `toml:"type"`
	Value       any    `toml:"value"`
	Description string `toml:"description"`
	Default     string `toml:"default"`
}

// Status of one seeded item.
type Status int

const (
	StatusCreated Status = iota
	StatusSkipped
	StatusFailed
)

// Result describes the outcome for one item in the seed file.
type Result struct {
	Kind   string // "permission", "role", "user", "setting"
	Name   string
	Status Status
	Err    error
}

// Report collects the per-item outcomes of one apply run.
type Report struct {
	Results []Result
}

// Created returns the number of newly created items.
func (r *Report) Created() int { return r.count(StatusCreated) }

// Skipped returns the number of items that already existed.
func (r *Report) Skipped() int { return r.count(StatusSkipped) }

// Failed returns the number of items that could not be applied.
func (r *Report) Failed() int { return r.count(StatusFailed) }

func (r *Report) count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

func (r *Report) add(kind, name string, status Status, err error) {
	r.Results = append(r.Results, Result{Kind: kind, Name: name, Status: status, Err: err})
}

// Seeder applies seed files against the store.
type Seeder struct {
	users    store.UserStore
	settings *settings.Service
	hasher   *auth.Hasher
	logger   *slog.Logger
}

// NewSeeder creates a Seeder.
func NewSeeder(users store.UserStore, svc *settings.Service, hasher *auth.Hasher, logger *slog.Logger) *Seeder {
	return &Seeder{
		users:    users,
		settings: svc,
		hasher:   hasher,
		logger:   logger.With("component", "seed"),
	}
}

// Load decodes a seed file from disk.
func Load(path string) (*File, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("decoding seed file: %w", err)
	}
	return &f, nil
}

// Apply runs the seed file against the store. Existing items are left
// untouched: seeding an already-seeded database is a no-op. Individual
// failures are recorded in the report and do not abort the run.
func (s *Seeder) Apply(ctx context.Context, f *File) *Report {
	report := &Report{}

	for _, p := range f.Permissions {
		s.applyPermission(ctx, p, report)
	}
	for _, r := range f.Roles {
		s.applyRole(ctx, r, report)
	}
	for _, u := range f.Users {
		s.applyUser(ctx, u, report)
	}
	for _, st := range f.Settings {
		s.applySetting(ctx, st, report)
	}

	s.logger.Info("seed applied",
		"created", report.Created(), "skipped", report.Skipped(), "failed", report.Failed())
	return report
}

func (s *Seeder) applyPermission(ctx context.Context, spec PermissionSpec, report *Report) {
	if _, err := s.users.GetPermissionByName(ctx, spec.Name); err == nil {
		report.add("permission", spec.Name, StatusSkipped, nil)
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		report.add("permission", spec.Name, StatusFailed, err)
		return
	}

	p := &store.Permission{
		Name:        spec.Name,
		Resource:    spec.Resource,
		Action:      spec.Action,
		Description: spec.Description,
	}
	if err := s.users.CreatePermission(ctx, p); err != nil {
		report.add("permission", spec.Name, StatusFailed, err)
		return
	}
	report.add("permission", spec.Name, StatusCreated, nil)
}

func (s *Seeder) applyRole(ctx context.Context, spec RoleSpec, report *Report) {
	role, err := s.users.GetRoleByName(ctx, spec.Name)
	switch {
	case err == nil:
		report.add("role", spec.Name, StatusSkipped, nil)
	case errors.Is(err, store.ErrNotFound):
		role = &store.Role{Name: spec.Name, Description: spec.Description}
		if err := s.users.CreateRole(ctx, role); err != nil {
			report.add("role", spec.Name, StatusFailed, err)
			return
		}
		report.add("role", spec.Name, StatusCreated, nil)
	default:
		report.add("role", spec.Name, StatusFailed, err)
		return
	}

	// Grants are INSERT OR IGNORE underneath, so re-granting is safe.
	for _, permName := range spec.Permissions {
		perm, err := s.users.GetPermissionByName(ctx, permName)
		if err != nil {
			report.add("role", fmt.Sprintf("%s -> %s", spec.Name, permName), StatusFailed, err)
			continue
		}
		if err := s.users.GrantPermission(ctx, role.ID, perm.ID); err != nil {
			report.add("role", fmt.Sprintf("%s -> %s", spec.Name, permName), StatusFailed, err)
		}
	}
}

func (s *Seeder) applyUser(ctx context.Context, spec UserSpec, report *Report) {
	user, err := s.users.GetUserByEmail(ctx, spec.Email)
	switch {
	case err == nil:
		report.add("user", spec.Email, StatusSkipped, nil)
	case errors.Is(err, store.ErrNotFound):
		hash, err := s.hasher.Hash(spec.Password)
		if err != nil {
			report.add("user", spec.Email, StatusFailed, err)
			return
		}
		user = &store.User{
			Name:         spec.Name,
			Email:        spec.Email,
			PasswordHash: hash,
			IsActive:     true,
			IsSuperuser:  spec.Superuser,
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			report.add("user", spec.Email, StatusFailed, err)
			return
		}
		report.add("user", spec.Email, StatusCreated, nil)
	default:
		report.add("user", spec.Email, StatusFailed, err)
		return
	}

	for _, roleName := range spec.Roles {
		role, err := s.users.GetRoleByName(ctx, roleName)
		if err != nil {
			report.add("user", fmt.Sprintf("%s -> %s", spec.Email, roleName), StatusFailed, err)
			continue
		}
		if err := s.users.AssignRole(ctx, user.ID, role.ID); err != nil {
			report.add("user", fmt.Sprintf("%s -> %s", spec.Email, roleName), StatusFailed, err)
		}
	}
}

func (s *Seeder) applySetting(ctx context.Context, spec SettingSpec, report *Report) {
	label := spec.Screen + "/" + spec.Name

	key := settings.Key{
		Name:       spec.Name,
		Screen:     spec.Screen,
		Scope:      settings.Scope(spec.Scope),
		InstanceID: spec.InstanceID,
		UserID:     spec.UserID,
	}

	// Seeded values never overwrite operator changes.
	if _, err := s.settings.Get(ctx, key); err == nil {
		report.add("setting", label, StatusSkipped, nil)
		return
	} else if !errors.Is(err, settings.ErrNotFound) {
		report.add("setting", label, StatusFailed, err)
		return
	}

	err := s.settings.Set(ctx, settings.SetParams{
		Key:          key,
		Value:        spec.Value,
		Type:         settings.ValueType(spec.Type),
		Description:  spec.Description,
		DefaultValue: spec.Default,
		Actor:        "seed",
	})
	if err != nil {
		report.add("setting", label, StatusFailed, err)
		return
	}
	report.add("setting", label, StatusCreated, nil)
}
