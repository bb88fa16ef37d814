// ABOUTME: Core entity types for scoped settings: Key, Setting, ChangeRecord
// ABOUTME: Identity is (name, screen, scope, instance, user) with zero-value sentinels

package settings

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no setting matches the requested identity.
// Absence is a normal outcome on the read path; callers check it with
// errors.Is and usually fall back to a default.
var ErrNotFound = errors.New("setting not found")

// Key is the identity tuple addressing one setting. InstanceID "" and
// UserID 0 are the fixed sentinels for "absent"; they participate in
// uniqueness as ordinary comparable values, never as SQL NULLs.
type Key struct {
	Name       string
	Screen     string
	Scope      Scope
	InstanceID string
	UserID     int64
}

// Setting is one configuration entry. The Value union carries the payload in
// memory; the store flattens it to four nullable columns at the storage
// boundary, exactly one of which is non-null, matching the value type.
type Setting struct {
	ID string // uuid

	Key

	Value Value

	Description  string
	Editable     bool
	Visible      bool
	DefaultValue string

	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string
	UpdatedBy string
}

// ChangeRecord is one value transition in the setting history ledger.
// Records are immutable once written and survive deletion of the setting
// they reference: SettingID is a stable reference, not an ownership link.
type ChangeRecord struct {
	ID        string // uuid
	SettingID string

	Key

	ValueType ValueType
	OldValue  string
	NewValue  string
	ChangedAt time.Time
	ChangedBy string
}

// Filter narrows per-screen listings. Zero fields match everything.
type Filter struct {
	Scope      Scope
	InstanceID string
	UserID     int64
}
