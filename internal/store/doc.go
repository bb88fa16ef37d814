// Package store provides persistent storage for confstore using SQLite.
//
// # Architecture
//
// SQLiteStore is the single concrete store. It implements two contracts:
//
//   - settings.Store: typed settings and their change history
//   - UserStore: accounts, roles and permissions
//
// Consumers depend on whichever contract they need; the settings service
// never sees account methods and the auth service never sees settings.
//
// # Settings Identity
//
// A setting row is addressed by the five-part identity
// (name, screen, scope, instance_id, user_id). The instance and user parts
// only apply to INSTANCE and USER scope; for the other scopes they are
// stored as the sentinels '' and 0 rather than NULL, so the UNIQUE
// constraint compares them with plain equality.
//
// The typed payload is flattened into four nullable columns
// (value_string, value_integer, value_float, value_boolean); a CHECK
// constraint keeps exactly one populated and consistent with value_type.
//
// # Change History
//
// setting_history is append-only. Records are written only by the update
// path of UpsertSetting, inside the same transaction as the update itself,
// so a rolled-back write never leaves a stray history row. setting_id is a
// plain reference rather than a foreign key: history outlives deletion.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// The pool is pinned to a single connection so read-modify-write
// transactions serialize instead of failing with SQLITE_BUSY.
//
// # Error Handling
//
// Common errors:
//
//   - settings.ErrNotFound: no setting with that identity
//   - ErrNotFound: requested account entity does not exist
//   - ErrEmailExists: email already registered
//   - ErrNameExists: role or permission name already taken
//
// All methods accept context.Context for cancellation support.
//
// # Migrations
//
// The schema is created on open. Column migrations are idempotent checks
// against pragma_table_info followed by ALTER TABLE, run automatically on
// store initialization.
package store
