// Package settings implements the typed, scoped configuration registry.
//
// # Model
//
// A setting is identified by (name, screen, scope, instance_id, user_id)
// and carries a single typed value. Scopes are independent: a GLOBAL
// "timeout" and an INSTANCE "timeout" for the same screen are distinct
// entries, and nothing falls back from one scope to another.
//
//   - GLOBAL: one value for the whole deployment
//   - INSTANCE: one value per named instance
//   - USER: one value per account
//
// # Values
//
// Value is a tagged union over the four supported types (BOOLEAN, INTEGER,
// FLOAT, STRING). Coerce converts arbitrary input to a declared type:
// numeric strings parse, numbers truncate to integers, and anything
// stringifies. Boolean coercion is deliberately permissive — any input
// outside the recognized true words ("true", "1", "yes", "sim") is false,
// never an error.
//
// # Writes and History
//
// Service.Set is an upsert. The first write for an identity creates the
// entry; every later write updates it in place and appends exactly one
// ChangeRecord, carrying the old and new values in canonical string form.
// Creation produces no history. The update and its history record commit
// in one transaction.
//
// # Reads
//
// Service.Get is an exact-identity lookup returning ErrNotFound when the
// entry is absent. GetValue layers an optional caller default on top:
// absent with a default returns the default, absent without one returns
// the zero Value and ErrNotFound.
package settings
