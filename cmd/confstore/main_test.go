// ABOUTME: Tests for the shared CLI flag parsing in confstore commands
// ABOUTME: Covers scope defaulting, implied scopes, and malformed flags

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/confstore/internal/settings"
)

func TestParseKeyFlags_NoScopeStaysOpen(t *testing.T) {
	// list relies on an open scope to show all entries for a screen.
	key, flags, err := parseKeyFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, settings.Scope(""), key.Scope)
	assert.Equal(t, "cli", flags.actor)
}

func TestParseKeyFlags_ExplicitScope(t *testing.T) {
	key, _, err := parseKeyFlags([]string{"--scope", "user", "--user=7"})
	require.NoError(t, err)
	assert.Equal(t, settings.ScopeUser, key.Scope)
	assert.Equal(t, int64(7), key.UserID)
}

func TestParseKeyFlags_ImpliedScopes(t *testing.T) {
	key, _, err := parseKeyFlags([]string{"--instance", "server-a"})
	require.NoError(t, err)
	assert.Equal(t, settings.ScopeInstance, key.Scope)
	assert.Equal(t, "server-a", key.InstanceID)

	key, _, err = parseKeyFlags([]string{"--user", "42"})
	require.NoError(t, err)
	assert.Equal(t, settings.ScopeUser, key.Scope)
	assert.Equal(t, int64(42), key.UserID)
}

func TestParseKeyFlags_ActorAndLimit(t *testing.T) {
	_, flags, err := parseKeyFlags([]string{"--by=ops", "--limit", "25"})
	require.NoError(t, err)
	assert.Equal(t, "ops", flags.actor)
	assert.Equal(t, 25, flags.limit)
}

func TestParseKeyFlags_Errors(t *testing.T) {
	_, _, err := parseKeyFlags([]string{"--scope"})
	require.Error(t, err)

	_, _, err = parseKeyFlags([]string{"--user", "abc"})
	require.Error(t, err)

	_, _, err = parseKeyFlags([]string{"--bogus"})
	require.Error(t, err)
}

func TestGlobalByDefault(t *testing.T) {
	key := globalByDefault(settings.Key{Name: "theme", Screen: "Appearance"})
	assert.Equal(t, settings.ScopeGlobal, key.Scope)

	key = globalByDefault(settings.Key{Scope: settings.ScopeInstance, InstanceID: "a"})
	assert.Equal(t, settings.ScopeInstance, key.Scope)
}
