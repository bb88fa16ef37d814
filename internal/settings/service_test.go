// ABOUTME: Tests for the settings service over a fake in-memory store
// ABOUTME: Covers key validation, coercion wiring, defaults and error wrapping

package settings

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore keeps settings in a map keyed by identity. History is a flat
// slice; transactionality is the real store's concern, not tested here.
type fakeStore struct {
	entries map[Key]*Setting
	history []*ChangeRecord
	failing error
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[Key]*Setting)}
}

func (f *fakeStore) UpsertSetting(_ context.Context, st *Setting) (bool, error) {
	if f.failing != nil {
		return false, f.failing
	}
	existing, ok := f.entries[st.Key]
	if ok {
		f.history = append(f.history, &ChangeRecord{
			Key:       st.Key,
			ValueType: st.Value.Type,
			OldValue:  existing.Value.String(),
			NewValue:  st.Value.String(),
			ChangedBy: st.UpdatedBy,
		})
	}
	cp := *st
	f.entries[st.Key] = &cp
	return !ok, nil
}

func (f *fakeStore) GetSetting(_ context.Context, key Key) (*Setting, error) {
	st, ok := f.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return st, nil
}

func (f *fakeStore) ListSettingsByScreen(_ context.Context, screen string, _ Filter) ([]*Setting, error) {
	var out []*Setting
	for _, st := range f.entries {
		if st.Screen == screen {
			out = append(out, st)
		}
	}
	return out, nil
}

func (f *fakeStore) ListUserSettings(_ context.Context, userID int64) ([]*Setting, error) {
	var out []*Setting
	for _, st := range f.entries {
		if st.Scope == ScopeUser && st.UserID == userID {
			out = append(out, st)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteSetting(_ context.Context, key Key) (bool, error) {
	if f.failing != nil {
		return false, f.failing
	}
	if _, ok := f.entries[key]; !ok {
		return false, nil
	}
	delete(f.entries, key)
	return true, nil
}

func (f *fakeStore) ListSettingHistory(_ context.Context, name, screen string, limit int) ([]*ChangeRecord, error) {
	var out []*ChangeRecord
	for _, rec := range f.history {
		if rec.Name == name && rec.Screen == screen {
			out = append(out, rec)
		}
	}
	if len(out) > limit && limit > 0 {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func newTestService(fs *fakeStore) *Service {
	return NewService(fs, slog.Default())
}

func globalKey(name string) Key {
	return Key{Name: name, Screen: "General", Scope: ScopeGlobal}
}

func TestService_Set_ValidationErrors(t *testing.T) {
	svc := newTestService(newFakeStore())
	ctx := context.Background()

	tests := []struct {
		name string
		key  Key
	}{
		{"missing name", Key{Screen: "General", Scope: ScopeGlobal}},
		{"missing screen", Key{Name: "x", Scope: ScopeGlobal}},
		{"unknown scope", Key{Name: "x", Screen: "General", Scope: "TENANT"}},
		{"instance without id", Key{Name: "x", Screen: "General", Scope: ScopeInstance}},
		{"user without id", Key{Name: "x", Screen: "General", Scope: ScopeUser}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Set(ctx, SetParams{Key: tt.key, Value: "v", Type: TypeString})
			assert.ErrorIs(t, err, ErrScopeValidation)
		})
	}
}

func TestService_Set_CoercionError(t *testing.T) {
	svc := newTestService(newFakeStore())

	err := svc.Set(context.Background(), SetParams{
		Key:   globalKey("retries"),
		Value: "many",
		Type:  TypeInteger,
	})
	assert.ErrorIs(t, err, ErrTypeConversion)
}

func TestService_Set_DefaultsEditableVisible(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, SetParams{
		Key:   globalKey("theme"),
		Value: "dark",
		Type:  TypeString,
	}))

	entry, err := svc.Get(ctx, globalKey("theme"))
	require.NoError(t, err)
	assert.True(t, entry.Editable)
	assert.True(t, entry.Visible)

	no := false
	require.NoError(t, svc.Set(ctx, SetParams{
		Key:      globalKey("theme"),
		Value:    "light",
		Type:     TypeString,
		Editable: &no,
		Visible:  &no,
	}))

	entry, err = svc.Get(ctx, globalKey("theme"))
	require.NoError(t, err)
	assert.False(t, entry.Editable)
	assert.False(t, entry.Visible)
}

func TestService_Set_WrapsStoreFailure(t *testing.T) {
	fs := newFakeStore()
	cause := errors.New("disk full")
	fs.failing = cause
	svc := newTestService(fs)

	err := svc.Set(context.Background(), SetParams{
		Key:   globalKey("theme"),
		Value: "dark",
		Type:  TypeString,
	})
	assert.ErrorIs(t, err, ErrPersistence)
	// The store's own error stays in the chain for errors.Is/As.
	assert.ErrorIs(t, err, cause)
}

func TestService_GetValue_DefaultFallback(t *testing.T) {
	svc := newTestService(newFakeStore())
	ctx := context.Background()

	def := IntValue(30)
	v, err := svc.GetValue(ctx, globalKey("timeout"), &def)
	require.NoError(t, err)
	assert.Equal(t, int64(30), v.Int())

	// Absent without a default is a soft error.
	v, err = svc.GetValue(ctx, globalKey("timeout"), nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, v.IsZero())
}

func TestService_GetValue_StoredValueBeatsDefault(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, SetParams{
		Key:   globalKey("timeout"),
		Value: 60,
		Type:  TypeInteger,
	}))

	def := IntValue(30)
	v, err := svc.GetValue(ctx, globalKey("timeout"), &def)
	require.NoError(t, err)
	assert.Equal(t, int64(60), v.Int())
}

func TestService_Delete_WrapsStoreFailure(t *testing.T) {
	fs := newFakeStore()
	cause := errors.New("disk full")
	fs.failing = cause
	svc := newTestService(fs)

	_, err := svc.Delete(context.Background(), globalKey("theme"))
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)
}
