package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datadesk/internal/domain"
	"datadesk/internal/storage"
)

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "nested", "datadesk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSettingsStore_DefaultsWhenEmpty(t *testing.T) {
	store := storage.NewSettingsStore(openDB(t), domain.DefaultSettings())

	got, err := store.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), got)
}

func TestSettingsStore_RoundTrip(t *testing.T) {
	db := openDB(t)
	store := storage.NewSettingsStore(db, domain.DefaultSettings())

	want := domain.DefaultSettings()
	want.LoadURL = "https://hooks.example.com/load-data"
	want.SaveURL = "https://hooks.example.com/save-data"
	want.Table.Driver = domain.DatabaseDriverPostgres
	want.Table.Host = "db.internal"
	want.Table.Port = 5433
	want.Reload.Schedule = "@every 5m"
	want.CoerceInlineNumbers = true
	require.NoError(t, store.SaveSettings(want))

	// A fresh store over the same DB sees the saved values, as on next start.
	got, err := storage.NewSettingsStore(db, domain.DefaultSettings()).LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	raw, ok, err := store.Get(storage.KeyLoadURL)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want.LoadURL, raw)
}

func TestSettingsStore_SetOverwrites(t *testing.T) {
	store := storage.NewSettingsStore(openDB(t), domain.DefaultSettings())

	require.NoError(t, store.Set(storage.KeySaveURL, "a"))
	require.NoError(t, store.Set(storage.KeySaveURL, "b"))

	v, ok, err := store.Get(storage.KeySaveURL)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	_, ok, err = store.Get("never_set")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPersistLogStore(t *testing.T) {
	store := storage.NewPersistLogStore(openDB(t))

	for _, status := range []string{"ok", "fallback", "failed"} {
		e := &domain.PersistLogEntry{Key: "k-" + status, Action: domain.ActionUpdate, Backend: "webhook", Status: status}
		require.NoError(t, store.AppendPersistLog(e))
		assert.NotZero(t, e.ID)
	}

	entries, err := store.ListPersistLog(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "failed", entries[0].Status)
	assert.Equal(t, "fallback", entries[1].Status)
	assert.Equal(t, domain.ActionUpdate, entries[0].Action)
	assert.NotEmpty(t, entries[0].CreatedAt)
}

func TestApprovalStore(t *testing.T) {
	store := storage.NewApprovalStore(openDB(t))

	require.NoError(t, store.Create(storage.Approval{ID: "a1", Tool: "delete_record", Description: "Delete row 2"}))
	require.NoError(t, store.Create(storage.Approval{ID: "a2", Tool: "delete_record"}))

	pending, err := store.ListPending()
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "a1", pending[0].ID)
	assert.Equal(t, "{}", pending[0].Metadata)

	require.NoError(t, store.Resolve("a1", true))
	assert.Error(t, store.Resolve("a1", false), "already resolved")

	status, found, err := store.Status("a1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, storage.ApprovalApproved, status)

	require.NoError(t, store.Delete("a1"))
	_, found, err = store.Status("a1")
	require.NoError(t, err)
	assert.False(t, found)

	pending, _ = store.ListPending()
	assert.Len(t, pending, 1)
}
