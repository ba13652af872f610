package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())
	assert.False(t, store.IsModified())

	require.NoError(t, store.SetSection("bank_account", map[string]interface{}{
		"bank_code": "001",
		"branch":    "3399",
		"account":   "12345-6",
	}))
	assert.True(t, store.IsModified())
	require.NoError(t, store.Save())
	assert.False(t, store.IsModified())

	reloaded, err := NewFileStore(path)
	require.NoError(t, err)
	section, err := reloaded.GetSection("bank_account")
	require.NoError(t, err)
	assert.Equal(t, "001", section["bank_code"])
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "config.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)

	section, err := store.GetSection("anything")
	require.NoError(t, err)
	assert.Empty(t, section)
}

func TestFileStore_CorruptFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0644))

	_, err := NewFileStore(path)
	assert.Error(t, err)
}

func TestFileStore_SectionCopiesAreIsolated(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	original := map[string]interface{}{"key": "value"}
	require.NoError(t, store.SetSection("test", original))

	original["key"] = "mutated"
	section, err := store.GetSection("test")
	require.NoError(t, err)
	assert.Equal(t, "value", section["key"])

	section["key"] = "mutated again"
	again, err := store.GetSection("test")
	require.NoError(t, err)
	assert.Equal(t, "value", again["key"])
}
