package credstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSaveAndLoad tests the round trip through the credential file.
func TestSaveAndLoad(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "abroad", "token"))

	require.NoError(t, store.Save("tok-123"))
	assert.True(t, store.Exists())

	token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
}

// TestLoadMissing tests that an absent file yields ErrNotFound.
func TestLoadMissing(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "token"))

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, store.Exists())
}

// TestLoadEmptyFile tests that an empty credential file counts as no
// credential.
func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))

	_, err := New(path).Load()
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestSaveRefusesEmptyToken tests that an empty token is never written.
func TestSaveRefusesEmptyToken(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "token"))
	assert.Error(t, store.Save(""))
}

// TestSaveFileMode tests that the credential file is owner-only.
func TestSaveFileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	store := New(path)
	require.NoError(t, store.Save("secret"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

// TestClear tests removal, including clearing twice.
func TestClear(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "token"))
	require.NoError(t, store.Save("tok"))

	require.NoError(t, store.Clear())
	assert.False(t, store.Exists())

	// Clearing an absent credential is not an error.
	require.NoError(t, store.Clear())
}
