package credential

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Token()
	require.ErrorIs(t, err, ErrNoCredential)

	require.NoError(t, store.Save("tok"))
	token, err := store.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok", string(token))

	require.NoError(t, store.Clear())
	_, err = store.Token()
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	store := NewFileStore(path)

	_, err := store.Token()
	require.ErrorIs(t, err, ErrNoCredential)

	require.NoError(t, store.Save("abc.def.ghi"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	token, err := NewFileStore(path).Token()
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", string(token))

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	_, err = store.Token()
	assert.ErrorIs(t, err, ErrNoCredential)
}
