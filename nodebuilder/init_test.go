package nodebuilder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	require.NoError(t, Init(*cfg, dir))
	assert.True(t, IsInit(dir))

	// repeated init keeps the existing config
	cfg.P2P.DHTServer = true
	require.NoError(t, Init(*cfg, dir))
	stored, err := LoadConfig(configPath(dir))
	require.NoError(t, err)
	assert.False(t, stored.P2P.DHTServer)
}

func TestInitErrForInvalidPath(t *testing.T) {
	// a regular file can't be the parent of the store directory
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	require.Error(t, Init(*DefaultConfig(), filepath.Join(file, "store")))
}

func TestIsInitWithBrokenConfig(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(configPath(dir))
	require.NoError(t, err)
	defer f.Close()
	//nolint:errcheck
	f.Write([]byte(`
		[P2P]
		  ListenAddresses = [/ip4/0.0.0.0/tcp/2121]
    `))
	assert.False(t, IsInit(dir))
}

func TestIsInitForNonExistDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not_exist")
	assert.False(t, IsInit(path))
}

func TestInitErrForLockedDir(t *testing.T) {
	dir := t.TempDir()
	flk := flock.New(lockPath(dir))
	_, err := flk.TryLock()
	require.NoError(t, err)
	defer flk.Unlock() //nolint:errcheck

	assert.ErrorIs(t, Init(*DefaultConfig(), dir), ErrOpened)
}
