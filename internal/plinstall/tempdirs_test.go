package plinstall

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempRegistryReleaseRemovesEverything(t *testing.T) {
	base := t.TempDir()
	r := NewTempRegistry(base)

	a, err := r.Allocate()
	require.NoError(t, err)
	b, err := r.Allocate()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Equal(t, base, filepath.Dir(a))
	assert.DirExists(t, a)
	assert.Equal(t, []string{a, b}, r.allocated())

	require.NoError(t, r.Release())
	assert.NoDirExists(t, a)
	assert.NoDirExists(t, b)

	// Second release is a no-op.
	require.NoError(t, r.Release())
}

func TestTempRegistryAllocateAfterRelease(t *testing.T) {
	r := NewTempRegistry(t.TempDir())
	require.NoError(t, r.Release())

	_, err := r.Allocate()
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrTempDir))
}

func TestTempRegistryBadBase(t *testing.T) {
	r := NewTempRegistry(filepath.Join(t.TempDir(), "missing", "deeper"))
	_, err := r.Allocate()
	require.Error(t, err)
	assert.Equal(t, ExitTempDir, ExitCode(err))
	assert.Empty(t, r.allocated())
}

func TestTempRegistrySetBase(t *testing.T) {
	r := NewTempRegistry("")
	base := t.TempDir()
	r.SetBase(base)
	dir, err := r.Allocate()
	require.NoError(t, err)
	assert.Equal(t, base, filepath.Dir(dir))
	require.NoError(t, r.Release())
}
