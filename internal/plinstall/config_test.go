package plinstall

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	home := isolateEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultDestination, cfg.Destination)
	assert.Equal(t, []string{".", filepath.Join(home, "Downloads"), "~"}, cfg.SearchRoots)
	assert.Equal(t, ExtractSystem, cfg.Extractor)
	assert.Equal(t, "plain", cfg.UI)
	assert.True(t, cfg.Progress)
	assert.True(t, cfg.Receipt)
	assert.Zero(t, cfg.Verbosity)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	home := isolateEnv(t)
	path := filepath.Join(home, "plinstall.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
destination = "/srv/pharo"
extractor = "auto"
ui = "tui"
receipt = false
`), 0o644))
	t.Setenv("PLINSTALL_CONFIG", path)
	t.Setenv("PLINSTALL_EXTRACTOR", "builtin")
	t.Setenv("PLINSTALL_SEARCH_ROOTS", "/a"+string(os.PathListSeparator)+"/b")
	t.Setenv("PLINSTALL_PROGRESS", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/srv/pharo", cfg.Destination)
	assert.Equal(t, ExtractBuiltin, cfg.Extractor, "environment wins over the file")
	assert.Equal(t, "tui", cfg.UI)
	assert.False(t, cfg.Receipt)
	assert.False(t, cfg.Progress)
	assert.Equal(t, []string{"/a", "/b"}, cfg.SearchRoots)
}

func TestLoadConfigXDGFile(t *testing.T) {
	home := isolateEnv(t)
	dir := filepath.Join(home, ".config", "plinstall")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("verbosity = 2\n"), 0o644))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Verbosity)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"extractor", "PLINSTALL_EXTRACTOR", "magic"},
		{"ui", "PLINSTALL_UI", "gtk"},
		{"destination", "PLINSTALL_DESTINATION", "  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Equal(t, ExitConfig, ExitCode(err))
		})
	}
}

func TestLoadConfigBrokenFile(t *testing.T) {
	home := isolateEnv(t)
	path := filepath.Join(home, "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("destination = [unterminated"), 0o644))
	t.Setenv("PLINSTALL_CONFIG", path)

	_, err := LoadConfig()
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrConfig))
}
