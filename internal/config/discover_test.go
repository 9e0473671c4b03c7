package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/rotarr/config.toml", DefaultPath())

	t.Setenv("XDG_CONFIG_HOME", "")
	assert.Contains(t, DefaultPath(), filepath.Join(".config", "rotarr", "config.toml"))
}

func TestSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, []string{"config.toml", "/xdg/rotarr/config.toml", "/etc/rotarr/config.toml"}, SearchPaths())
}

func TestDiscover_Pinned(t *testing.T) {
	pinned := filepath.Join(t.TempDir(), "rotation.toml")
	require.NoError(t, os.WriteFile(pinned, []byte("[log]\n"), 0644))
	t.Setenv(EnvConfigPath, pinned)

	path, err := Discover()
	require.NoError(t, err)
	assert.Equal(t, pinned, path)
}

func TestDiscover_PinnedMissing(t *testing.T) {
	t.Setenv(EnvConfigPath, "/nonexistent/config.toml")

	_, err := Discover()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvConfigPath)
	assert.NotErrorIs(t, err, ErrNotFound, "a pinned path never falls back to defaults")
}

func TestDiscover_WorkingDirectory(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[log]\n"), 0644))
	t.Chdir(dir)

	path, err := Discover()
	require.NoError(t, err)
	assert.Equal(t, "config.toml", path)
}

func TestDiscover_XDG(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	want := filepath.Join(xdg, "rotarr", "config.toml")
	require.NoError(t, os.MkdirAll(filepath.Dir(want), 0755))
	require.NoError(t, os.WriteFile(want, []byte("[log]\n"), 0644))
	t.Chdir(t.TempDir())

	path, err := Discover()
	require.NoError(t, err)
	assert.Equal(t, want, path)
}

func TestDiscover_NotFound(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", "/nonexistent/xdg")
	t.Chdir(t.TempDir())

	_, err := Discover()
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "/nonexistent/xdg/rotarr/config.toml")
}
