package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rotarr", "config.toml")
	require.NoError(t, WriteDefault(path, false))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, section := range []string{"[rotation]", "movie_disk_limit_gb", "[radarr]", "[sonarr]", "[tmdb]", "[notifications]"} {
		assert.Contains(t, string(content), section)
	}

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestWriteDefault_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("# mine\n"), 0644))

	err := WriteDefault(path, false)
	require.ErrorIs(t, err, ErrExists)
	content, _ := os.ReadFile(path)
	assert.Equal(t, "# mine\n", string(content))

	require.NoError(t, WriteDefault(path, true))
	content, _ = os.ReadFile(path)
	assert.Contains(t, string(content), "[rotation]")
}

func TestWriteDefault_Loads(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, WriteDefault(path, false))

	cfg, err := Load(path)
	require.NoError(t, err, "the embedded default config must load cleanly")
	assert.Equal(t, Default().HTTP, cfg.HTTP)
	assert.Equal(t, Default().Rotation.MovieRoot, cfg.Rotation.MovieRoot)
	assert.Equal(t, Default().TMDB.BaseURL, cfg.TMDB.BaseURL)
}
