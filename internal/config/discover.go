package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvConfigPath names the variable that pins the config file location.
const EnvConfigPath = "ROTARR_CONFIG"

// ErrNotFound is returned by Discover when no config file exists.
var ErrNotFound = errors.New("config not found")

// DefaultPath is where init writes and the user-level search looks:
// $XDG_CONFIG_HOME/rotarr/config.toml, falling back to ~/.config.
func DefaultPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "rotarr", "config.toml")
}

// SearchPaths lists the locations Discover tries, in order, when
// ROTARR_CONFIG is unset.
func SearchPaths() []string {
	return []string{"config.toml", DefaultPath(), "/etc/rotarr/config.toml"}
}

// Discover returns the config file to load. ROTARR_CONFIG wins and must exist;
// otherwise the first existing entry of SearchPaths is used.
func Discover() (string, error) {
	if pinned := os.Getenv(EnvConfigPath); pinned != "" {
		if _, err := os.Stat(pinned); err != nil {
			return "", fmt.Errorf("%s=%s: %w", EnvConfigPath, pinned, err)
		}
		return pinned, nil
	}

	candidates := SearchPaths()
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w (searched %s)", ErrNotFound, strings.Join(candidates, ", "))
}
