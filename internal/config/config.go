// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/vmunix/rotarr/internal/media"
)

// Config is the root configuration structure.
type Config struct {
	Log           LogConfig           `toml:"log"`
	Ledger        LedgerConfig        `toml:"ledger"`
	HTTP          HTTPConfig          `toml:"http"`
	Rotation      RotationConfig      `toml:"rotation"`
	Radarr        ArrConfig           `toml:"radarr"`
	Sonarr        ArrConfig           `toml:"sonarr"`
	MDBList       MDBListConfig       `toml:"mdblist"`
	Trakt         TraktConfig         `toml:"trakt"`
	TMDB          TMDBConfig          `toml:"tmdb"`
	Notifications NotificationsConfig `toml:"notifications"`

	// Filled from preference files, not from TOML.
	Preferences Preferences `toml:"-"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type LedgerConfig struct {
	Path string `toml:"path"`
}

type HTTPConfig struct {
	Timeout time.Duration `toml:"timeout"`
	Retries uint          `toml:"retries"`
}

// RotationConfig holds the per-kind rotation targets.
type RotationConfig struct {
	MovieRoot         string   `toml:"movie_root"`
	ShowRoot          string   `toml:"show_root"`
	MovieDiskLimitGB  float64  `toml:"movie_disk_limit_gb"`
	ShowDiskLimitGB   float64  `toml:"show_disk_limit_gb"`
	UseMDBList        bool     `toml:"use_mdblist"`
	MovieLists        []string `toml:"movie_lists"`
	ShowLists         []string `toml:"show_lists"`
	MoviePreferences  string   `toml:"movie_preferences"`
	ShowPreferences   string   `toml:"show_preferences"`
	PreferencesDir    string   `toml:"preferences_dir"`
	MaxMovieEvictions int      `toml:"max_movie_evictions"`
	MaxShowEvictions  int      `toml:"max_show_evictions"`
	Prefetch          bool     `toml:"prefetch"`
}

// ArrConfig configures a Radarr or Sonarr instance.
type ArrConfig struct {
	URL               string `toml:"url"`
	APIKey            string `toml:"api_key"`
	RootFolder        string `toml:"root_folder"`
	QualityProfileID  int    `toml:"quality_profile_id"`
	LanguageProfileID int    `toml:"language_profile_id"`
}

type MDBListConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	User    string `toml:"user"`
}

type TraktConfig struct {
	BaseURL  string `toml:"base_url"`
	ClientID string `toml:"client_id"`
	User     string `toml:"user"`
}

// TMDBConfig enables mapping TMDB-only list entries to IMDb and TVDB ids.
type TMDBConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

type NotificationsConfig struct {
	ChangeFile string `toml:"change_file"`
	Desktop    bool   `toml:"desktop"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Ledger: LedgerConfig{Path: "./data/rotarr.db"},
		HTTP:   HTTPConfig{Timeout: 30 * time.Second, Retries: 1},
		Rotation: RotationConfig{
			MovieRoot: "/media/movies",
			ShowRoot:  "/media/shows",
		},
		Radarr:  ArrConfig{URL: "http://localhost:7878", QualityProfileID: 1},
		Sonarr:  ArrConfig{URL: "http://localhost:8989", QualityProfileID: 1, LanguageProfileID: 1},
		MDBList: MDBListConfig{BaseURL: "https://mdblist.com/api", User: "hd-movie-lists"},
		Trakt:   TraktConfig{BaseURL: "https://api.trakt.tv"},
		TMDB:    TMDBConfig{BaseURL: "https://api.themoviedb.org"},
	}
}

// Load reads and parses the configuration file. A .env file next to it is
// loaded first without overriding variables already set.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := loadDotEnv(filepath.Dir(path)); err != nil {
		return nil, err
	}

	// Substitute environment variables
	content, missing := substituteEnvVars(string(data))

	cfg := Default()
	if _, err := toml.Decode(content, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg.finish(path, filepath.Dir(path), missing)
}

// LoadDefault returns the defaults with environment fallbacks applied, for
// runs without a config file.
func LoadDefault() (*Config, error) {
	if err := loadDotEnv("."); err != nil {
		return nil, err
	}
	return Default().finish("", ".", nil)
}

// Resolve loads path when given, otherwise the discovered config file, and
// falls back to the defaults when none exists. It also returns the path used.
func Resolve(path string) (*Config, string, error) {
	if path == "" {
		found, err := Discover()
		switch {
		case errors.Is(err, ErrNotFound):
			cfg, err := LoadDefault()
			return cfg, "", err
		case err != nil:
			return nil, "", err
		}
		path = found
	}
	cfg, err := Load(path)
	return cfg, path, err
}

func (c *Config) finish(path, baseDir string, missing []string) (*Config, error) {
	c.applyEnvFallbacks()
	c.applyDerivedDefaults()

	cfgErr := &ConfigError{Path: path, Missing: missing}
	if err := c.loadPreferences(baseDir); err != nil {
		cfgErr.Errors = append(cfgErr.Errors, err.Error())
	}
	cfgErr.Errors = append(cfgErr.Errors, c.Validate()...)
	if cfgErr.HasErrors() {
		return nil, cfgErr
	}
	return c, nil
}

// applyEnvFallbacks fills secrets left empty from the conventional variables.
func (c *Config) applyEnvFallbacks() {
	fallback := func(dst *string, env string) {
		if *dst == "" {
			*dst = os.Getenv(env)
		}
	}
	fallback(&c.Radarr.APIKey, "RADARR_API_KEY")
	fallback(&c.Sonarr.APIKey, "SONARR_API_KEY")
	fallback(&c.Trakt.ClientID, "TRAKT_CLIENT_ID")
	fallback(&c.MDBList.APIKey, "MDBLIST_API_KEY")
	fallback(&c.TMDB.APIKey, "TMDB_API_KEY")
	fallback(&c.Notifications.ChangeFile, "MEDIA_CHANGE_FILE")
}

func (c *Config) applyDerivedDefaults() {
	if c.Radarr.RootFolder == "" {
		c.Radarr.RootFolder = c.Rotation.MovieRoot
	}
	if c.Sonarr.RootFolder == "" {
		c.Sonarr.RootFolder = c.Rotation.ShowRoot
	}
}

func loadDotEnv(dir string) error {
	err := godotenv.Load(filepath.Join(dir, ".env"))
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading .env: %w", err)
}

// Kinds returns the media kinds whose catalog has an API key.
func (c *Config) Kinds() []media.Kind {
	var kinds []media.Kind
	if c.Radarr.APIKey != "" {
		kinds = append(kinds, media.KindMovie)
	}
	if c.Sonarr.APIKey != "" {
		kinds = append(kinds, media.KindShow)
	}
	return kinds
}

// RequireCatalogs reports a ConfigError when no catalog can be reached.
func (c *Config) RequireCatalogs() error {
	if len(c.Kinds()) > 0 {
		return nil
	}
	e := &ConfigError{}
	e.Addf("radarr.api_key, sonarr.api_key", "at least one catalog must be configured (or set RADARR_API_KEY / SONARR_API_KEY)")
	return e
}

// Root returns the media root of kind.
func (c *Config) Root(kind media.Kind) string {
	if kind == media.KindShow {
		return c.Rotation.ShowRoot
	}
	return c.Rotation.MovieRoot
}

// DiskLimitGB returns the configured ceiling of kind. Zero disables eviction.
func (c *Config) DiskLimitGB(kind media.Kind) float64 {
	if kind == media.KindShow {
		return c.Rotation.ShowDiskLimitGB
	}
	return c.Rotation.MovieDiskLimitGB
}

// MaxEvictions returns the per-pass eviction cap of kind.
func (c *Config) MaxEvictions(kind media.Kind) int {
	if kind == media.KindShow {
		return c.Rotation.MaxShowEvictions
	}
	return c.Rotation.MaxMovieEvictions
}

// ListNames returns the configured list names of kind followed by the
// primary and spice lists of its preference files, without repeats.
func (c *Config) ListNames(kind media.Kind) []string {
	configured := c.Rotation.MovieLists
	tiers := c.Preferences.Movies
	if kind == media.KindShow {
		configured = c.Rotation.ShowLists
		tiers = c.Preferences.Shows
	}
	var names []string
	for _, n := range slices.Concat(configured, tiers.Primary, tiers.Spice) {
		if n != "" && !slices.Contains(names, n) {
			names = append(names, n)
		}
	}
	return names
}

// envVarPattern matches ${VAR_NAME}.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteEnvVars replaces ${VAR_NAME} with environment variable values and
// returns the names that were not set. Unset references are left in place.
func substituteEnvVars(content string) (string, []string) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1] // Strip ${ and }
		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		if !slices.Contains(missing, varName) {
			missing = append(missing, varName)
		}
		return match
	})
	return out, missing
}
