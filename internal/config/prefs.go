package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Preference file names looked up in rotation.preferences_dir.
const (
	ListPrefsFile = "UserPrefs_Lists.yaml"
	UserPrefsFile = ".userPrefs.yaml"
)

// Tiers is an ordered pair of list groups: primary lists first, then spice.
type Tiers struct {
	Primary []string `yaml:"primary"`
	Spice   []string `yaml:"spice"`
}

func (t *Tiers) merge(other Tiers) {
	t.Primary = appendNew(t.Primary, other.Primary)
	t.Spice = appendNew(t.Spice, other.Spice)
}

func appendNew(dst, src []string) []string {
	for _, s := range src {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		dup := false
		for _, d := range dst {
			if d == s {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, s)
		}
	}
	return dst
}

// Preferences are the list tiers read from preference files.
type Preferences struct {
	Movies Tiers
	Shows  Tiers
}

type listBlock struct {
	Movies Tiers `yaml:"movies"`
	TV     Tiers `yaml:"tv"`
}

type listPrefsDoc struct {
	Lists listBlock `yaml:"lists"`
}

type userPrefsDoc struct {
	Trakt struct {
		User  string    `yaml:"user"`
		Lists listBlock `yaml:"lists"`
	} `yaml:"trakt"`
}

// loadPreferences reads the preference directory and the per-kind override
// files. Relative paths resolve against baseDir.
func (c *Config) loadPreferences(baseDir string) error {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	var prefs Preferences
	if dir := resolve(c.Rotation.PreferencesDir); dir != "" {
		var lists listPrefsDoc
		if err := readYAML(filepath.Join(dir, ListPrefsFile), &lists); err != nil {
			return err
		}
		prefs.Movies.merge(lists.Lists.Movies)
		prefs.Shows.merge(lists.Lists.TV)

		var user userPrefsDoc
		if err := readYAML(filepath.Join(dir, UserPrefsFile), &user); err != nil {
			return err
		}
		prefs.Movies.merge(user.Trakt.Lists.Movies)
		prefs.Shows.merge(user.Trakt.Lists.TV)
		if c.Trakt.User == "" {
			c.Trakt.User = strings.TrimSpace(user.Trakt.User)
		}
	}

	for _, o := range []struct {
		path  string
		tiers *Tiers
	}{
		{resolve(c.Rotation.MoviePreferences), &prefs.Movies},
		{resolve(c.Rotation.ShowPreferences), &prefs.Shows},
	} {
		if o.path == "" {
			continue
		}
		var t Tiers
		if err := readYAML(o.path, &t); err != nil {
			return err
		}
		o.tiers.merge(t)
	}

	c.Preferences = prefs
	return nil
}

// readYAML decodes path into out. A missing file leaves out untouched.
func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("preferences %s: %w", path, err)
	}
	if err := yaml.Unmarshal([]byte(stripFence(string(data))), out); err != nil {
		return fmt.Errorf("preferences %s: %w", path, err)
	}
	return nil
}

// stripFence returns the body of the first Markdown code fence in text, or
// text itself when it has no complete fence.
func stripFence(text string) string {
	if !strings.Contains(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	start, end := -1, -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if start < 0 {
				start = i
			} else {
				end = i
				break
			}
		}
	}
	if start < 0 || end < 0 {
		return text
	}
	body := lines[start+1 : end]
	if len(body) > 0 && strings.HasPrefix(strings.ToLower(strings.TrimSpace(body[0])), "yaml") {
		body = body[1:]
	}
	return strings.Join(body, "\n")
}
