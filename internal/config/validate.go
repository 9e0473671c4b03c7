// internal/config/validate.go
package config

import (
	"fmt"
	"net/url"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

var validLogFormats = map[string]bool{
	"text": true, "json": true, "": true,
}

const maxRetries = 2

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if !validLogLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level: must be one of debug, info, warn, error; got %q", c.Log.Level))
	}
	if !validLogFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("log.format: must be text or json; got %q", c.Log.Format))
	}

	if c.Ledger.Path == "" {
		errs = append(errs, "ledger.path: required")
	}

	if c.HTTP.Timeout <= 0 {
		errs = append(errs, fmt.Sprintf("http.timeout: must be positive, got %s", c.HTTP.Timeout))
	}
	if c.HTTP.Retries > maxRetries {
		errs = append(errs, fmt.Sprintf("http.retries: must be at most %d, got %d", maxRetries, c.HTTP.Retries))
	}

	// Rotation validation
	r := c.Rotation
	if r.MovieDiskLimitGB < 0 {
		errs = append(errs, fmt.Sprintf("rotation.movie_disk_limit_gb: must not be negative, got %g", r.MovieDiskLimitGB))
	}
	if r.ShowDiskLimitGB < 0 {
		errs = append(errs, fmt.Sprintf("rotation.show_disk_limit_gb: must not be negative, got %g", r.ShowDiskLimitGB))
	}
	if r.MovieDiskLimitGB > 0 && r.MovieRoot == "" {
		errs = append(errs, "rotation.movie_root: required when movie_disk_limit_gb is set")
	}
	if r.ShowDiskLimitGB > 0 && r.ShowRoot == "" {
		errs = append(errs, "rotation.show_root: required when show_disk_limit_gb is set")
	}
	if r.MaxMovieEvictions < 0 {
		errs = append(errs, "rotation.max_movie_evictions: must not be negative")
	}
	if r.MaxShowEvictions < 0 {
		errs = append(errs, "rotation.max_show_evictions: must not be negative")
	}

	// Catalog validation
	errs = append(errs, validateURL("radarr.url", c.Radarr.URL, c.Radarr.APIKey != "")...)
	errs = append(errs, validateURL("sonarr.url", c.Sonarr.URL, c.Sonarr.APIKey != "")...)
	if c.Radarr.APIKey != "" && c.Radarr.QualityProfileID <= 0 {
		errs = append(errs, "radarr.quality_profile_id: must be positive")
	}
	if c.Sonarr.APIKey != "" {
		if c.Sonarr.QualityProfileID <= 0 {
			errs = append(errs, "sonarr.quality_profile_id: must be positive")
		}
		if c.Sonarr.LanguageProfileID <= 0 {
			errs = append(errs, "sonarr.language_profile_id: must be positive")
		}
	}

	// List providers
	errs = append(errs, validateURL("mdblist.base_url", c.MDBList.BaseURL, r.UseMDBList)...)
	errs = append(errs, validateURL("trakt.base_url", c.Trakt.BaseURL, true)...)
	errs = append(errs, validateURL("tmdb.base_url", c.TMDB.BaseURL, c.TMDB.APIKey != "")...)

	return errs
}

func validateURL(field, raw string, required bool) []string {
	if raw == "" {
		if required {
			return []string{field + ": required"}
		}
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return []string{fmt.Sprintf("%s: invalid URL %q", field, raw)}
	}
	return nil
}
