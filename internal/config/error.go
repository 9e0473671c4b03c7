package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid matches any ConfigError with errors.Is.
var ErrInvalid = errors.New("invalid configuration")

// ConfigError collects everything wrong with a loaded configuration so the
// operator can fix it in one go.
type ConfigError struct {
	Path    string   // empty when running on defaults
	Missing []string // unresolved ${VAR} references
	Errors  []string // "field: problem"
}

// Addf records a validation problem for field.
func (e *ConfigError) Addf(field, format string, args ...any) {
	e.Errors = append(e.Errors, field+": "+fmt.Sprintf(format, args...))
}

func (e *ConfigError) Error() string {
	if !e.HasErrors() {
		return ""
	}

	var b strings.Builder
	if e.Path != "" {
		fmt.Fprintf(&b, "config %s:\n", e.Path)
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, "missing environment variables: %s\n", strings.Join(e.Missing, ", "))
	}
	if len(e.Errors) > 0 {
		b.WriteString("validation failed:\n")
		for _, msg := range e.Errors {
			fmt.Fprintf(&b, "  - %s\n", msg)
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Is lets callers test for ErrInvalid without a type assertion.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalid
}

// HasErrors reports whether anything was recorded.
func (e *ConfigError) HasErrors() bool {
	return len(e.Missing) > 0 || len(e.Errors) > 0
}
