// Package notify tells the rest of the host that the media library changed.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// Notifier receives a message for every import or eviction.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Nop discards notifications.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(context.Context, string) {}

// Config controls the change notifier.
type Config struct {
	// ChangeFile receives the RFC 3339 timestamp of the last change. Empty disables it.
	ChangeFile string
	// Desktop sends the message through notify-send when it is on PATH.
	Desktop bool
}

// Change writes the last-change timestamp file and optionally raises a
// desktop notification. Failures are logged, never returned.
type Change struct {
	fs       afero.Fs
	cfg      Config
	now      func() time.Time
	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) error
	log      *slog.Logger
}

// New creates a Change notifier on the OS filesystem.
func New(cfg Config, log *slog.Logger) *Change {
	return NewWithFS(afero.NewOsFs(), cfg, log)
}

// NewWithFS creates a Change notifier on fsys.
func NewWithFS(fsys afero.Fs, cfg Config, log *slog.Logger) *Change {
	return &Change{
		fs:       fsys,
		cfg:      cfg,
		now:      time.Now,
		lookPath: exec.LookPath,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
		log: log.With("component", "notify"),
	}
}

// Notify records the change and forwards message to the desktop.
func (c *Change) Notify(ctx context.Context, message string) {
	if c.cfg.Desktop {
		if bin, err := c.lookPath("notify-send"); err == nil {
			if err := c.run(ctx, bin, message); err != nil {
				c.log.Warn("desktop notification failed", "error", err)
			}
		}
	}

	if c.cfg.ChangeFile == "" {
		return
	}
	if err := c.writeStamp(); err != nil {
		c.log.Warn("failed to update change timestamp", "path", c.cfg.ChangeFile, "error", err)
	}
}

func (c *Change) writeStamp() error {
	if err := c.fs.MkdirAll(filepath.Dir(c.cfg.ChangeFile), 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	stamp := c.now().Format(time.RFC3339) + "\n"
	return afero.WriteFile(c.fs, c.cfg.ChangeFile, []byte(stamp), 0644)
}
