// Package diskusage measures how many bytes a media root occupies.
package diskusage

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Monitor sums regular file sizes beneath a path.
type Monitor struct {
	fs  afero.Fs
	log *slog.Logger
}

// New creates a Monitor over the OS filesystem.
func New(log *slog.Logger) *Monitor {
	return NewWithFS(afero.NewOsFs(), log)
}

// NewWithFS creates a Monitor over an arbitrary filesystem.
func NewWithFS(fsys afero.Fs, log *slog.Logger) *Monitor {
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{fs: fsys, log: log}
}

// maxRootLinks bounds symlink hops when resolving a media root.
const maxRootLinks = 40

// UsageBytes returns the total size of all regular files transitively under path.
// A missing path counts as 0. Unreadable entries are skipped. A symlinked root is
// resolved; symlinks below the root are not followed.
func (m *Monitor) UsageBytes(path string) int64 {
	if _, err := m.fs.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			m.log.Warn("cannot stat media root", "path", path, "error", err)
		} else {
			m.log.Debug("media root missing", "path", path)
		}
		return 0
	}

	root := m.resolveRoot(path)
	var total int64
	_ = afero.Walk(m.fs, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			m.log.Debug("skipping unreadable entry", "path", p, "error", err)
			if info != nil && info.IsDir() && p != root {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total
}

// resolveRoot follows symlinks at path itself. Filesystems without link
// support return path unchanged.
func (m *Monitor) resolveRoot(path string) string {
	lst, ok := m.fs.(afero.Lstater)
	if !ok {
		return path
	}
	lr, ok := m.fs.(afero.LinkReader)
	if !ok {
		return path
	}
	for range maxRootLinks {
		info, _, err := lst.LstatIfPossible(path)
		if err != nil || info.Mode()&fs.ModeSymlink == 0 {
			return path
		}
		target, err := lr.ReadlinkIfPossible(path)
		if err != nil {
			m.log.Warn("cannot resolve media root link", "path", path, "error", err)
			return path
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(path), target)
		}
		m.log.Debug("media root is a link", "path", path, "target", target)
		path = target
	}
	m.log.Warn("too many links resolving media root", "path", path)
	return path
}
