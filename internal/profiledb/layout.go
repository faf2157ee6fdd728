package profiledb

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Layout maps a profile root directory to its fixed subdirectories.
type Layout struct {
	Root string
}

// NewLayout wraps a profile root path.
func NewLayout(root string) Layout {
	return Layout{Root: root}
}

// OutputDir holds the final tab-separated tables.
func (l Layout) OutputDir() string { return filepath.Join(l.Root, "output") }

// RawDataDir holds the database.
func (l Layout) RawDataDir() string { return filepath.Join(l.Root, "raw_data") }

// FiguresDir holds per-figure data tables.
func (l Layout) FiguresDir() string { return filepath.Join(l.Root, "figures") }

// LogDir holds the run log.
func (l Layout) LogDir() string { return filepath.Join(l.Root, "log") }

// DatabasePath is the SQLite database file.
func (l Layout) DatabasePath() string { return filepath.Join(l.RawDataDir(), "profile.db") }

// RunLogPath is the JSON-lines run log.
func (l Layout) RunLogPath() string { return filepath.Join(l.LogDir(), "instrain.log") }

// LockPath is the advisory lock file guarding the profile.
func (l Layout) LockPath() string { return filepath.Join(l.Root, ".instrain.lock") }

// Exists reports whether the layout already contains a database.
func (l Layout) Exists() bool {
	info, err := os.Stat(l.DatabasePath())
	return err == nil && !info.IsDir()
}

// Ensure creates the directory tree.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.Root, l.OutputDir(), l.RawDataDir(), l.FiguresDir(), l.LogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create profile directory %s: %w", dir, err)
		}
	}
	return nil
}

// Lock takes the profile's advisory lock. The returned release function
// must be called once the holder is done; a held lock means another
// process is writing the same profile.
func (l Layout) Lock() (release func() error, err error) {
	lock := flock.New(l.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire profile lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("profile %s is in use by another process", l.Root)
	}
	return lock.Unlock, nil
}
