package replay

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"trinity/tvdemo/internal/logging"
)

// RetentionPolicy defines how many .tvd files are retained on disk.
type RetentionPolicy struct {
	MaxFiles int
	MaxAge   time.Duration
}

// StorageStats summarises the disk footprint of persisted recordings.
type StorageStats struct {
	Files     int
	Bytes     int64
	LastSweep time.Time
}

// Cleaner periodically prunes .tvd files under a configured path according
// to a retention policy. Grounded on the teacher's Cleaner (ticker-driven
// sweep, mutex-guarded published stats, sort-newest-first-then-trim) but
// simplified: a .tvd recording is a single file with no companion headers or
// per-match directories, so collect()/remove() collapse to one file per
// artefact. In-progress ".tvd.tmp" files are never swept — only StopRecord's
// rename or DiscardRecord's removal retires them.
type Cleaner struct {
	mu     sync.RWMutex
	dir    string
	policy RetentionPolicy
	log    *logging.Logger
	now    func() time.Time
	stats  StorageStats
}

// NewCleaner constructs a cleaner for the provided recordings directory.
func NewCleaner(dir string, policy RetentionPolicy, logger *logging.Logger) *Cleaner {
	if logger == nil {
		logger = logging.L()
	}
	return &Cleaner{dir: dir, policy: policy, log: logger, now: time.Now}
}

// Run executes retention sweeps until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context, interval time.Duration) {
	if c == nil || ctx == nil {
		return
	}
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	c.sweep()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// RunOnce performs a single retention sweep, primarily used for tests.
func (c *Cleaner) RunOnce() {
	if c == nil {
		return
	}
	c.sweep()
}

// Stats returns the last recorded storage statistics.
func (c *Cleaner) Stats() StorageStats {
	if c == nil {
		return StorageStats{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

type tvdFile struct {
	path    string
	size    int64
	modTime time.Time
}

func (c *Cleaner) sweep() {
	if c == nil || strings.TrimSpace(c.dir) == "" {
		return
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		c.log.Warn("tvd retention scan failed", logging.Error(err), logging.String("directory", c.dir))
		return
	}

	files := c.collect(entries)
	now := c.now()
	kept := 0
	stats := StorageStats{LastSweep: now}
	for _, f := range files {
		shouldRemove, reason := c.shouldRemove(f, now, kept)
		if shouldRemove {
			if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				c.log.Warn("tvd retention removal failed", logging.Error(err), logging.String("file", f.path))
				stats.Files++
				stats.Bytes += f.size
				kept++
			} else {
				c.log.Info("tvd retention removed file", logging.String("file", f.path), logging.String("reason", reason))
			}
			continue
		}
		kept++
		stats.Files++
		stats.Bytes += f.size
	}
	c.mu.Lock()
	c.stats = stats
	c.mu.Unlock()
}

func (c *Cleaner) collect(entries []os.DirEntry) []tvdFile {
	var files []tvdFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".tvd") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			c.log.Warn("tvd retention stat failed", logging.Error(err), logging.String("path", filepath.Join(c.dir, entry.Name())))
			continue
		}
		files = append(files, tvdFile{path: filepath.Join(c.dir, entry.Name()), size: info.Size(), modTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.After(files[j].modTime) })
	return files
}

func (c *Cleaner) shouldRemove(f tvdFile, now time.Time, kept int) (bool, string) {
	reasons := make([]string, 0, 2)
	if c.policy.MaxAge > 0 && now.Sub(f.modTime) > c.policy.MaxAge {
		reasons = append(reasons, fmt.Sprintf("age>%s", c.policy.MaxAge))
	}
	if c.policy.MaxFiles > 0 && kept >= c.policy.MaxFiles {
		reasons = append(reasons, fmt.Sprintf(">=%d files", c.policy.MaxFiles))
	}
	return len(reasons) > 0, strings.Join(reasons, ", ")
}
