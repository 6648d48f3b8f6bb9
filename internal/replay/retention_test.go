package replay

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func touchTVD(t *testing.T, dir, name string, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatalf("chtimes %s: %v", name, err)
	}
	return path
}

func TestCleanerEnforcesMaxFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	touchTVD(t, dir, "a.tvd", now.Add(-3*time.Hour))
	touchTVD(t, dir, "b.tvd", now.Add(-2*time.Hour))
	cKept := touchTVD(t, dir, "c.tvd", now.Add(-1*time.Hour))
	touchTVD(t, dir, "d.tvd.tmp", now) // in-progress, never swept

	cleaner := NewCleaner(dir, RetentionPolicy{MaxFiles: 1}, nil)
	cleaner.now = func() time.Time { return now }
	cleaner.RunOnce()

	if _, err := os.Stat(cKept); err != nil {
		t.Fatalf("expected newest file kept: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.tvd")); !os.IsNotExist(err) {
		t.Fatalf("expected oldest file removed, stat err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "d.tvd.tmp")); err != nil {
		t.Fatalf("expected in-progress tmp file untouched: %v", err)
	}

	stats := cleaner.Stats()
	if stats.Files != 1 {
		t.Fatalf("expected 1 kept file in stats, got %d", stats.Files)
	}
}

func TestCleanerEnforcesMaxAge(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	old := touchTVD(t, dir, "old.tvd", now.Add(-48*time.Hour))
	fresh := touchTVD(t, dir, "fresh.tvd", now.Add(-1*time.Hour))

	cleaner := NewCleaner(dir, RetentionPolicy{MaxAge: 24 * time.Hour}, nil)
	cleaner.now = func() time.Time { return now }
	cleaner.RunOnce()

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old file removed, stat err=%v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("expected fresh file kept: %v", err)
	}
}
