// Package catalog lists finalized .tvd demo files in a directory alongside
// their header metadata. It is a convenience index for operators and the
// tv/demos admin endpoint, grounded on tools/replay_catalog's directory-walk
// shape but adapted to the binary TVD1 format instead of JSON headers.
//
// Listing a directory still costs one zstd-stream open per changed file:
// this package caches the decoded header/trailer fields in a
// snappy-compressed JSONL sidecar keyed by file size and modification time,
// so an unchanged file's header is never re-parsed. It is not an index for
// fast lookup within a demo; List still walks the whole directory every
// call, matching the linear directory scan it replaces.
package catalog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/golang/snappy"

	"trinity/tvdemo/internal/replay"
)

// Entry summarizes one finalized .tvd file.
type Entry struct {
	Path       string    `json:"path"`
	MapName    string    `json:"map_name"`
	Timestamp  string    `json:"timestamp"`
	DurationMs uint32    `json:"duration_ms"`
	SizeBytes  int64     `json:"size_bytes"`
	ModTime    time.Time `json:"mod_time"`
}

type cacheRecord struct {
	Entry Entry `json:"entry"`
}

// Catalog lists .tvd files under a directory, caching parsed headers.
type Catalog struct {
	dir       string
	cachePath string
}

// New constructs a Catalog over dir, using dir/.tvdemo-catalog.cache as the
// sidecar cache file.
func New(dir string) *Catalog {
	return &Catalog{dir: dir, cachePath: filepath.Join(dir, ".tvdemo-catalog.cache")}
}

// List returns entries for every .tvd file directly under the catalog
// directory, sorted by path. Entries for files whose size and modification
// time match the cache are served without re-opening the file.
func (c *Catalog) List() ([]Entry, error) {
	files, err := c.scanFiles()
	if err != nil {
		return nil, err
	}
	cached := c.loadCache()

	entries := make([]Entry, 0, len(files))
	dirty := false
	for _, fi := range files {
		if prev, ok := cached[fi.path]; ok && prev.SizeBytes == fi.size && prev.ModTime.Equal(fi.modTime) {
			entries = append(entries, prev)
			continue
		}
		entry, err := c.readHeader(fi)
		if err != nil {
			return nil, fmt.Errorf("catalog: read header for %s: %w", fi.path, err)
		}
		entries = append(entries, entry)
		dirty = true
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	if dirty {
		c.writeCache(entries)
	}
	return entries, nil
}

type fileStat struct {
	path    string
	size    int64
	modTime time.Time
}

func (c *Catalog) scanFiles() ([]fileStat, error) {
	info, err := os.Stat(c.dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("catalog: %s is not a directory", c.dir)
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, err
	}
	out := make([]fileStat, 0, len(entries))
	for _, d := range entries {
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".tvd") {
			continue
		}
		fi, err := d.Info()
		if err != nil {
			return nil, err
		}
		out = append(out, fileStat{path: filepath.Join(c.dir, d.Name()), size: fi.Size(), modTime: fi.ModTime()})
	}
	return out, nil
}

func (c *Catalog) readHeader(fi fileStat) (Entry, error) {
	dec, err := replay.Open(fi.path)
	if err != nil {
		return Entry{}, err
	}
	defer dec.Close()
	h := dec.Header()
	return Entry{
		Path:       fi.path,
		MapName:    h.MapName,
		Timestamp:  h.Timestamp,
		DurationMs: dec.DurationMs(),
		SizeBytes:  fi.size,
		ModTime:    fi.modTime,
	}, nil
}

func (c *Catalog) loadCache() map[string]Entry {
	out := make(map[string]Entry)
	f, err := os.Open(c.cachePath)
	if err != nil {
		return out
	}
	defer f.Close()

	reader := snappy.NewReader(f)
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec cacheRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		out[rec.Entry.Path] = rec.Entry
	}
	return out
}

func (c *Catalog) writeCache(entries []Entry) {
	f, err := os.Create(c.cachePath)
	if err != nil {
		return
	}
	defer f.Close()

	w := snappy.NewBufferedWriter(f)
	defer w.Close()
	enc := json.NewEncoder(w)
	for _, e := range entries {
		_ = enc.Encode(cacheRecord{Entry: e})
	}
}
