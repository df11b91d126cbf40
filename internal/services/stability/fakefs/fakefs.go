// Package fakefs provides in-memory stand-ins for the stability FileSystem and Clock.
package fakefs

import (
	"context"
	"io/fs"
	"sync"
	"time"
)

type file struct {
	size    int64
	modTime time.Time
	dir     bool
}

// FS is an in-memory FileSystem keyed by full path.
type FS struct {
	mu      sync.Mutex
	files   map[string]file
	statErr map[string]error
	stats   map[string]int
}

func New() *FS {
	return &FS{
		files:   make(map[string]file),
		statErr: make(map[string]error),
		stats:   make(map[string]int),
	}
}

// Write creates or replaces path with the given size and modification time.
func (f *FS) Write(path string, size int64, modTime time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = file{size: size, modTime: modTime}
}

func (f *FS) Mkdir(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = file{dir: true, modTime: time.Now()}
}

func (f *FS) Remove(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, path)
}

// Rename moves oldPath to newPath keeping size and modification time.
func (f *FS) Rename(oldPath, newPath string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if entry, ok := f.files[oldPath]; ok {
		delete(f.files, oldPath)
		f.files[newPath] = entry
	}
}

// FailStat makes every Stat of path return err.
func (f *FS) FailStat(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statErr[path] = err
}

// Stats returns how many times path was stat'ed.
func (f *FS) Stats(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats[path]
}

func (f *FS) Stat(name string) (fs.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stats[name]++
	if err, ok := f.statErr[name]; ok {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}
	entry, ok := f.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return fileInfo{name: name, file: entry}, nil
}

type fileInfo struct {
	name string
	file file
}

func (i fileInfo) Name() string       { return i.name }
func (i fileInfo) Size() int64        { return i.file.size }
func (i fileInfo) ModTime() time.Time { return i.file.modTime }
func (i fileInfo) IsDir() bool        { return i.file.dir }
func (i fileInfo) Sys() any           { return nil }

func (i fileInfo) Mode() fs.FileMode {
	if i.file.dir {
		return fs.ModeDir | 0o755
	}
	return 0o644
}

// Clock never sleeps. OnSleep, when set, runs on every Sleep with the 1-based sleep count,
// which lets a test change the filesystem between polls.
type Clock struct {
	mu      sync.Mutex
	sleeps  int
	OnSleep func(n int)
}

func (c *Clock) Sleep(ctx context.Context, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.sleeps++
	n := c.sleeps
	hook := c.OnSleep
	c.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return ctx.Err()
}

// Sleeps returns how many times Sleep was called.
func (c *Clock) Sleeps() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sleeps
}
