package thumbs

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sync"

	"mediacat/internal/logging"
	"mediacat/internal/mediatypes"
)

// videoPrefix distinguishes video poster thumbnails from image thumbnails
// in the shared cache directory.
const videoPrefix = "vid_"

// Resolver maps media files to their cached thumbnail paths. Cache keys are
// derived from the file path and its modification time, so an edited file
// naturally misses and gets a fresh thumbnail.
type Resolver struct {
	cacheDir string

	mu    sync.Mutex
	cache map[string]string
}

// New creates a Resolver over the given cache directory. The directory is
// created if needed.
func New(cacheDir string) (*Resolver, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create thumbnail cache dir: %w", err)
	}
	return &Resolver{
		cacheDir: cacheDir,
		cache:    make(map[string]string),
	}, nil
}

// CacheDir returns the cache directory.
func (r *Resolver) CacheDir() string {
	return r.cacheDir
}

// PathFor returns the cache path a thumbnail for the file would live at,
// whether or not it exists yet.
func (r *Resolver) PathFor(path string, mtime int64) string {
	name := fmt.Sprintf("%016x.jpg", cacheKey(path, mtime))
	if mediatypes.IsVideo(path) {
		name = videoPrefix + name
	}
	return filepath.Join(r.cacheDir, name)
}

// Preview returns the cached thumbnail for a file if one exists on disk. The
// file itself is stat'd for its modification time. Hits are memoized until
// Invalidate is called.
func (r *Resolver) Preview(path string) (string, bool) {
	r.mu.Lock()
	if p, ok := r.cache[path]; ok {
		r.mu.Unlock()
		return p, true
	}
	r.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	thumb := r.PathFor(path, info.ModTime().Unix())
	if _, err := os.Stat(thumb); err != nil {
		return "", false
	}

	r.mu.Lock()
	r.cache[path] = thumb
	r.mu.Unlock()
	return thumb, true
}

// Move renames the cached thumbnail of a file that moved on disk, so the
// cache entry survives without regeneration. Missing thumbnails are ignored.
func (r *Resolver) Move(oldPath string, mtime int64, newPath string) {
	oldThumb := r.PathFor(oldPath, mtime)
	if _, err := os.Stat(oldThumb); err != nil {
		return
	}
	newThumb := r.PathFor(newPath, mtime)
	if err := os.Rename(oldThumb, newThumb); err != nil {
		logging.Warn("Failed to relocate thumbnail for %s: %v", newPath, err)
		return
	}

	r.mu.Lock()
	delete(r.cache, oldPath)
	r.mu.Unlock()
	logging.Debug("Relocated thumbnail %s -> %s", oldThumb, newThumb)
}

// Invalidate drops the in-memory lookup cache.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.cache = make(map[string]string)
	r.mu.Unlock()
}

func cacheKey(path string, mtime int64) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d", path, mtime)
	return h.Sum64()
}
