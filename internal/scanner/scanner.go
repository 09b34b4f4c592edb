package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mediacat/internal/logging"
	"mediacat/internal/mediatypes"
)

// Dir is a directory found on disk, identified by its root-relative path
// with forward slashes. The library root itself is not reported.
type Dir struct {
	Path  string
	Mtime int64
}

// File is a regular file found on disk. Dir is the root-relative path of its
// containing directory ("" for files directly under the root).
type File struct {
	Dir       string
	Filename  string
	Size      int64
	Mtime     int64
	MediaType mediatypes.MediaType
}

// Scanner walks a library root, skipping hidden entries.
type Scanner struct {
	root string
}

// New creates a Scanner for the given library root. The root must exist and
// be a directory.
func New(root string) (*Scanner, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve library root %q: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("library root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library root %q is not a directory", root)
	}
	return &Scanner{root: abs}, nil
}

// Root returns the absolute library root.
func (s *Scanner) Root() string {
	return s.root
}

// Abs converts a root-relative path to an absolute filesystem path.
func (s *Scanner) Abs(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

// Directories walks the tree and returns every non-hidden directory below
// the root.
func (s *Scanner) Directories() ([]Dir, error) {
	var dirs []Dir
	err := s.walk(func(rel string, d fs.DirEntry) error {
		if !d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			logging.Warn("Skipping unreadable directory %q: %v", rel, err)
			return nil
		}
		dirs = append(dirs, Dir{Path: rel, Mtime: info.ModTime().Unix()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.Debug("Scanned %d directories under %s", len(dirs), s.root)
	return dirs, nil
}

// Files walks the tree and returns every non-hidden regular file below the
// root.
func (s *Scanner) Files() ([]File, error) {
	var files []File
	err := s.walk(func(rel string, d fs.DirEntry) error {
		if d.IsDir() {
			return nil
		}
		f, err := fileEntry(rel, d)
		if err != nil {
			logging.Warn("Skipping unreadable file %q: %v", rel, err)
			return nil
		}
		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.Debug("Scanned %d files under %s", len(files), s.root)
	return files, nil
}

// FilesIn lists the non-hidden regular files directly inside each of the
// given directories ("" for the root). It does not recurse; subdirectories
// are separate entries in the caller's candidate set.
func (s *Scanner) FilesIn(dirs []string) ([]File, error) {
	var files []File
	for _, dir := range dirs {
		entries, err := os.ReadDir(s.Abs(dir))
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %q: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || isHidden(e.Name()) || !e.Type().IsRegular() {
				continue
			}
			rel := dir
			if rel == "" {
				rel = e.Name()
			} else {
				rel = rel + "/" + e.Name()
			}
			f, err := fileEntry(rel, e)
			if err != nil {
				logging.Warn("Skipping unreadable file %q: %v", rel, err)
				continue
			}
			files = append(files, f)
		}
	}
	return files, nil
}

// walk visits every entry below the root, pruning hidden directories and
// skipping hidden files. The root itself is never visited, so a hidden
// library root still scans.
func (s *Scanner) walk(fn func(rel string, d fs.DirEntry) error) error {
	return filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == s.root {
			return nil
		}
		if isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		return fn(filepath.ToSlash(rel), d)
	})
}

func fileEntry(rel string, d fs.DirEntry) (File, error) {
	info, err := d.Info()
	if err != nil {
		return File{}, fmt.Errorf("failed to stat %q: %w", rel, err)
	}

	dir := ""
	name := rel
	if idx := strings.LastIndex(rel, "/"); idx >= 0 {
		dir = rel[:idx]
		name = rel[idx+1:]
	}
	return File{
		Dir:       dir,
		Filename:  name,
		Size:      info.Size(),
		Mtime:     info.ModTime().Unix(),
		MediaType: mediatypes.TypeOf(name),
	}, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
