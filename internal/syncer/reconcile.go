package syncer

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"mediacat/internal/catalog"
	"mediacat/internal/imagemeta"
	"mediacat/internal/logging"
	"mediacat/internal/mediatypes"
	"mediacat/internal/scanner"
)

type fileKey struct {
	dir, name string
}

// fileMeta is the preserved metadata of a file inside a moved directory.
type fileMeta struct {
	rating *int
	tags   []string
	mtime  int64
}

// dirMove captures what a vanished directory carried, so a directory with
// the same basename elsewhere in the tree can inherit it.
type dirMove struct {
	oldPath string
	rating  *int
	tags    []string
	files   map[string]fileMeta
}

// preservable reports whether the directory carried anything worth
// transferring.
func (m *dirMove) preservable() bool {
	return m.rating != nil || len(m.tags) > 0 || len(m.files) > 0
}

// reconcileFull scans the whole tree and applies every difference to the
// catalog inside one transaction: stale files go first, then stale
// directories (deepest first), then new directories (shallowest first, with
// move detection), then in-place mtime refreshes, and finally file upserts.
func (s *Syncer) reconcileFull(stats *Stats) (err error) {
	fsDirs, err := s.scan.Directories()
	if err != nil {
		return err
	}
	fsFiles, err := s.scan.Files()
	if err != nil {
		return err
	}
	rootInfo, err := os.Stat(s.scan.Root())
	if err != nil {
		return err
	}
	rootMtime := rootInfo.ModTime().Unix()

	if err = s.cat.Begin(); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			s.cat.Rollback()
		}
	}()

	dbDirs, err := s.cat.AllDirectories()
	if err != nil {
		return err
	}

	dirIDByPath := make(map[string]int64, len(dbDirs))
	dirByID := make(map[int64]catalog.Directory, len(dbDirs))
	for _, d := range dbDirs {
		dirIDByPath[d.Path] = d.ID
		dirByID[d.ID] = d
	}

	fsDirMtime := make(map[string]int64, len(fsDirs))
	for _, d := range fsDirs {
		fsDirMtime[d.Path] = d.Mtime
	}

	fsFileSet := make(map[fileKey]scanner.File, len(fsFiles))
	for _, f := range fsFiles {
		fsFileSet[fileKey{f.Dir, f.Filename}] = f
	}

	// The synthetic root ("") is permanent and never counts as removed.
	var removed []catalog.Directory
	for _, d := range dbDirs {
		if d.Path == "" {
			continue
		}
		if _, ok := fsDirMtime[d.Path]; !ok {
			removed = append(removed, d)
		}
	}
	var added []string
	for _, d := range fsDirs {
		if _, ok := dirIDByPath[d.Path]; !ok {
			added = append(added, d.Path)
		}
	}

	// Pair vanished and new directories by basename. A basename shared by
	// several directories on either side is ambiguous and transfers nothing.
	oldByBase := make(map[string][]*dirMove)
	for _, d := range removed {
		mv, mvErr := s.collectDirMove(d)
		if mvErr != nil {
			err = mvErr
			return err
		}
		base := baseName(d.Path)
		oldByBase[base] = append(oldByBase[base], mv)
	}
	newByBase := make(map[string][]string)
	for _, p := range added {
		newByBase[baseName(p)] = append(newByBase[baseName(p)], p)
	}
	moves := make(map[string]*dirMove)
	for base, olds := range oldByBase {
		news := newByBase[base]
		if len(olds) == 1 && len(news) == 1 && olds[0].preservable() {
			moves[news[0]] = olds[0]
		}
	}

	// Files gone from disk, including everything under removed directories.
	dbFiles, err := s.cat.AllFiles()
	if err != nil {
		return err
	}
	for _, f := range dbFiles {
		dir, ok := dirByID[f.DirectoryID]
		if !ok {
			continue
		}
		if _, present := fsFileSet[fileKey{dir.Path, f.Filename}]; present {
			continue
		}
		if err = s.cat.DeleteFile(f.ID); err != nil {
			return err
		}
		stats.FilesRemoved++
	}

	// Deepest first, so children are gone before their parents.
	sort.Slice(removed, func(i, j int) bool {
		return len(removed[i].Path) > len(removed[j].Path)
	})
	for _, d := range removed {
		if err = s.cat.DeleteDirectory(d.ID); err != nil {
			return err
		}
		delete(dirIDByPath, d.Path)
		stats.DirsRemoved++
	}

	// Shallowest first, so parents exist when children resolve them.
	sort.Slice(added, func(i, j int) bool {
		di, dj := strings.Count(added[i], "/"), strings.Count(added[j], "/")
		if di != dj {
			return di < dj
		}
		return added[i] < added[j]
	})
	inherited := make(map[fileKey]*fileMeta)
	for _, path := range added {
		var parentID *int64
		if id, ok := dirIDByPath[parentPath(path)]; ok {
			v := id
			parentID = &v
		}
		mtime := fsDirMtime[path]
		id, insErr := s.cat.InsertDirectory(path, parentID, &mtime)
		if insErr != nil {
			err = insErr
			return err
		}
		dirIDByPath[path] = id
		stats.DirsAdded++

		if mv := moves[path]; mv != nil {
			if err = s.applyMove(id, path, mv, fsFileSet, inherited); err != nil {
				return err
			}
			stats.DirsMoved++
		}
	}

	// Refresh recorded mtimes of directories that changed in place.
	for _, d := range dbDirs {
		if d.Path == "" {
			continue
		}
		m, ok := fsDirMtime[d.Path]
		if !ok {
			continue
		}
		if d.Mtime == nil || *d.Mtime != m {
			if err = s.cat.SetDirectoryMtime(d.ID, m); err != nil {
				return err
			}
		}
	}

	// Upsert every scanned file.
	for _, f := range fsFiles {
		dirID, ok := dirIDByPath[f.Dir]
		if !ok {
			if f.Dir != "" {
				err = fmt.Errorf("no directory row for %q", f.Dir)
				return err
			}
			// Root-level files create the synthetic root on demand.
			dirID, err = s.cat.EnsureRootDirectory()
			if err != nil {
				return err
			}
			dirIDByPath[""] = dirID
		}

		existing, lookErr := s.cat.FileByName(dirID, f.Filename)
		if lookErr != nil {
			err = lookErr
			return err
		}
		if existing != nil {
			if existing.Size != f.Size || existing.Mtime != f.Mtime {
				if err = s.cat.UpdateFileContent(existing.ID, f.Size, f.Mtime); err != nil {
					return err
				}
				stats.FilesModified++
			}
			continue
		}

		if err = s.insertScannedFile(dirID, f, inherited[fileKey{f.Dir, f.Filename}]); err != nil {
			return err
		}
		stats.FilesAdded++
	}

	// Record the root's mtime so incremental runs can tell whether
	// root-level files changed.
	if id, ok := dirIDByPath[""]; ok {
		if err = s.cat.SetDirectoryMtime(id, rootMtime); err != nil {
			return err
		}
	}

	return s.cat.Commit()
}

// reconcileIncremental limits the file rescan to directories that are new or
// whose mtime changed. When the directory tree is unchanged, it returns
// without touching any file.
func (s *Syncer) reconcileIncremental(stats *Stats) (err error) {
	fsDirs, err := s.scan.Directories()
	if err != nil {
		return err
	}
	rootInfo, err := os.Stat(s.scan.Root())
	if err != nil {
		return err
	}
	rootMtime := rootInfo.ModTime().Unix()

	dbDirs, err := s.cat.AllDirectories()
	if err != nil {
		return err
	}

	dirIDByPath := make(map[string]int64, len(dbDirs))
	var rootRow *catalog.Directory
	for _, d := range dbDirs {
		dirIDByPath[d.Path] = d.ID
		if d.Path == "" {
			row := d
			rootRow = &row
		}
	}
	fsDirMtime := make(map[string]int64, len(fsDirs))
	for _, d := range fsDirs {
		fsDirMtime[d.Path] = d.Mtime
	}

	var removed []catalog.Directory
	var changed []catalog.Directory
	for _, d := range dbDirs {
		if d.Path == "" {
			continue
		}
		m, ok := fsDirMtime[d.Path]
		if !ok {
			removed = append(removed, d)
			continue
		}
		if d.Mtime == nil || *d.Mtime != m {
			changed = append(changed, d)
		}
	}
	var added []string
	for _, d := range fsDirs {
		if _, ok := dirIDByPath[d.Path]; !ok {
			added = append(added, d.Path)
		}
	}

	// New files directly under the root only show in the root's own mtime.
	rootChanged := rootRow == nil || rootRow.Mtime == nil || *rootRow.Mtime != rootMtime

	if len(removed) == 0 && len(added) == 0 && len(changed) == 0 && !rootChanged {
		logging.Debug("Incremental sync: directory tree unchanged, skipping file scan")
		return nil
	}

	if err = s.cat.Begin(); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			s.cat.Rollback()
		}
	}()

	sort.Slice(removed, func(i, j int) bool {
		return len(removed[i].Path) > len(removed[j].Path)
	})
	for _, d := range removed {
		files, listErr := s.cat.FilesInDirectory(d.ID)
		if listErr != nil {
			err = listErr
			return err
		}
		for _, f := range files {
			if err = s.cat.DeleteFile(f.ID); err != nil {
				return err
			}
			stats.FilesRemoved++
		}
		if err = s.cat.DeleteDirectory(d.ID); err != nil {
			return err
		}
		delete(dirIDByPath, d.Path)
		stats.DirsRemoved++
	}

	sort.Slice(added, func(i, j int) bool {
		di, dj := strings.Count(added[i], "/"), strings.Count(added[j], "/")
		if di != dj {
			return di < dj
		}
		return added[i] < added[j]
	})
	for _, path := range added {
		var parentID *int64
		if id, ok := dirIDByPath[parentPath(path)]; ok {
			v := id
			parentID = &v
		}
		mtime := fsDirMtime[path]
		id, insErr := s.cat.InsertDirectory(path, parentID, &mtime)
		if insErr != nil {
			err = insErr
			return err
		}
		dirIDByPath[path] = id
		stats.DirsAdded++
	}

	for _, d := range changed {
		if err = s.cat.SetDirectoryMtime(d.ID, fsDirMtime[d.Path]); err != nil {
			return err
		}
	}

	// Rescan only the candidate directories.
	candidates := append([]string{}, added...)
	for _, d := range changed {
		candidates = append(candidates, d.Path)
	}
	if rootChanged {
		candidates = append(candidates, "")
	}

	scanned, scanErr := s.scan.FilesIn(candidates)
	if scanErr != nil {
		err = scanErr
		return err
	}
	byDir := make(map[string][]scanner.File)
	for _, f := range scanned {
		byDir[f.Dir] = append(byDir[f.Dir], f)
	}

	for _, dir := range candidates {
		files := byDir[dir]

		dirID, ok := dirIDByPath[dir]
		if !ok {
			if dir != "" {
				err = fmt.Errorf("no directory row for %q", dir)
				return err
			}
			if len(files) == 0 {
				continue
			}
			dirID, err = s.cat.EnsureRootDirectory()
			if err != nil {
				return err
			}
			dirIDByPath[""] = dirID
		}
		if dir == "" {
			if err = s.cat.SetDirectoryMtime(dirID, rootMtime); err != nil {
				return err
			}
		}

		dbFiles, listErr := s.cat.FilesInDirectory(dirID)
		if listErr != nil {
			err = listErr
			return err
		}
		existing := make(map[string]catalog.File, len(dbFiles))
		for _, f := range dbFiles {
			existing[f.Filename] = f
		}
		present := make(map[string]bool, len(files))
		for _, f := range files {
			present[f.Filename] = true
		}

		for name, f := range existing {
			if present[name] {
				continue
			}
			if err = s.cat.DeleteFile(f.ID); err != nil {
				return err
			}
			stats.FilesRemoved++
		}

		for _, f := range files {
			if old, ok := existing[f.Filename]; ok {
				if old.Size != f.Size || old.Mtime != f.Mtime {
					if err = s.cat.UpdateFileContent(old.ID, f.Size, f.Mtime); err != nil {
						return err
					}
					stats.FilesModified++
				}
				continue
			}
			if err = s.insertScannedFile(dirID, f, nil); err != nil {
				return err
			}
			stats.FilesAdded++
		}
	}

	return s.cat.Commit()
}

// collectDirMove snapshots a directory's transferable metadata before its
// rows are deleted.
func (s *Syncer) collectDirMove(d catalog.Directory) (*dirMove, error) {
	mv := &dirMove{
		oldPath: d.Path,
		rating:  d.Rating,
		files:   make(map[string]fileMeta),
	}

	tags, err := s.cat.DirectoryTags(d.ID)
	if err != nil {
		return nil, err
	}
	mv.tags = tags

	files, err := s.cat.FilesInDirectory(d.ID)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		fileTags, err := s.cat.FileTags(f.ID)
		if err != nil {
			return nil, err
		}
		mv.files[f.Filename] = fileMeta{rating: f.Rating, tags: fileTags, mtime: f.Mtime}
	}
	return mv, nil
}

// applyMove transfers a vanished directory's metadata onto its successor and
// relocates cached thumbnails. Per-file metadata is registered for
// inheritance keyed by filename; files that did not travel along inherit
// nothing.
func (s *Syncer) applyMove(newID int64, newPath string, mv *dirMove,
	fsFileSet map[fileKey]scanner.File, inherited map[fileKey]*fileMeta,
) error {
	logging.Info("Directory move detected: %q -> %q", mv.oldPath, newPath)

	if mv.rating != nil {
		if err := s.cat.SetDirectoryRating(newID, mv.rating); err != nil {
			return err
		}
	}
	for _, tag := range mv.tags {
		if err := s.cat.AddDirectoryTag(newID, tag); err != nil {
			return err
		}
	}

	for name, meta := range mv.files {
		key := fileKey{newPath, name}
		if _, ok := fsFileSet[key]; !ok {
			continue
		}
		m := meta
		inherited[key] = &m
		if s.thumbs != nil {
			oldAbs := s.scan.Abs(catalog.JoinPath(mv.oldPath, name))
			newAbs := s.scan.Abs(catalog.JoinPath(newPath, name))
			s.thumbs.Move(oldAbs, meta.mtime, newAbs)
		}
	}
	return nil
}

// insertScannedFile inserts a scanned file, probing image dimensions eagerly
// and applying any inherited metadata.
func (s *Syncer) insertScannedFile(dirID int64, f scanner.File, meta *fileMeta) error {
	nf := &catalog.File{
		DirectoryID: dirID,
		Filename:    f.Filename,
		Size:        f.Size,
		Mtime:       f.Mtime,
		MediaType:   f.MediaType,
	}
	if f.MediaType == mediatypes.TypeImage {
		abs := s.scan.Abs(catalog.JoinPath(f.Dir, f.Filename))
		if w, h, err := imagemeta.DisplayDimensions(abs); err == nil {
			nf.Width = &w
			nf.Height = &h
		}
	}

	if _, err := s.cat.InsertFile(nf); err != nil {
		return err
	}
	if meta == nil {
		return nil
	}
	if meta.rating != nil {
		if err := s.cat.SetFileRating(nf.ID, meta.rating); err != nil {
			return err
		}
	}
	for _, tag := range meta.tags {
		if err := s.cat.AddFileTag(nf.ID, tag); err != nil {
			return err
		}
	}
	return nil
}

func baseName(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

func parentPath(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[:idx]
	}
	return ""
}
