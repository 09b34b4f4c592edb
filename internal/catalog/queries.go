package catalog

import (
	"database/sql"
	"fmt"
	"time"
)

// relPathExpr computes a file's root-relative path in SQL. Files in the
// synthetic root directory (path "") join to just their filename.
const relPathExpr = "CASE WHEN d.path = '' THEN f.filename ELSE d.path || '/' || f.filename END"

// FileRef identifies a file together with its root-relative path, for
// passing work items to the batch pipeline.
type FileRef struct {
	ID   int64
	Path string
}

// HashGroup is a set of files sharing the same content hash.
type HashGroup struct {
	Hash  string
	Files []FileWithPath
}

// PerceptualEntry pairs a file with its stored perceptual hash and
// dimensions, for similarity grouping and reporting.
type PerceptualEntry struct {
	ID     int64
	Path   string
	Hash   uint64
	Width  *int
	Height *int
}

// FilesNeedingHash returns files whose content hash has not been computed,
// ordered by path for stable progress across interrupted runs.
func (c *Catalog) FilesNeedingHash() ([]FileRef, error) {
	return c.fileRefs("files_needing_hash",
		`SELECT f.id, `+relPathExpr+` AS rel_path
		 FROM files f JOIN directories d ON d.id = f.directory_id
		 WHERE f.hash IS NULL
		 ORDER BY rel_path`)
}

// FilesNeedingDimensions returns image files whose dimensions are unknown.
func (c *Catalog) FilesNeedingDimensions() ([]FileRef, error) {
	return c.fileRefs("files_needing_dimensions",
		`SELECT f.id, `+relPathExpr+` AS rel_path
		 FROM files f JOIN directories d ON d.id = f.directory_id
		 WHERE f.media_type = 'image' AND f.width IS NULL
		 ORDER BY rel_path`)
}

// FilesNeedingPerceptualHash returns image files whose perceptual hash has
// not been computed.
func (c *Catalog) FilesNeedingPerceptualHash() ([]FileRef, error) {
	return c.fileRefs("files_needing_perceptual_hash",
		`SELECT f.id, `+relPathExpr+` AS rel_path
		 FROM files f JOIN directories d ON d.id = f.directory_id
		 WHERE f.media_type = 'image' AND f.perceptual_hash IS NULL
		 ORDER BY rel_path`)
}

// FilesNeedingOrientation returns image files carrying neither a landscape
// nor a portrait tag. Square images never receive either tag, so they are
// re-examined by every orientation pass; the pass is cheap enough that this
// beats tracking a third state.
func (c *Catalog) FilesNeedingOrientation() ([]FileRef, error) {
	return c.fileRefs("files_needing_orientation",
		`SELECT f.id, `+relPathExpr+` AS rel_path
		 FROM files f JOIN directories d ON d.id = f.directory_id
		 WHERE f.media_type = 'image' AND NOT EXISTS (
			SELECT 1 FROM file_tags ft
			JOIN tags t ON t.id = ft.tag_id
			WHERE ft.file_id = f.id AND t.name IN ('landscape', 'portrait')
		 )
		 ORDER BY rel_path`)
}

func (c *Catalog) fileRefs(operation, query string) ([]FileRef, error) {
	start := time.Now()

	rows, err := c.db.Query(query)
	recordQuery(operation, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", operation, err)
	}
	defer rows.Close()

	var refs []FileRef
	for rows.Next() {
		var r FileRef
		if err := rows.Scan(&r.ID, &r.Path); err != nil {
			return nil, fmt.Errorf("failed to scan file ref: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// ExactDuplicateGroups returns groups of files sharing a content hash, with
// at least two members each. Groups and members are ordered by path.
func (c *Catalog) ExactDuplicateGroups() ([]HashGroup, error) {
	start := time.Now()

	rows, err := c.db.Query(
		`SELECT f.id, f.directory_id, f.filename, f.size, f.mtime, f.hash, `+relPathExpr+` AS rel_path
		 FROM files f JOIN directories d ON d.id = f.directory_id
		 WHERE f.hash IN (
			SELECT hash FROM files WHERE hash IS NOT NULL GROUP BY hash HAVING COUNT(*) > 1
		 )
		 ORDER BY f.hash, rel_path`)
	recordQuery("exact_duplicate_groups", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate groups: %w", err)
	}
	defer rows.Close()

	var groups []HashGroup
	for rows.Next() {
		var f FileWithPath
		var hash string
		if err := rows.Scan(&f.ID, &f.DirectoryID, &f.Filename, &f.Size, &f.Mtime, &hash, &f.Path); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate member: %w", err)
		}
		f.Hash = &hash

		if len(groups) == 0 || groups[len(groups)-1].Hash != hash {
			groups = append(groups, HashGroup{Hash: hash})
		}
		g := &groups[len(groups)-1]
		g.Files = append(g.Files, f)
	}
	return groups, rows.Err()
}

// PerceptualEntries returns every file with a stored perceptual hash,
// ordered by path.
func (c *Catalog) PerceptualEntries() ([]PerceptualEntry, error) {
	start := time.Now()

	rows, err := c.db.Query(
		`SELECT f.id, `+relPathExpr+` AS rel_path, f.perceptual_hash, f.width, f.height
		 FROM files f JOIN directories d ON d.id = f.directory_id
		 WHERE f.perceptual_hash IS NOT NULL
		 ORDER BY rel_path`)
	recordQuery("perceptual_entries", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query perceptual hashes: %w", err)
	}
	defer rows.Close()

	var entries []PerceptualEntry
	for rows.Next() {
		var e PerceptualEntry
		var stored int64
		var width, height sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Path, &stored, &width, &height); err != nil {
			return nil, fmt.Errorf("failed to scan perceptual entry: %w", err)
		}
		e.Hash = uint64(stored)
		if width.Valid {
			w := int(width.Int64)
			e.Width = &w
		}
		if height.Valid {
			h := int(height.Int64)
			e.Height = &h
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// FilePathByID returns the root-relative path of a file, or "" if the file
// does not exist.
func (c *Catalog) FilePathByID(id int64) (string, error) {
	start := time.Now()

	var path string
	err := c.db.QueryRow(
		`SELECT `+relPathExpr+`
		 FROM files f JOIN directories d ON d.id = f.directory_id
		 WHERE f.id = ?`, id).Scan(&path)
	if err == sql.ErrNoRows {
		recordQuery("file_path_by_id", start, nil)
		return "", nil
	}
	recordQuery("file_path_by_id", start, err)
	if err != nil {
		return "", fmt.Errorf("failed to query path for file %d: %w", id, err)
	}
	return path, nil
}

// Summary holds the catalog counts reported by the status command.
type Summary struct {
	Directories       int
	Files             int
	Images            int
	Videos            int
	MissingHash       int
	MissingDimensions int
	MissingPerceptual int
	Tags              int
}

// Summarize computes catalog-wide counts.
func (c *Catalog) Summarize() (*Summary, error) {
	start := time.Now()

	var s Summary
	err := c.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM directories),
			(SELECT COUNT(*) FROM files),
			(SELECT COUNT(*) FROM files WHERE media_type = 'image'),
			(SELECT COUNT(*) FROM files WHERE media_type = 'video'),
			(SELECT COUNT(*) FROM files WHERE hash IS NULL),
			(SELECT COUNT(*) FROM files WHERE media_type = 'image' AND width IS NULL),
			(SELECT COUNT(*) FROM files WHERE media_type = 'image' AND perceptual_hash IS NULL),
			(SELECT COUNT(*) FROM tags)
	`).Scan(&s.Directories, &s.Files, &s.Images, &s.Videos,
		&s.MissingHash, &s.MissingDimensions, &s.MissingPerceptual, &s.Tags)
	recordQuery("summarize", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize catalog: %w", err)
	}
	return &s, nil
}

func collectStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
