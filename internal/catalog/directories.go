package catalog

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"mediacat/internal/logging"
)

// InsertDirectory inserts a directory row and returns its id.
func (c *Catalog) InsertDirectory(path string, parentID *int64, mtime *int64) (int64, error) {
	start := time.Now()

	result, err := c.db.Exec(
		"INSERT INTO directories (path, parent_id, mtime) VALUES (?, ?, ?)",
		path, nullInt64(parentID), nullInt64(mtime),
	)
	recordQuery("insert_directory", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to insert directory %q: %w", path, err)
	}
	return result.LastInsertId()
}

// DirectoryByPath returns the directory with the given path, or nil if it
// does not exist.
func (c *Catalog) DirectoryByPath(path string) (*Directory, error) {
	start := time.Now()

	row := c.db.QueryRow(
		"SELECT id, path, parent_id, rating, mtime FROM directories WHERE path = ?",
		path,
	)
	d, err := scanDirectory(row)
	if err == sql.ErrNoRows {
		recordQuery("directory_by_path", start, nil)
		return nil, nil
	}
	recordQuery("directory_by_path", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query directory %q: %w", path, err)
	}
	return d, nil
}

// DirectoryByID returns the directory with the given id, or nil if it does
// not exist.
func (c *Catalog) DirectoryByID(id int64) (*Directory, error) {
	start := time.Now()

	row := c.db.QueryRow(
		"SELECT id, path, parent_id, rating, mtime FROM directories WHERE id = ?",
		id,
	)
	d, err := scanDirectory(row)
	if err == sql.ErrNoRows {
		recordQuery("directory_by_id", start, nil)
		return nil, nil
	}
	recordQuery("directory_by_id", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query directory %d: %w", id, err)
	}
	return d, nil
}

// AllDirectories returns every directory in the catalog.
func (c *Catalog) AllDirectories() ([]Directory, error) {
	start := time.Now()

	rows, err := c.db.Query("SELECT id, path, parent_id, rating, mtime FROM directories")
	recordQuery("all_directories", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query directories: %w", err)
	}
	defer rows.Close()

	var dirs []Directory
	for rows.Next() {
		d, err := scanDirectory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan directory: %w", err)
		}
		dirs = append(dirs, *d)
	}
	return dirs, rows.Err()
}

// ChildDirectories returns the direct children of a directory, ordered by
// path.
func (c *Catalog) ChildDirectories(parentID int64) ([]Directory, error) {
	start := time.Now()

	rows, err := c.db.Query(
		"SELECT id, path, parent_id, rating, mtime FROM directories WHERE parent_id = ? ORDER BY path",
		parentID)
	recordQuery("child_directories", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query children of directory %d: %w", parentID, err)
	}
	defer rows.Close()

	var dirs []Directory
	for rows.Next() {
		d, err := scanDirectory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan directory: %w", err)
		}
		dirs = append(dirs, *d)
	}
	return dirs, rows.Err()
}

// EnsureRootDirectory returns the id of the synthetic root directory
// (path ""), creating it if necessary.
func (c *Catalog) EnsureRootDirectory() (int64, error) {
	d, err := c.DirectoryByPath("")
	if err != nil {
		return 0, err
	}
	if d != nil {
		return d.ID, nil
	}
	return c.InsertDirectory("", nil, nil)
}

// SetDirectoryRating sets or clears (nil) a directory's rating.
func (c *Catalog) SetDirectoryRating(id int64, rating *int) error {
	start := time.Now()

	_, err := c.db.Exec("UPDATE directories SET rating = ? WHERE id = ?", nullInt(rating), id)
	recordQuery("set_directory_rating", start, err)
	if err != nil {
		return fmt.Errorf("failed to set rating for directory %d: %w", id, err)
	}
	return nil
}

// SetDirectoryMtime updates a directory's recorded modification time.
func (c *Catalog) SetDirectoryMtime(id int64, mtime int64) error {
	start := time.Now()

	_, err := c.db.Exec("UPDATE directories SET mtime = ? WHERE id = ?", mtime, id)
	recordQuery("set_directory_mtime", start, err)
	if err != nil {
		return fmt.Errorf("failed to set mtime for directory %d: %w", id, err)
	}
	return nil
}

// DeleteDirectory deletes a directory row. Directory tags cascade; files must
// be removed first.
func (c *Catalog) DeleteDirectory(id int64) error {
	start := time.Now()

	_, err := c.db.Exec("DELETE FROM directories WHERE id = ?", id)
	recordQuery("delete_directory", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete directory %d: %w", id, err)
	}
	return nil
}

// RepairParents recomputes every directory's parent_id from its path and
// fixes rows that disagree. It returns the number of rows fixed.
func (c *Catalog) RepairParents() (int, error) {
	dirs, err := c.AllDirectories()
	if err != nil {
		return 0, err
	}

	byPath := make(map[string]int64, len(dirs))
	for _, d := range dirs {
		byPath[d.Path] = d.ID
	}

	fixed := 0
	for _, d := range dirs {
		var want *int64
		if d.Path != "" {
			parent := parentPath(d.Path)
			if id, ok := byPath[parent]; ok {
				want = &id
			}
		}
		if int64PtrEqual(d.ParentID, want) {
			continue
		}

		start := time.Now()
		_, err := c.db.Exec("UPDATE directories SET parent_id = ? WHERE id = ?", nullInt64(want), d.ID)
		recordQuery("repair_parent", start, err)
		if err != nil {
			return fixed, fmt.Errorf("failed to repair parent of directory %q: %w", d.Path, err)
		}
		logging.Debug("Repaired parent of directory %q", d.Path)
		fixed++
	}
	return fixed, nil
}

// parentPath returns the path of a directory's parent. Top-level directories
// are children of the root ("").
func parentPath(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDirectory(row rowScanner) (*Directory, error) {
	var d Directory
	var parentID, mtime sql.NullInt64
	var rating sql.NullInt64

	if err := row.Scan(&d.ID, &d.Path, &parentID, &rating, &mtime); err != nil {
		return nil, err
	}
	if parentID.Valid {
		v := parentID.Int64
		d.ParentID = &v
	}
	if rating.Valid {
		v := int(rating.Int64)
		d.Rating = &v
	}
	if mtime.Valid {
		v := mtime.Int64
		d.Mtime = &v
	}
	return &d, nil
}

func nullInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
