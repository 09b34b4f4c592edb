package catalog

import (
	"fmt"
	"time"
)

// ensureTag returns the id of the named tag, creating it if needed.
func (c *Catalog) ensureTag(name string) (int64, error) {
	start := time.Now()

	_, err := c.db.Exec("INSERT OR IGNORE INTO tags (name) VALUES (?)", name)
	if err != nil {
		recordQuery("ensure_tag", start, err)
		return 0, fmt.Errorf("failed to create tag %q: %w", name, err)
	}

	var id int64
	err = c.db.QueryRow("SELECT id FROM tags WHERE name = ?", name).Scan(&id)
	recordQuery("ensure_tag", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to look up tag %q: %w", name, err)
	}
	return id, nil
}

// AddFileTag attaches a tag to a file. Adding an existing tag is a no-op.
func (c *Catalog) AddFileTag(fileID int64, name string) error {
	tagID, err := c.ensureTag(name)
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = c.db.Exec("INSERT OR IGNORE INTO file_tags (file_id, tag_id) VALUES (?, ?)", fileID, tagID)
	recordQuery("add_file_tag", start, err)
	if err != nil {
		return fmt.Errorf("failed to tag file %d with %q: %w", fileID, name, err)
	}
	return nil
}

// RemoveFileTag detaches a tag from a file. Removing an absent tag is a no-op.
func (c *Catalog) RemoveFileTag(fileID int64, name string) error {
	start := time.Now()

	_, err := c.db.Exec(
		"DELETE FROM file_tags WHERE file_id = ? AND tag_id = (SELECT id FROM tags WHERE name = ?)",
		fileID, name,
	)
	recordQuery("remove_file_tag", start, err)
	if err != nil {
		return fmt.Errorf("failed to untag file %d: %w", fileID, err)
	}
	return nil
}

// FileTags returns the tags attached to a file, sorted by name.
func (c *Catalog) FileTags(fileID int64) ([]string, error) {
	start := time.Now()

	rows, err := c.db.Query(
		`SELECT t.name FROM tags t
		 JOIN file_tags ft ON ft.tag_id = t.id
		 WHERE ft.file_id = ?
		 ORDER BY t.name`,
		fileID,
	)
	recordQuery("file_tags", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags for file %d: %w", fileID, err)
	}
	defer rows.Close()

	return collectStrings(rows)
}

// AddDirectoryTag attaches a tag to a directory. Adding an existing tag is a
// no-op.
func (c *Catalog) AddDirectoryTag(directoryID int64, name string) error {
	tagID, err := c.ensureTag(name)
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = c.db.Exec("INSERT OR IGNORE INTO directory_tags (directory_id, tag_id) VALUES (?, ?)", directoryID, tagID)
	recordQuery("add_directory_tag", start, err)
	if err != nil {
		return fmt.Errorf("failed to tag directory %d with %q: %w", directoryID, name, err)
	}
	return nil
}

// RemoveDirectoryTag detaches a tag from a directory.
func (c *Catalog) RemoveDirectoryTag(directoryID int64, name string) error {
	start := time.Now()

	_, err := c.db.Exec(
		"DELETE FROM directory_tags WHERE directory_id = ? AND tag_id = (SELECT id FROM tags WHERE name = ?)",
		directoryID, name,
	)
	recordQuery("remove_directory_tag", start, err)
	if err != nil {
		return fmt.Errorf("failed to untag directory %d: %w", directoryID, err)
	}
	return nil
}

// DirectoryTags returns the tags attached to a directory, sorted by name.
func (c *Catalog) DirectoryTags(directoryID int64) ([]string, error) {
	start := time.Now()

	rows, err := c.db.Query(
		`SELECT t.name FROM tags t
		 JOIN directory_tags dt ON dt.tag_id = t.id
		 WHERE dt.directory_id = ?
		 ORDER BY t.name`,
		directoryID,
	)
	recordQuery("directory_tags", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags for directory %d: %w", directoryID, err)
	}
	defer rows.Close()

	return collectStrings(rows)
}
