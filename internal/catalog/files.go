package catalog

import (
	"database/sql"
	"fmt"
	"time"
)

// InsertFile inserts a file row and sets f.ID.
func (c *Catalog) InsertFile(f *File) (int64, error) {
	start := time.Now()

	result, err := c.db.Exec(
		`INSERT INTO files (directory_id, filename, size, mtime, hash, perceptual_hash, width, height, rating, media_type)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.DirectoryID, f.Filename, f.Size, f.Mtime,
		nullString(f.Hash), nullUint64(f.PerceptualHash),
		nullInt(f.Width), nullInt(f.Height), nullInt(f.Rating),
		string(f.MediaType),
	)
	recordQuery("insert_file", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to insert file %q: %w", f.Filename, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	f.ID = id
	return id, nil
}

// FileByName returns the file with the given name in a directory, or nil if
// it does not exist.
func (c *Catalog) FileByName(directoryID int64, filename string) (*File, error) {
	start := time.Now()

	row := c.db.QueryRow(
		`SELECT id, directory_id, filename, size, mtime, hash, perceptual_hash, width, height, rating, media_type
		 FROM files WHERE directory_id = ? AND filename = ?`,
		directoryID, filename,
	)
	f, err := scanFile(row)
	if err == sql.ErrNoRows {
		recordQuery("file_by_name", start, nil)
		return nil, nil
	}
	recordQuery("file_by_name", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query file %q: %w", filename, err)
	}
	return f, nil
}

// FilesInDirectory returns every file in a directory.
func (c *Catalog) FilesInDirectory(directoryID int64) ([]File, error) {
	start := time.Now()

	rows, err := c.db.Query(
		`SELECT id, directory_id, filename, size, mtime, hash, perceptual_hash, width, height, rating, media_type
		 FROM files WHERE directory_id = ?`,
		directoryID,
	)
	recordQuery("files_in_directory", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query files in directory %d: %w", directoryID, err)
	}
	defer rows.Close()

	return collectFiles(rows)
}

// AllFiles returns every file in the catalog.
func (c *Catalog) AllFiles() ([]File, error) {
	start := time.Now()

	rows, err := c.db.Query(
		`SELECT id, directory_id, filename, size, mtime, hash, perceptual_hash, width, height, rating, media_type
		 FROM files`,
	)
	recordQuery("all_files", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	return collectFiles(rows)
}

// UpdateFileContent records new size and mtime for a file whose contents
// changed on disk. Derived values (hashes, dimensions) are reset to unknown
// so the post-processing passes recompute them.
func (c *Catalog) UpdateFileContent(id int64, size, mtime int64) error {
	start := time.Now()

	_, err := c.db.Exec(
		`UPDATE files SET size = ?, mtime = ?, hash = NULL, perceptual_hash = NULL, width = NULL, height = NULL
		 WHERE id = ?`,
		size, mtime, id,
	)
	recordQuery("update_file_content", start, err)
	if err != nil {
		return fmt.Errorf("failed to update file %d: %w", id, err)
	}
	return nil
}

// SetFileHash records the content hash of a file.
func (c *Catalog) SetFileHash(id int64, hash string) error {
	start := time.Now()

	_, err := c.db.Exec("UPDATE files SET hash = ? WHERE id = ?", hash, id)
	recordQuery("set_file_hash", start, err)
	if err != nil {
		return fmt.Errorf("failed to set hash for file %d: %w", id, err)
	}
	return nil
}

// SetFilePerceptualHash records the perceptual hash of an image file. The
// unsigned value is stored in the signed INTEGER column bit-for-bit.
func (c *Catalog) SetFilePerceptualHash(id int64, hash uint64) error {
	start := time.Now()

	_, err := c.db.Exec("UPDATE files SET perceptual_hash = ? WHERE id = ?", int64(hash), id)
	recordQuery("set_file_perceptual_hash", start, err)
	if err != nil {
		return fmt.Errorf("failed to set perceptual hash for file %d: %w", id, err)
	}
	return nil
}

// SetFileDimensions records the display dimensions of an image file.
func (c *Catalog) SetFileDimensions(id int64, width, height int) error {
	start := time.Now()

	_, err := c.db.Exec("UPDATE files SET width = ?, height = ? WHERE id = ?", width, height, id)
	recordQuery("set_file_dimensions", start, err)
	if err != nil {
		return fmt.Errorf("failed to set dimensions for file %d: %w", id, err)
	}
	return nil
}

// SetFileRating sets or clears (nil) a file's rating.
func (c *Catalog) SetFileRating(id int64, rating *int) error {
	start := time.Now()

	_, err := c.db.Exec("UPDATE files SET rating = ? WHERE id = ?", nullInt(rating), id)
	recordQuery("set_file_rating", start, err)
	if err != nil {
		return fmt.Errorf("failed to set rating for file %d: %w", id, err)
	}
	return nil
}

// DeleteFile deletes a file row. File tags cascade.
func (c *Catalog) DeleteFile(id int64) error {
	start := time.Now()

	_, err := c.db.Exec("DELETE FROM files WHERE id = ?", id)
	recordQuery("delete_file", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete file %d: %w", id, err)
	}
	return nil
}

func collectFiles(rows *sql.Rows) ([]File, error) {
	var files []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, *f)
	}
	return files, rows.Err()
}

func scanFile(row rowScanner) (*File, error) {
	var f File
	var hash sql.NullString
	var phash, width, height, rating sql.NullInt64
	var mediaType string

	err := row.Scan(&f.ID, &f.DirectoryID, &f.Filename, &f.Size, &f.Mtime,
		&hash, &phash, &width, &height, &rating, &mediaType)
	if err != nil {
		return nil, err
	}

	if hash.Valid {
		v := hash.String
		f.Hash = &v
	}
	if phash.Valid {
		v := uint64(phash.Int64)
		f.PerceptualHash = &v
	}
	if width.Valid {
		v := int(width.Int64)
		f.Width = &v
	}
	if height.Valid {
		v := int(height.Int64)
		f.Height = &v
	}
	if rating.Valid {
		v := int(rating.Int64)
		f.Rating = &v
	}
	f.MediaType = mediaTypeFromString(mediaType)
	return &f, nil
}

func nullString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullUint64(v *uint64) interface{} {
	if v == nil {
		return nil
	}
	return int64(*v)
}
