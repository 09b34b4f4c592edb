package catalog

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mediacat/internal/logging"
	"mediacat/internal/metrics"
)

// DefaultFilename is the catalog database file, looked up relative to the
// library root.
const DefaultFilename = ".mediacat.db"

const schema = `
CREATE TABLE IF NOT EXISTS directories (
	id INTEGER PRIMARY KEY,
	path TEXT NOT NULL UNIQUE,
	parent_id INTEGER REFERENCES directories(id),
	rating INTEGER CHECK(rating BETWEEN 1 AND 5),
	mtime INTEGER
);

CREATE TABLE IF NOT EXISTS files (
	id INTEGER PRIMARY KEY,
	directory_id INTEGER NOT NULL REFERENCES directories(id),
	filename TEXT NOT NULL,
	size INTEGER NOT NULL,
	mtime INTEGER NOT NULL,
	hash TEXT,
	perceptual_hash INTEGER,
	width INTEGER,
	height INTEGER,
	rating INTEGER CHECK(rating BETWEEN 1 AND 5),
	media_type TEXT NOT NULL CHECK(media_type IN ('image', 'video', 'other')),
	UNIQUE(directory_id, filename)
);

CREATE TABLE IF NOT EXISTS tags (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS file_tags (
	file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (file_id, tag_id)
);

CREATE TABLE IF NOT EXISTS directory_tags (
	directory_id INTEGER NOT NULL REFERENCES directories(id) ON DELETE CASCADE,
	tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (directory_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_files_hash ON files(hash);
CREATE INDEX IF NOT EXISTS idx_files_directory ON files(directory_id);
CREATE INDEX IF NOT EXISTS idx_directories_parent ON directories(parent_id);
`

// Catalog wraps the SQLite database holding the library state.
//
// The connection pool is capped at a single connection, so the explicit
// Begin/Commit/Rollback transaction scope applies to every statement issued
// while it is open. Transactions do not nest.
type Catalog struct {
	db   *sql.DB
	path string

	mu   sync.Mutex
	inTx bool
}

// Open opens (or creates) the catalog database at the given path and applies
// the schema and any pending migrations.
func Open(path string) (*Catalog, error) {
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps the explicit transaction scope attached to
	// every statement and serializes writers at the pool level.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	c := &Catalog{db: db, path: path}
	if err := c.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Debug("Catalog opened at %s", path)
	return c, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Path returns the database file path.
func (c *Catalog) Path() string {
	return c.path
}

func (c *Catalog) initialize() error {
	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return c.migrate()
}

// migrate adds columns introduced after the initial schema. Databases created
// from the current schema already have them, so each step is a no-op there.
func (c *Catalog) migrate() error {
	for _, col := range []string{"perceptual_hash", "width", "height"} {
		exists, err := c.columnExists("files", col)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		logging.Info("Migrating database: adding files.%s column", col)
		if _, err := c.db.Exec(fmt.Sprintf("ALTER TABLE files ADD COLUMN %s INTEGER", col)); err != nil {
			return fmt.Errorf("failed to add %s column: %w", col, err)
		}
	}
	return nil
}

func (c *Catalog) columnExists(table, column string) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT COUNT(*) > 0 FROM pragma_table_info('%s') WHERE name = ?", table)
	if err := c.db.QueryRow(query, column).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check column %s.%s: %w", table, column, err)
	}
	return exists, nil
}

// Begin opens an explicit transaction scope. It fails if one is already open.
func (c *Catalog) Begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inTx {
		return fmt.Errorf("transaction already in progress")
	}
	if _, err := c.db.Exec("BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	c.inTx = true
	return nil
}

// Commit commits the open transaction scope.
func (c *Catalog) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.inTx {
		return fmt.Errorf("no transaction in progress")
	}
	c.inTx = false
	if _, err := c.db.Exec("COMMIT"); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback aborts the open transaction scope.
func (c *Catalog) Rollback() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.inTx {
		return fmt.Errorf("no transaction in progress")
	}
	c.inTx = false
	if _, err := c.db.Exec("ROLLBACK"); err != nil {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

// InTransaction reports whether an explicit transaction scope is open.
func (c *Catalog) InTransaction() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inTx
}

// recordQuery records Prometheus metrics for a database operation.
func recordQuery(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
