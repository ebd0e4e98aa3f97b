package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultPath is the default database location
const DefaultPath = "/var/lib/diskmap/inventory.db"

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
	path string
}

// New opens or creates the SQLite database at the given path
func New(path string) (*DB, error) {
	if path == "" {
		path = DefaultPath
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One process, one writer
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	db := &DB{conn: conn, path: path}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.conn.Close()
}

// Path returns the database file path
func (d *DB) Path() string {
	return d.path
}

// migrate runs the database schema migrations
func (d *DB) migrate() error {
	_, err := d.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	var version int
	err = d.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return err
	}

	migrations := []string{
		migrationV1,
	}

	for i, migration := range migrations {
		v := i + 1
		if v <= version {
			continue
		}

		tx, err := d.conn.Begin()
		if err != nil {
			return err
		}

		if _, err := tx.Exec(migration); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration v%d failed: %w", v, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", v); err != nil {
			tx.Rollback()
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

// migrationV1 creates the initial schema
const migrationV1 = `
-- Metadata of the last saved inventory; a single row
CREATE TABLE IF NOT EXISTS snapshot_meta (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    run_id TEXT,
    saved_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS controllers (
    id INTEGER PRIMARY KEY,
    adapter_type TEXT NOT NULL,
    vendor_id TEXT,
    device_id TEXT,
    pci_address TEXT,
    subsys_vendor_id TEXT,
    subsys_device_id TEXT
);

CREATE TABLE IF NOT EXISTS enclosures (
    logical_id TEXT PRIMARY KEY,
    enclosure_index INTEGER NOT NULL,
    num_slots INTEGER NOT NULL,
    controller_id INTEGER NOT NULL REFERENCES controllers(id)
);

CREATE TABLE IF NOT EXISTS drives (
    serial TEXT PRIMARY KEY,
    manufacturer TEXT,
    model TEXT,
    firmware TEXT,
    enclosure_index INTEGER NOT NULL,
    slot INTEGER NOT NULL,
    enclosure_id TEXT NOT NULL REFERENCES enclosures(logical_id),
    controller_id INTEGER NOT NULL REFERENCES controllers(id),
    state TEXT,
    size_mb INTEGER,
    size_sectors INTEGER,
    protocol TEXT,
    drive_type TEXT,
    device_path TEXT
);

CREATE INDEX IF NOT EXISTS idx_drives_location ON drives(controller_id, enclosure_index, slot);

-- Device path reverse lookups
CREATE TABLE IF NOT EXISTS drive_aliases (
    device_path TEXT PRIMARY KEY,
    serial TEXT NOT NULL REFERENCES drives(serial)
);

-- Placement history, kept across saves
CREATE TABLE IF NOT EXISTS drive_events (
    id INTEGER PRIMARY KEY,
    serial TEXT NOT NULL,
    event_type TEXT NOT NULL,
    run_id TEXT,
    old_location TEXT,
    new_location TEXT,
    device_path TEXT,
    timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_events_serial ON drive_events(serial);
CREATE INDEX IF NOT EXISTS idx_events_time ON drive_events(timestamp);
`

// DriveEvent is a change in a drive's placement between two saves
type DriveEvent struct {
	ID          int64     `json:"id"`
	Serial      string    `json:"serial"`
	EventType   string    `json:"event_type"`
	RunID       string    `json:"run_id,omitempty"`
	OldLocation string    `json:"old_location,omitempty"`
	NewLocation string    `json:"new_location,omitempty"`
	DevicePath  string    `json:"device_path,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Event types
const (
	EventDiscovered = "discovered"
	EventMoved      = "moved"
	EventMapped     = "mapped"
	EventRemoved    = "removed"
)

// Helper functions for nullable values
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
