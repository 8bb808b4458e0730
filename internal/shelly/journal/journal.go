// Package journal keeps an SQLite audit trail of sync attempts and device log
// lines. Nothing in it is read back to make sync decisions.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dimasma0305/shellysync/internal/log"

	// Import pure-Go SQLite driver for database/sql (no CGO required)
	_ "modernc.org/sqlite"
)

// DB wraps the journal database
type DB struct {
	db      *sql.DB
	mu      sync.RWMutex
	enabled bool
	path    string
}

// New creates a journal instance; call Init before recording
func New(dbPath string, enabled bool) *DB {
	return &DB{
		path:    dbPath,
		enabled: enabled,
	}
}

// Init opens the database and creates the tables
func (d *DB) Init() error {
	if !d.enabled {
		log.Debug("Journal disabled")
		return nil
	}

	dbPath := d.path
	log.Debug("Opening journal: %s", dbPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}

	// WAL lets the status command read while the daemon writes
	dbPath += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with a single writer
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping journal: %w", err)
	}

	d.mu.Lock()
	d.db = db
	d.mu.Unlock()

	if err := d.createTables(); err != nil {
		return fmt.Errorf("failed to create journal tables: %w", err)
	}
	return nil
}

func (d *DB) createTables() error {
	db := d.GetDB()
	if db == nil {
		return fmt.Errorf("journal not initialized")
	}

	createSyncTable := `
		CREATE TABLE IF NOT EXISTS sync_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			path TEXT NOT NULL,
			script TEXT NOT NULL,
			script_id INTEGER,
			action TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			duration INTEGER
		);
		CREATE INDEX IF NOT EXISTS idx_sync_script ON sync_events(script);
		CREATE INDEX IF NOT EXISTS idx_sync_status ON sync_events(status);
	`

	createDeviceLogsTable := `
		CREATE TABLE IF NOT EXISTS device_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			device_ts REAL NOT NULL,
			level INTEGER NOT NULL,
			message TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_device_logs_level ON device_logs(level);
	`

	if _, err := db.Exec(createSyncTable); err != nil {
		return fmt.Errorf("failed to create sync_events table: %w", err)
	}
	if _, err := db.Exec(createDeviceLogsTable); err != nil {
		return fmt.Errorf("failed to create device_logs table: %w", err)
	}
	return nil
}

// Close closes the database connection
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		err := d.db.Close()
		d.db = nil
		return err
	}
	return nil
}

// GetDB returns the underlying connection, or nil before Init
func (d *DB) GetDB() *sql.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db
}

// IsEnabled returns whether the journal is enabled
func (d *DB) IsEnabled() bool {
	return d.enabled
}
