// Package sqlite provides the SQLite dialect for the run history store.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const (
	busyTimeoutMS    = 5000
	foreignKeysParam = "_fk=1"
)

// Dialect implements SQL dialect and connection handling for SQLite.
type Dialect struct{}

// NewDialect creates a new SQLite dialect
func NewDialect() *Dialect {
	return &Dialect{}
}

// DriverName returns the driver name for logging
func (d *Dialect) DriverName() string {
	return "sqlite"
}

// Placeholder returns SQLite-style placeholders (?)
func (d *Dialect) Placeholder(_ int) string {
	return "?"
}

// DSNFromConfig builds a DSN from driver configuration. An explicit dsn key
// wins over a file path.
func (d *Dialect) DSNFromConfig(config map[string]interface{}) string {
	if dsn, ok := config["dsn"].(string); ok && dsn != "" {
		return dsn
	}
	if path, ok := config["path"].(string); ok && path != "" {
		return fmt.Sprintf("file:%s?_busy_timeout=%d&%s", path, busyTimeoutMS, foreignKeysParam)
	}
	return ":memory:"
}

// Connect establishes a connection to SQLite with connection pooling
func (d *Dialect) Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	// SQLite allows only one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(10 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}

// EnsureStatements returns SQLite-specific table creation statements
func (d *Dialect) EnsureStatements(runsTable, stagesTable string) []string {
	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (build_number INTEGER PRIMARY KEY, source_ref TEXT NOT NULL, image_ref TEXT NOT NULL DEFAULT '', status TEXT NOT NULL, started_at TEXT NOT NULL, finished_at TEXT NOT NULL DEFAULT '')", runsTable),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY AUTOINCREMENT, build_number INTEGER NOT NULL, stage TEXT NOT NULL, status TEXT NOT NULL, output TEXT NOT NULL DEFAULT '', error TEXT NOT NULL DEFAULT '', started_at TEXT NOT NULL, finished_at TEXT NOT NULL)", stagesTable),
	}
}
