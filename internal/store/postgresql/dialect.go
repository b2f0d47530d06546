// Package postgresql provides the PostgreSQL dialect for the run history
// store, over the pgx stdlib driver.
package postgresql

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Dialect implements SQL dialect and connection handling for PostgreSQL.
type Dialect struct{}

// NewDialect creates a new PostgreSQL dialect
func NewDialect() *Dialect {
	return &Dialect{}
}

// DriverName returns the driver name for logging
func (d *Dialect) DriverName() string {
	return "postgresql"
}

// Placeholder returns PostgreSQL-style placeholders ($1, $2, ...)
func (d *Dialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

// DSNFromConfig builds a DSN from driver configuration. An explicit dsn key
// wins over host components.
func (d *Dialect) DSNFromConfig(config map[string]interface{}) string {
	if dsn, ok := config["dsn"].(string); ok && dsn != "" {
		return dsn
	}
	return ""
}

// Connect establishes a connection to PostgreSQL
func (d *Dialect) Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}
	return db, nil
}

// EnsureStatements returns PostgreSQL-specific table creation statements
func (d *Dialect) EnsureStatements(runsTable, stagesTable string) []string {
	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (build_number INTEGER PRIMARY KEY, source_ref TEXT NOT NULL, image_ref TEXT NOT NULL DEFAULT '', status TEXT NOT NULL, started_at TEXT NOT NULL, finished_at TEXT NOT NULL DEFAULT '')", runsTable),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id SERIAL PRIMARY KEY, build_number INTEGER NOT NULL, stage TEXT NOT NULL, status TEXT NOT NULL, output TEXT NOT NULL DEFAULT '', error TEXT NOT NULL DEFAULT '', started_at TEXT NOT NULL, finished_at TEXT NOT NULL)", stagesTable),
	}
}
