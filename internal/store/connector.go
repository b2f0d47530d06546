package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/loykin/shiprun/internal/common"
	"github.com/loykin/shiprun/internal/store/postgresql"
	"github.com/loykin/shiprun/internal/store/sqlite"
)

// dialect is the per-driver SQL surface the generic connector runs on.
type dialect interface {
	DriverName() string
	Placeholder(index int) string
	DSNFromConfig(config map[string]interface{}) string
	Connect(dsn string) (*sql.DB, error)
	EnsureStatements(runsTable, stagesTable string) []string
}

func newSqliteConnector() Connector {
	return &dbConnector{dialect: sqlite.NewDialect()}
}

func newPostgresConnector() Connector {
	return &dbConnector{dialect: postgresql.NewDialect()}
}

// dbConnector implements Connector for any SQL dialect.
type dbConnector struct {
	dialect dialect
	dsn     string
	db      *sql.DB
}

func (c *dbConnector) Load(config map[string]interface{}) error {
	c.dsn = c.dialect.DSNFromConfig(config)
	return nil
}

func (c *dbConnector) Connect() error {
	if c.dsn == "" {
		c.dsn = c.dialect.DSNFromConfig(map[string]interface{}{})
	}
	if c.dsn == "" {
		return fmt.Errorf("%s store: no DSN configured", c.dialect.DriverName())
	}
	db, err := c.dialect.Connect(c.dsn)
	if err != nil {
		return err
	}
	c.db = db

	logger := common.GetLogger().WithStore(c.dialect.DriverName())
	logger.Debug("database connection established")
	return nil
}

func (c *dbConnector) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *dbConnector) Ensure(runsTable, stagesTable string) error {
	logger := common.GetLogger().WithStore(c.dialect.DriverName())
	for i, q := range c.dialect.EnsureStatements(runsTable, stagesTable) {
		if _, err := c.db.Exec(q); err != nil {
			logger.Error("failed to create table in schema setup", "error", err, "sql", q)
			return fmt.Errorf("failed to create table %d in schema setup: %w", i+1, err)
		}
	}
	logger.Debug("schema ensured", "tables", []string{runsTable, stagesTable})
	return nil
}

// NextBuildNumber returns one above the highest recorded build number.
// Provisioning a run record under that number keeps tags strictly
// increasing and never reused.
func (c *dbConnector) NextBuildNumber(runsTable string) (int, error) {
	q := fmt.Sprintf("SELECT COALESCE(MAX(build_number), 0) FROM %s", runsTable)
	var max int
	if err := c.db.QueryRow(q).Scan(&max); err != nil {
		return 0, fmt.Errorf("failed to read highest build number: %w", err)
	}
	return max + 1, nil
}

func (c *dbConnector) CreateRun(runsTable string, r RunRecord) error {
	q := fmt.Sprintf("INSERT INTO %s(build_number, source_ref, image_ref, status, started_at, finished_at) VALUES(%s, %s, %s, %s, %s, %s)",
		runsTable,
		c.dialect.Placeholder(1), c.dialect.Placeholder(2), c.dialect.Placeholder(3),
		c.dialect.Placeholder(4), c.dialect.Placeholder(5), c.dialect.Placeholder(6))
	_, err := c.db.Exec(q, r.BuildNumber, r.SourceRef, r.ImageRef, r.Status, r.StartedAt, r.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to create run %d: %w", r.BuildNumber, err)
	}
	return nil
}

func (c *dbConnector) FinishRun(runsTable string, buildNumber int, status, imageRef, finishedAt string) error {
	q := fmt.Sprintf("UPDATE %s SET status = %s, image_ref = %s, finished_at = %s WHERE build_number = %s",
		runsTable,
		c.dialect.Placeholder(1), c.dialect.Placeholder(2), c.dialect.Placeholder(3), c.dialect.Placeholder(4))
	_, err := c.db.Exec(q, status, imageRef, finishedAt, buildNumber)
	if err != nil {
		return fmt.Errorf("failed to finish run %d: %w", buildNumber, err)
	}
	return nil
}

func (c *dbConnector) RecordStage(stagesTable string, s StageRecord) error {
	q := fmt.Sprintf("INSERT INTO %s(build_number, stage, status, output, error, started_at, finished_at) VALUES(%s, %s, %s, %s, %s, %s, %s)",
		stagesTable,
		c.dialect.Placeholder(1), c.dialect.Placeholder(2), c.dialect.Placeholder(3),
		c.dialect.Placeholder(4), c.dialect.Placeholder(5), c.dialect.Placeholder(6), c.dialect.Placeholder(7))
	_, err := c.db.Exec(q, s.BuildNumber, s.Stage, s.Status, s.Output, s.Error, s.StartedAt, s.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to record stage %s for run %d: %w", s.Stage, s.BuildNumber, err)
	}
	return nil
}

func (c *dbConnector) GetRun(runsTable string, buildNumber int) (*RunRecord, error) {
	q := fmt.Sprintf("SELECT build_number, source_ref, image_ref, status, started_at, finished_at FROM %s WHERE build_number = %s",
		runsTable, c.dialect.Placeholder(1))
	var r RunRecord
	err := c.db.QueryRow(q, buildNumber).Scan(&r.BuildNumber, &r.SourceRef, &r.ImageRef, &r.Status, &r.StartedAt, &r.FinishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %d: %w", buildNumber, err)
	}
	return &r, nil
}

func (c *dbConnector) ListRuns(runsTable string, limit int) ([]RunRecord, error) {
	q := fmt.Sprintf("SELECT build_number, source_ref, image_ref, status, started_at, finished_at FROM %s ORDER BY build_number DESC", runsTable)
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := c.db.Query(q)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.BuildNumber, &r.SourceRef, &r.ImageRef, &r.Status, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (c *dbConnector) ListStages(stagesTable string, buildNumber int) ([]StageRecord, error) {
	q := fmt.Sprintf("SELECT id, build_number, stage, status, output, error, started_at, finished_at FROM %s WHERE build_number = %s ORDER BY id",
		stagesTable, c.dialect.Placeholder(1))
	rows, err := c.db.Query(q, buildNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages for run %d: %w", buildNumber, err)
	}
	defer func() { _ = rows.Close() }()

	var out []StageRecord
	for rows.Next() {
		var s StageRecord
		if err := rows.Scan(&s.ID, &s.BuildNumber, &s.Stage, &s.Status, &s.Output, &s.Error, &s.StartedAt, &s.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
