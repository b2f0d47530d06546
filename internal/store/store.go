// Package store persists pipeline run history and allocates monotonically
// increasing build numbers. Two drivers are supported, sqlite and
// postgresql, behind a common Connector interface.
package store

import (
	"fmt"

	"github.com/loykin/shiprun/internal/store/postgresql"
	"github.com/loykin/shiprun/internal/store/sqlite"
)

// Driver names accepted in store configuration.
const (
	DriverSqlite     = "sqlite"
	DriverPostgresql = "postgresql"
)

// DbFileName is the default filename for the sqlite run history database.
const DbFileName = "shiprun.db"

// Default table names.
const (
	DefaultRunsTable   = "pipeline_runs"
	DefaultStagesTable = "stage_results"
)

// RunRecord is one persisted pipeline run. Timestamps are RFC3339Nano UTC.
type RunRecord struct {
	BuildNumber int
	SourceRef   string
	ImageRef    string
	Status      string
	StartedAt   string
	FinishedAt  string
}

// StageRecord is one persisted stage outcome within a run.
type StageRecord struct {
	ID          int
	BuildNumber int
	Stage       string
	Status      string
	Output      string
	Error       string
	StartedAt   string
	FinishedAt  string
}

// Connector is the driver interface. Table names are passed explicitly so
// drivers stay free of shared configuration types.
type Connector interface {
	Load(config map[string]interface{}) error
	Connect() error
	Ensure(runsTable, stagesTable string) error
	NextBuildNumber(runsTable string) (int, error)
	CreateRun(runsTable string, r RunRecord) error
	FinishRun(runsTable string, buildNumber int, status, imageRef, finishedAt string) error
	RecordStage(stagesTable string, s StageRecord) error
	GetRun(runsTable string, buildNumber int) (*RunRecord, error)
	ListRuns(runsTable string, limit int) ([]RunRecord, error)
	ListStages(stagesTable string, buildNumber int) ([]StageRecord, error)
	Close() error
}

// DriverConfig carries driver-specific settings into Connector.Load.
type DriverConfig interface {
	ToMap() map[string]interface{}
}

// Config selects and configures a store driver.
type Config struct {
	Driver       string `mapstructure:"driver"`
	TablePrefix  string `mapstructure:"table_prefix"`
	DriverConfig DriverConfig
}

func (c *Config) runsTable() string {
	return c.TablePrefix + DefaultRunsTable
}

func (c *Config) stagesTable() string {
	return c.TablePrefix + DefaultStagesTable
}

// Store is the run history store used by the orchestrator and the status
// command.
type Store struct {
	conn        Connector
	runsTable   string
	stagesTable string
}

// Open connects a store for the configured driver and ensures its schema.
func Open(cfg *Config) (*Store, error) {
	var conn Connector
	switch cfg.Driver {
	case DriverSqlite, "":
		conn = newSqliteConnector()
	case DriverPostgresql, "postgres":
		conn = newPostgresConnector()
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}

	if cfg.DriverConfig != nil {
		if err := conn.Load(cfg.DriverConfig.ToMap()); err != nil {
			return nil, fmt.Errorf("load store config: %w", err)
		}
	}
	if err := conn.Connect(); err != nil {
		return nil, err
	}
	st := &Store{
		conn:        conn,
		runsTable:   cfg.runsTable(),
		stagesTable: cfg.stagesTable(),
	}
	if err := conn.Ensure(st.runsTable, st.stagesTable); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return st, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// NextBuildNumber allocates the next build number: one above the highest
// recorded run. Build numbers strictly increase and are never reused, which
// is what guarantees the image tag invariant.
func (s *Store) NextBuildNumber() (int, error) {
	return s.conn.NextBuildNumber(s.runsTable)
}

// CreateRun inserts a new run record.
func (s *Store) CreateRun(r RunRecord) error {
	return s.conn.CreateRun(s.runsTable, r)
}

// FinishRun marks a run terminal with its final status and image reference.
func (s *Store) FinishRun(buildNumber int, status, imageRef, finishedAt string) error {
	return s.conn.FinishRun(s.runsTable, buildNumber, status, imageRef, finishedAt)
}

// RecordStage appends one stage outcome for a run.
func (s *Store) RecordStage(rec StageRecord) error {
	return s.conn.RecordStage(s.stagesTable, rec)
}

// GetRun loads a single run by build number, or nil when absent.
func (s *Store) GetRun(buildNumber int) (*RunRecord, error) {
	return s.conn.GetRun(s.runsTable, buildNumber)
}

// ListRuns returns runs newest-first, up to limit (0 = all).
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	return s.conn.ListRuns(s.runsTable, limit)
}

// ListStages returns the stage outcomes of one run in execution order.
func (s *Store) ListStages(buildNumber int) ([]StageRecord, error) {
	return s.conn.ListStages(s.stagesTable, buildNumber)
}

// SqliteConfig configures the sqlite driver.
type SqliteConfig = sqlite.Config

// PostgresConfig configures the postgresql driver.
type PostgresConfig = postgresql.Config
