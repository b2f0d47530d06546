package shiprun

import (
	"context"

	"github.com/loykin/shiprun/internal/execx"
	"github.com/loykin/shiprun/internal/observability"
	"github.com/loykin/shiprun/internal/pipeline"
	"github.com/loykin/shiprun/internal/provision"
	"github.com/loykin/shiprun/internal/store"
)

// Re-export commonly used types for public API

// Run is the record of one pipeline invocation.
type Run = pipeline.Run

// StageStatus is one stage's outcome within a run.
type StageStatus = pipeline.StageStatus

// ImageRef identifies a built container image (name + tag).
type ImageRef = pipeline.ImageRef

// Pipeline sequences the fixed stage order of a run.
type Pipeline = pipeline.Pipeline

// Stage is one discrete pipeline step.
type Stage = pipeline.Stage

// RunContext carries per-run state between stages.
type RunContext = pipeline.RunContext

// Notifier emits the terminal run notification.
type Notifier = pipeline.Notifier

// Option configures a Pipeline.
type Option = pipeline.Option

// Pipeline options.
var (
	WithNotifier     = pipeline.WithNotifier
	WithRecorder     = pipeline.WithRecorder
	WithObserver     = pipeline.WithObserver
	WithStageTimeout = pipeline.WithStageTimeout
	WithCleanup      = pipeline.WithCleanup
)

// NewPipeline creates a pipeline over ordered stages.
func NewPipeline(stages []Stage, opts ...Option) *Pipeline {
	return pipeline.New(stages, opts...)
}

// ToolSpec declares one provisioned tool.
type ToolSpec = provision.ToolSpec

// Provisioner ensures host tooling from a catalog.
type Provisioner = provision.Provisioner

// NewProvisioner creates a provisioner using the real command runner.
func NewProvisioner() *Provisioner {
	return provision.New(execx.NewRunner())
}

// DefaultToolCatalog is the ordered default tool catalog.
func DefaultToolCatalog() []ToolSpec {
	return provision.DefaultCatalog()
}

// ConfigureObservability declares the default Prometheus datasource in
// Grafana, idempotently.
func ConfigureObservability(ctx context.Context, grafanaURL, username, password, prometheusURL string) error {
	return observability.NewBootstrap(grafanaURL, username, password, prometheusURL).Configure(ctx)
}

// Store is the run history store.
type Store = store.Store

// StoreConfig selects and configures a store driver.
type StoreConfig = store.Config

// SqliteConfig configures the sqlite store driver.
type SqliteConfig = store.SqliteConfig

// PostgresConfig configures the postgresql store driver.
type PostgresConfig = store.PostgresConfig

// RunRecord is one persisted pipeline run.
type RunRecord = store.RunRecord

// StageRecord is one persisted stage outcome.
type StageRecord = store.StageRecord

// Store driver names.
const (
	DriverSqlite     = store.DriverSqlite
	DriverPostgresql = store.DriverPostgresql
)

// StoreDBFileName is the default sqlite filename used for run history.
const StoreDBFileName = store.DbFileName

// OpenStore opens (and initializes) the run history store.
func OpenStore(cfg *StoreConfig) (*Store, error) {
	return store.Open(cfg)
}
