// Package config loads the shiprun configuration document.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/loykin/shiprun"
	"github.com/loykin/shiprun/internal/observability"
	"gopkg.in/yaml.v3"
)

// SourceConfig identifies the source repository and default ref.
type SourceConfig struct {
	Repo string `yaml:"repo"`
	Ref  string `yaml:"ref"`
}

// BuildConfig configures the build tool adapter.
type BuildConfig struct {
	Tool         string `yaml:"tool"`
	ArtifactGlob string `yaml:"artifact_glob"`
}

// ImageConfig configures the image stage.
type ImageConfig struct {
	Name string `yaml:"name"`
}

// DeployConfig configures the deployment stage.
type DeployConfig struct {
	Inventory string   `yaml:"inventory"`
	Playbook  string   `yaml:"playbook"`
	Tags      []string `yaml:"tags"`
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // error, warn, info, debug
	Format string `yaml:"format"` // text, json
}

// NotifyConfig configures the terminal notification.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// ObservabilityConfig configures the metrics bootstrap and health wait.
type ObservabilityConfig struct {
	GrafanaURL      string                   `yaml:"grafana_url"`
	GrafanaUser     string                   `yaml:"grafana_user"`
	GrafanaPassword string                   `yaml:"grafana_password"`
	PrometheusURL   string                   `yaml:"prometheus_url"`
	PushgatewayURL  string                   `yaml:"pushgateway_url"`
	Wait            observability.WaitConfig `yaml:"wait"`
}

// ProvisionConfig configures host provisioning details.
type ProvisionConfig struct {
	SecretsFile string `yaml:"secrets_file"`
}

// StoreConfig selects and configures the run history store. Driver-specific
// settings are decoded with mapstructure so the yaml stays free-form.
type StoreConfig struct {
	Disabled    bool                   `yaml:"disabled"`
	Driver      string                 `yaml:"driver"`
	TablePrefix string                 `yaml:"table_prefix"`
	Sqlite      map[string]interface{} `yaml:"sqlite"`
	Postgres    map[string]interface{} `yaml:"postgres"`
}

// ToStoreConfig converts the document section into a store configuration.
// The sqlite path defaults to a db file under baseDir.
func (c *StoreConfig) ToStoreConfig(baseDir string) (*shiprun.StoreConfig, error) {
	out := &shiprun.StoreConfig{
		Driver:      c.Driver,
		TablePrefix: c.TablePrefix,
	}
	switch c.Driver {
	case shiprun.DriverPostgresql, "postgres":
		var pg shiprun.PostgresConfig
		if err := mapstructure.Decode(c.Postgres, &pg); err != nil {
			return nil, fmt.Errorf("decode postgres store config: %w", err)
		}
		out.Driver = shiprun.DriverPostgresql
		out.DriverConfig = &pg
	case shiprun.DriverSqlite, "":
		var sq shiprun.SqliteConfig
		if err := mapstructure.Decode(c.Sqlite, &sq); err != nil {
			return nil, fmt.Errorf("decode sqlite store config: %w", err)
		}
		if sq.Path == "" && sq.DSN == "" {
			sq.Path = filepath.Join(baseDir, shiprun.StoreDBFileName)
		}
		out.Driver = shiprun.DriverSqlite
		out.DriverConfig = &sq
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", c.Driver)
	}
	return out, nil
}

// ConfigDoc is the full configuration document for the shiprun CLI.
type ConfigDoc struct {
	Workspace     string              `yaml:"workspace"`
	StageTimeout  string              `yaml:"stage_timeout"`
	Source        SourceConfig        `yaml:"source"`
	Build         BuildConfig         `yaml:"build"`
	Image         ImageConfig         `yaml:"image"`
	Deploy        DeployConfig        `yaml:"deploy"`
	Store         StoreConfig         `yaml:"store"`
	Logging       LoggingConfig       `yaml:"logging"`
	Notify        NotifyConfig        `yaml:"notify"`
	Observability ObservabilityConfig `yaml:"observability"`
	Provision     ProvisionConfig     `yaml:"provision"`
}

// Load reads and parses the configuration file, resolving relative paths
// against the file's directory.
func (c *ConfigDoc) Load(path string) error {
	clean := filepath.Clean(path)
	// #nosec G304 -- path is the operator-supplied config location
	data, err := os.ReadFile(clean)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	baseDir := filepath.Dir(clean)
	c.Workspace = resolvePath(baseDir, c.Workspace)
	c.Deploy.Inventory = resolvePath(baseDir, c.Deploy.Inventory)
	c.Deploy.Playbook = resolvePath(baseDir, c.Deploy.Playbook)

	if c.Workspace == "" {
		c.Workspace = filepath.Join(baseDir, "workspace")
	}
	return nil
}

func resolvePath(baseDir, p string) string {
	if strings.TrimSpace(p) == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

// StageTimeoutDuration parses the stage timeout, zero when unset.
func (c *ConfigDoc) StageTimeoutDuration() time.Duration {
	s := strings.TrimSpace(c.StageTimeout)
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
