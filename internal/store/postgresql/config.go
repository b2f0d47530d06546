package postgresql

import "fmt"

const (
	defaultPort    = 5432
	defaultSSLMode = "disable"
)

// Config configures the PostgreSQL driver. An explicit DSN wins; otherwise
// the DSN is assembled from the host components.
type Config struct {
	DSN      string `mapstructure:"dsn" yaml:"dsn"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	DBName   string `mapstructure:"dbname" yaml:"dbname"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

func (c *Config) ToMap() map[string]interface{} {
	dsn := c.DSN
	if dsn == "" && c.Host != "" {
		port := c.Port
		if port == 0 {
			port = defaultPort
		}
		ssl := c.SSLMode
		if ssl == "" {
			ssl = defaultSSLMode
		}
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			c.User, c.Password, c.Host, port, c.DBName, ssl)
	}
	return map[string]interface{}{
		"dsn": dsn,
	}
}
