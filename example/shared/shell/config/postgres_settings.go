package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envPrefix is the prefix for all environment variables read by this package,
// e.g. LENDING_DB_HOST, LENDING_DB_PORT, LENDING_DB_NAME.
const envPrefix = "lending"

// PostgresSettings holds the connection settings for the lending database.
type PostgresSettings struct {
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"test"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"test"`
	DBName     string `envconfig:"DB_NAME" default:"lending"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"50"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"5m"`
	ConnectTimeout  time.Duration `envconfig:"DB_CONNECT_TIMEOUT" default:"5s"`

	// LockTimeout is applied per session so lock waits surface as busy errors
	// instead of blocking indefinitely.
	LockTimeout time.Duration `envconfig:"DB_LOCK_TIMEOUT" default:"5s"`
}

// LoadPostgresSettings reads the settings from the environment, falling back
// to defaults suitable for local development.
func LoadPostgresSettings() (PostgresSettings, error) {
	var settings PostgresSettings
	if err := envconfig.Process(envPrefix, &settings); err != nil {
		return PostgresSettings{}, err
	}

	return settings, nil
}

// DSN renders the settings as a PostgreSQL connection string.
func (s PostgresSettings) DSN() string {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.DBUser, s.DBPassword, s.DBHost, s.DBPort, s.DBName, s.DBSSLMode)

	if s.LockTimeout > 0 {
		dsn += fmt.Sprintf("&options=-c%%20lock_timeout%%3D%d", s.LockTimeout.Milliseconds())
	}

	return dsn
}
