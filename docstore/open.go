package docstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/jonwraymond/artifactcache/observe"
)

// Drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	ErrUnsupportedDriver = errors.New("docstore: unsupported database driver")
	ErrMissingDSN        = errors.New("docstore: dsn is required")
)

// Config configures the database connection.
type Config struct {
	// Driver is "sqlite" or "postgres".
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// DSN is the driver-specific data source name.
	DSN string `yaml:"dsn"`

	// MaxOpenConns limits open connections. Zero means unlimited.
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns limits idle connections.
	// Default: 2
	MaxIdleConns int `yaml:"max_idle_conns"`

	// ConnMaxLifetime bounds connection reuse. Zero means forever.
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Driver {
	case "", DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Driver)
	}
	if c.DSN == "" {
		return ErrMissingDSN
	}
	return nil
}

// Open connects to the configured database. Queries are logged through
// logger, which may be nil.
func Open(cfg Config, logger observe.Logger) (*gorm.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		dialector = sqlite.Open(cfg.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: NewGormLogger(logger)})
	if err != nil {
		return nil, fmt.Errorf("docstore: open %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("docstore: get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}
