package storage

import (
	"fmt"
	"time"
)

// Config for the database connection
type Config struct {
	// Driver is "postgres" or "sqlite3"
	Driver string
	URL    string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration

	// MigrateOnStart applies pending migrations when the process starts
	MigrateOnStart bool
}

// DefaultConfig returns a local SQLite configuration
func DefaultConfig() Config {
	return Config{
		Driver:          string(DialectSQLite),
		URL:             "recipebox.db",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnectTimeout:  5 * time.Second,
		MigrateOnStart:  true,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if _, err := ParseDialect(c.Driver); err != nil {
		return err
	}
	if c.URL == "" {
		return fmt.Errorf("database URL is required for %s", c.Driver)
	}
	return nil
}
