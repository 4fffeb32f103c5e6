package storage

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DatabaseConfig selects and tunes the persistence backend.
type DatabaseConfig struct {
	Type string // "sqlite" | "postgres"
	Path string // sqlite file path or ":memory:"
	URL  string // postgres DSN

	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

// NewConnection opens a database connection for cfg.
func NewConnection(cfg DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Type {
	case "postgres":
		if cfg.URL == "" {
			return nil, fmt.Errorf("postgres database requires a url")
		}
		dialector = postgres.Open(cfg.URL)

	case "sqlite", "":
		path := cfg.Path
		if path == "" {
			path = ":memory:"
		}
		dialector = sqlite.Open(path)

	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying db: %w", err)
	}
	if cfg.Type == "postgres" {
		if cfg.MaxOpen > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpen)
		}
		if cfg.MaxIdle > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdle)
		}
		if cfg.MaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(cfg.MaxLifetime)
		}
	} else {
		// every :memory: connection is a separate database
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// AutoMigrate creates or updates the schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&RecordModel{},
		&InstrumentStateModel{},
	)
}

// Close closes the database connection.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
