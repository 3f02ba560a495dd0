package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmpark/tinydesk-backend/config"
	appLogger "github.com/jmpark/tinydesk-backend/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Initialize opens the database connection. PostgreSQL is used when an
// external database is configured, a local SQLite file otherwise. The
// returned handle is passed explicitly to repositories and the lock manager;
// nothing resolves it through package state.
func Initialize(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.UsesExternalDatabase() {
		return openPostgres(cfg)
	}
	return openSQLite(cfg)
}

func openPostgres(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	appLogger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host":     cfg.Host,
		"database": cfg.DBName,
	})

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Use silent mode, we'll use our own logger
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	appLogger.Info("Database connection established successfully")
	return db, nil
}

func openSQLite(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	appLogger.Info("Opening SQLite database", map[string]interface{}{
		"file": cfg.File,
	})

	db, err := gorm.Open(sqlite.Open(cfg.File), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database file: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA cache_size=-10000",
		"PRAGMA temp_store=MEMORY",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return db, nil
}

// HasAdvisoryLocks reports whether the connected engine provides native
// advisory locking. Checked once at startup to pick the lock backend;
// repositories and the tracker never branch on dialect themselves.
func HasAdvisoryLocks(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}

// Close closes the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
