package datastore

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowQueryThreshold is the duration above which GORM logs a query as slow.
const DefaultSlowQueryThreshold = 200 * time.Millisecond

// createGormLogger creates a GORM logger that routes through slog.
func createGormLogger() gormlogger.Interface {
	return NewGormLogger(DefaultSlowQueryThreshold, gormlogger.Warn)
}

// allModels lists every table in migration order: parents before children.
func allModels() []any {
	return []any{
		&User{},
		&Session{},
		&Category{},
		&Note{},
		&Insight{},
		&UsageLog{},
		&MediaFile{},
	}
}

// performAutoMigration runs GORM auto migration for all models.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	migrationStart := time.Now()
	migrationLogger := GetLogger().With("db_type", dbType)

	migrationLogger.Debug("Starting database migration")

	successCount := 0
	for _, model := range allModels() {
		if err := db.AutoMigrate(model); err != nil {
			migrationLogger.Error("Failed to migrate table",
				"model", fmt.Sprintf("%T", model),
				"error", err)
			return fmt.Errorf("failed to auto-migrate %T: %w", model, err)
		}
		successCount++
	}

	if debug {
		migrationLogger.Debug("Database connection details",
			"connection", connectionInfo)
	}

	migrationLogger.Debug("Database migration completed successfully",
		"db_type", dbType,
		"total_duration", time.Since(migrationStart),
		"tables_migrated", successCount)

	return nil
}
