package database

import (
	"fmt"
	"strings"

	"focusflow/internal/logging"
	"focusflow/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open opens (creating if needed) a SQLite database file with foreign keys on.
// Using glebarez/sqlite which is a pure Go implementation (no CGO required)
func Open(path string, level logger.LogLevel) (*gorm.DB, error) {
	dsn := path
	if !strings.Contains(path, "?") {
		dsn = path + "?_pragma=foreign_keys(1)"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate creates the tasks and subtasks tables and their indexes.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Task{}, &models.Subtask{})
}

// InitDB opens the server database, runs migrations and stores the handle in DB.
func InitDB(path string, level logger.LogLevel) error {
	db, err := Open(path, level)
	if err != nil {
		return err
	}
	if err := Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	DB = db
	logging.Logger.WithField("path", path).Info("database connected and migrated")
	return nil
}

// GetDB returns the database connection
func GetDB() *gorm.DB {
	return DB
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// LogLevelFor maps the application log level to gorm's: SQL is traced only
// at debug level.
func LogLevelFor(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug", "trace":
		return logger.Info
	case "error", "fatal", "panic":
		return logger.Error
	}
	return logger.Warn
}
