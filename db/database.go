package db

import (
	"fmt"
	"log"
	"time"

	"legal_matter_engine/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open returns a gorm connection for the sqlite file at dsn.
// Unique constraint failures are translated to gorm.ErrDuplicatedKey.
func Open(dsn string, logLevel logger.LogLevel) (*gorm.DB, error) {
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
		// sqlite compares timestamps as text, so every stored time is UTC
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return conn, nil
}

// DSN builds the sqlite connection string for path. WAL lets readers run
// beside a writer, the busy timeout makes writers queue instead of failing and
// immediate transactions take the write lock up front so the case number
// counter cannot deadlock on a lock upgrade.
func DSN(path string) string {
	return path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate"
}

// Initialize sets up the database connection with WAL mode for concurrency
func Initialize(dbPath string, environment string) error {
	// Determine log level based on environment
	logLevel := logger.Info
	if environment == "production" {
		logLevel = logger.Warn
	}

	conn, err := Open(DSN(dbPath), logLevel)
	if err != nil {
		return err
	}
	DB = conn

	log.Println("Database connection established (WAL mode enabled)")
	return nil
}

// EngineModels lists every table the case engine owns or reads
func EngineModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Case{},
		&models.CaseSequence{},
		&models.Task{},
		&models.Document{},
		&models.Appointment{},
		&models.Notification{},
	}
}

// Migrate creates or updates the engine tables on conn
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(EngineModels()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}
