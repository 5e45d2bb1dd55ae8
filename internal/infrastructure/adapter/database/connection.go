package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	coreport "github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/core"
)

// Connection holds the database handle and its configuration
type Connection struct {
	DB     *gorm.DB
	Config *Config
}

// NewConnection establishes a database connection, retrying on startup so the
// service survives the database coming up after it.
func NewConnection(config *Config, logger coreport.Logger) (*Connection, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	logLevel := gormlogger.Warn
	switch config.LogLevel {
	case "info", "debug":
		logLevel = gormlogger.Info
	case "warn":
		logLevel = gormlogger.Warn
	case "error":
		logLevel = gormlogger.Error
	case "silent":
		logLevel = gormlogger.Silent
	}

	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	}

	var db *gorm.DB
	var err error
	attempts := config.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		db, err = gorm.Open(postgres.Open(config.DSN()), gormConfig)
		if err == nil {
			break
		}
		if attempt < attempts {
			logger.Warn("database not reachable, retrying", map[string]any{
				"attempt":     attempt,
				"max":         attempts,
				"retry_after": config.RetryDelay.String(),
				"error":       err.Error(),
			})
			time.Sleep(config.RetryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	logger.Info("database connection established", map[string]any{
		"host": config.Host,
		"name": config.Database,
	})
	return &Connection{DB: db, Config: config}, nil
}

// Close closes the underlying connection pool
func (c *Connection) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
