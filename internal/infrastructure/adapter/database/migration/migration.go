package migration

import (
	"errors"
	"time"

	"gorm.io/gorm"

	coreport "github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/core"
	"github.com/Giftbit/internal-rothschild-sub003/internal/infrastructure/adapter/model"
)

// CurrentSchemaVersion represents the current database schema version
const CurrentSchemaVersion = "1.0.0"

// Manager applies the schema. AutoMigrate is additive only; destructive
// changes require a new versioned migration.
type Manager struct {
	db     *gorm.DB
	logger coreport.Logger
}

// NewManager creates a new migration manager
func NewManager(db *gorm.DB, logger coreport.Logger) *Manager {
	return &Manager{
		db:     db,
		logger: logger,
	}
}

// MigrateAll brings the schema up to the current version
func (m *Manager) MigrateAll() error {
	m.logger.Info("starting database migrations", map[string]any{
		"target_version": CurrentSchemaVersion,
	})

	if err := m.db.AutoMigrate(&model.MigrationVersion{}); err != nil {
		return err
	}

	current, err := m.currentVersion()
	if err != nil {
		return err
	}
	if current == CurrentSchemaVersion {
		m.logger.Info("database already at target version", map[string]any{
			"version": current,
		})
		return nil
	}

	if err := m.db.AutoMigrate(
		&model.Value{},
		&model.Transaction{},
		&model.TransactionStep{},
	); err != nil {
		m.logger.Error("failed to migrate models", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	if err := m.recordVersion(CurrentSchemaVersion); err != nil {
		return err
	}

	m.logger.Info("database migrations complete", map[string]any{
		"version": CurrentSchemaVersion,
	})
	return nil
}

func (m *Manager) currentVersion() (string, error) {
	var mv model.MigrationVersion
	result := m.db.Order("applied_at DESC").First(&mv)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", result.Error
	}
	return mv.Version, nil
}

func (m *Manager) recordVersion(version string) error {
	return m.db.Create(&model.MigrationVersion{
		Version:   version,
		AppliedAt: time.Now().UTC(),
		Details:   "values, transactions, transaction_steps",
	}).Error
}
