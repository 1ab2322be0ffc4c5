package repositories

import (
	"context"
	"errors"

	"spruce/internal/logger"
	. "spruce/internal/models"

	"gorm.io/gorm"
)

type IncentiveRepository interface {
	GetActive(ctx context.Context, tx *gorm.DB) (*IncentiveConfig, error)
	Create(ctx context.Context, tx *gorm.DB, config *IncentiveConfig) error
}

type incentiveRepository struct{}

func NewIncentiveRepository() IncentiveRepository {
	return &incentiveRepository{}
}

func (r *incentiveRepository) GetActive(
	ctx context.Context,
	tx *gorm.DB,
) (*IncentiveConfig, error) {
	log := logger.NewWithContext(ctx, "incentiveRepository").Function("GetActive")

	var config IncentiveConfig
	if err := tx.WithContext(ctx).First(&config, "is_active = ?", true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, log.Err("failed to get active incentive config", err)
	}

	return &config, nil
}

// Create appends a new config version and deactivates the previous active row
// in the same transaction. Config rows are never updated in place.
func (r *incentiveRepository) Create(
	ctx context.Context,
	tx *gorm.DB,
	config *IncentiveConfig,
) error {
	log := logger.NewWithContext(ctx, "incentiveRepository").Function("Create")

	if config.IsActive {
		if err := tx.WithContext(ctx).
			Model(&IncentiveConfig{}).
			Where("is_active = ?", true).
			Update("is_active", false).Error; err != nil {
			return log.Err("failed to deactivate previous incentive config", err)
		}
	}

	var maxVersion int64
	if err := tx.WithContext(ctx).
		Model(&IncentiveConfig{}).
		Select("COALESCE(MAX(version), 0)").
		Scan(&maxVersion).Error; err != nil {
		return log.Err("failed to read incentive config version", err)
	}
	config.Version = int(maxVersion) + 1

	if err := tx.WithContext(ctx).Create(config).Error; err != nil {
		return log.Err("failed to create incentive config", err)
	}

	return nil
}
