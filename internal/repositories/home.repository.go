package repositories

import (
	"context"
	"errors"

	"spruce/internal/logger"
	. "spruce/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HomeRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, homeID uuid.UUID) (*Home, error)
}

type homeRepository struct{}

func NewHomeRepository() HomeRepository {
	return &homeRepository{}
}

func (r *homeRepository) GetByID(
	ctx context.Context,
	tx *gorm.DB,
	homeID uuid.UUID,
) (*Home, error) {
	log := logger.NewWithContext(ctx, "homeRepository").Function("GetByID")

	var home Home
	if err := tx.WithContext(ctx).
		Preload("PreferredCleaner").
		First(&home, "id = ?", homeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, log.Err("failed to get home", err, "homeID", homeID)
	}

	return &home, nil
}
