package repositories

import (
	"context"
	"errors"

	"spruce/internal/logger"
	. "spruce/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*User, error)
}

type userRepository struct{}

func NewUserRepository() UserRepository {
	return &userRepository{}
}

func (r *userRepository) GetByID(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
) (*User, error) {
	log := logger.NewWithContext(ctx, "userRepository").Function("GetByID")

	var user User
	if err := tx.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, log.Err("failed to get user", err, "userID", userID)
	}

	return &user, nil
}

func (r *userRepository) GetByEmail(
	ctx context.Context,
	tx *gorm.DB,
	email string,
) (*User, error) {
	log := logger.NewWithContext(ctx, "userRepository").Function("GetByEmail")

	var user User
	if err := tx.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, log.Err("failed to get user by email", err)
	}

	return &user, nil
}
