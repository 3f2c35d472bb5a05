// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for APIKey rows.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plugtrack/go-plugtrack-backend/internal/domain"
)

// CreateAPIKey mints a new bearer key for userID. The token is a random
// UUID, unique by construction and enforced unique by the database.
func CreateAPIKey(ctx context.Context, db *gorm.DB, userID uint, name string) (*domain.APIKey, error) {
	k := &domain.APIKey{
		UserID:    userID,
		Name:      name,
		Key:       uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(k).Error; err != nil {
		return nil, err
	}
	return k, nil
}

// DeleteAPIKeysByUser removes every key owned by userID. Deleting when no
// keys exist is not an error.
func DeleteAPIKeysByUser(ctx context.Context, db *gorm.DB, userID uint) error {
	return db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.APIKey{}).Error
}

// GetAPIKeyByToken looks a key row up by its bearer token. A hit means the
// credential is valid; there is no expiry.
func GetAPIKeyByToken(ctx context.Context, db *gorm.DB, token string) (*domain.APIKey, error) {
	var k domain.APIKey
	err := db.WithContext(ctx).
		Where("key = ?", token).
		First(&k).Error
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// ListAPIKeysByUser returns the keys owned by userID.
func ListAPIKeysByUser(ctx context.Context, db *gorm.DB, userID uint) ([]domain.APIKey, error) {
	var out []domain.APIKey
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&out).Error
	return out, err
}
