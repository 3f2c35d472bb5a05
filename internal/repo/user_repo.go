// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for User and
// UserSettings rows.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/plugtrack/go-plugtrack-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for consistency across the service layer
// and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateUser inserts a user together with its settings row in one statement.
// The settings association is saved by GORM in the same transaction as the
// user, preserving the one-settings-per-user invariant from the start.
func CreateUser(ctx context.Context, db *gorm.DB, email, passwordHash string) (*domain.User, error) {
	u := &domain.User{
		Email:    email,
		Password: passwordHash,
		Settings: domain.UserSettings{
			SortBy:         domain.SortByStartTime,
			OnlyShowActive: true,
		},
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser fetches a user by primary key, preloading its settings.
func GetUser(ctx context.Context, db *gorm.DB, id uint) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Preload("Settings").
		First(&u, id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail fetches a user by email, preloading its settings.
func GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Preload("Settings").
		Where("email = ?", email).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUserEmail changes a user's email address. Returns ErrNotFound when
// the user does not exist.
func UpdateUserEmail(ctx context.Context, db *gorm.DB, id uint, email string) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("email", email)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateUserPassword stores a new password hash for the user.
func UpdateUserPassword(ctx context.Context, db *gorm.DB, id uint, passwordHash string) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("password", passwordHash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetSettings fetches the settings row owned by userID.
func GetSettings(ctx context.Context, db *gorm.DB, userID uint) (*domain.UserSettings, error) {
	var s domain.UserSettings
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSortBy persists a new sort key for the user's settings.
func UpdateSortBy(ctx context.Context, db *gorm.DB, userID uint, key domain.SortKey) error {
	res := db.WithContext(ctx).
		Model(&domain.UserSettings{}).
		Where("user_id = ?", userID).
		Update("sort_by", key)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateOnlyShowActive persists the active-only filter flag.
func UpdateOnlyShowActive(ctx context.Context, db *gorm.DB, userID uint, v bool) error {
	res := db.WithContext(ctx).
		Model(&domain.UserSettings{}).
		Where("user_id = ?", userID).
		Update("only_show_active", v)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
