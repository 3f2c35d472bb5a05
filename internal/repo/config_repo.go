// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for PlugConfig.
//
// Configs are soft-deleted via the is_removed flag rather than GORM's
// DeletedAt so archived templates stay visible on job detail views.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/plugtrack/go-plugtrack-backend/internal/domain"
)

// CreateConfig inserts a new plug configuration. Unique-name violations
// surface as the raw driver error; services map them to a conflict.
func CreateConfig(ctx context.Context, db *gorm.DB, c *domain.PlugConfig) error {
	return db.WithContext(ctx).Create(c).Error
}

// GetConfig fetches a config by primary key.
func GetConfig(ctx context.Context, db *gorm.DB, id uint) (*domain.PlugConfig, error) {
	var c domain.PlugConfig
	if err := db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetConfigByName fetches a config by its unique name.
func GetConfigByName(ctx context.Context, db *gorm.DB, name string) (*domain.PlugConfig, error) {
	var c domain.PlugConfig
	err := db.WithContext(ctx).
		Where("name = ?", name).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListConfigs returns every config, including archived ones, ordered by name.
// Used by the machine API, which mirrors the full table.
func ListConfigs(ctx context.Context, db *gorm.DB) ([]domain.PlugConfig, error) {
	var out []domain.PlugConfig
	err := db.WithContext(ctx).
		Order("name").
		Find(&out).Error
	return out, err
}

// ListActiveConfigs returns non-archived configs ordered by name.
func ListActiveConfigs(ctx context.Context, db *gorm.DB) ([]domain.PlugConfig, error) {
	var out []domain.PlugConfig
	err := db.WithContext(ctx).
		Where("is_removed = ?", false).
		Order("name").
		Find(&out).Error
	return out, err
}

// CountActiveConfigs returns the number of non-archived configs.
func CountActiveConfigs(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.PlugConfig{}).
		Where("is_removed = ?", false).
		Count(&total).Error
	return total, err
}

// ListActiveConfigsPage returns a page of non-archived configs ordered by
// name. The caller computes offset and limit; out-of-range offsets yield an
// empty slice, not an error.
func ListActiveConfigsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.PlugConfig, error) {
	var out []domain.PlugConfig
	err := db.WithContext(ctx).
		Where("is_removed = ?", false).
		Order("name").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateConfig persists changes to an existing config. It updates the
// editable columns explicitly so zero values (e.g. an offset of 0) are not
// skipped.
func UpdateConfig(ctx context.Context, db *gorm.DB, c *domain.PlugConfig) error {
	res := db.WithContext(ctx).
		Model(&domain.PlugConfig{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{
			"name":              c.Name,
			"cure_profile":      c.CureProfile,
			"horizontal_offset": c.HorizontalOffset,
			"vertical_offset":   c.VerticalOffset,
			"horizontal_gap":    c.HorizontalGap,
			"vertical_gap":      c.VerticalGap,
			"slot_gap":          c.SlotGap,
			"notes":             c.Notes,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ArchiveConfig flips the is_removed flag. Archiving an already archived
// config is a no-op that still reports success.
func ArchiveConfig(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).
		Model(&domain.PlugConfig{}).
		Where("id = ?", id).
		Update("is_removed", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
