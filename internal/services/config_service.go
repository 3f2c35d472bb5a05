// Package services – ConfigService
//
// This file implements the ConfigService, which manages plug configuration
// templates: creation, editing, copying, archiving, and listing. Configs are
// soft-deleted (archived); an archived config is excluded from active
// listings and rejects further edits. Names are unique across the whole
// table, archived rows included, so copies synthesize a " (copy)" name and
// surface a conflict when it is already taken.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/plugtrack/go-plugtrack-backend/internal/domain"
	"github.com/plugtrack/go-plugtrack-backend/internal/repo"
)

// ConfigsPageSize is the fixed page size of the config list.
const ConfigsPageSize = 5

// ConfigService provides CRUD and copy/archive operations for plug
// configuration templates.
type ConfigService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// Create inserts a new config. A name collision returns
// ErrDuplicateConfigName.
func (s *ConfigService) Create(ctx context.Context, c *domain.PlugConfig) error {
	c.Name = strings.TrimSpace(c.Name)
	if err := repo.CreateConfig(ctx, s.DB, c); err != nil {
		if isDuplicate(err) {
			return ErrDuplicateConfigName
		}
		return err
	}
	return nil
}

// Get fetches a config by id. Returns ErrConfigNotFound when missing.
func (s *ConfigService) Get(ctx context.Context, id uint) (*domain.PlugConfig, error) {
	c, err := repo.GetConfig(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	return c, nil
}

// Update edits an existing config.
//
// Rules:
//   - Archived configs reject edits with ErrConfigArchived.
//   - A rename that collides with another config's name returns
//     ErrDuplicateConfigName.
func (s *ConfigService) Update(ctx context.Context, c *domain.PlugConfig) error {
	cur, err := s.Get(ctx, c.ID)
	if err != nil {
		return err
	}
	if cur.IsRemoved {
		return ErrConfigArchived
	}
	c.Name = strings.TrimSpace(c.Name)
	if err := repo.UpdateConfig(ctx, s.DB, c); err != nil {
		if isDuplicate(err) {
			return ErrDuplicateConfigName
		}
		if errors.Is(err, repo.ErrNotFound) {
			return ErrConfigNotFound
		}
		return err
	}
	return nil
}

// Copy duplicates a config under the name "<name> (copy)". When that name is
// already taken the operation fails with ErrDuplicateConfigName and creates
// nothing; the existing copy must be renamed first.
func (s *ConfigService) Copy(ctx context.Context, id uint) (*domain.PlugConfig, error) {
	src, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	dup := &domain.PlugConfig{
		Name:             src.Name + " (copy)",
		CureProfile:      src.CureProfile,
		HorizontalOffset: src.HorizontalOffset,
		VerticalOffset:   src.VerticalOffset,
		HorizontalGap:    src.HorizontalGap,
		VerticalGap:      src.VerticalGap,
		SlotGap:          src.SlotGap,
		Notes:            src.Notes,
	}
	if err := repo.CreateConfig(ctx, s.DB, dup); err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicateConfigName
		}
		return nil, err
	}
	return dup, nil
}

// Archive soft-deletes a config. Archived configs disappear from the active
// listing and reject further edits; their jobs keep the reference.
func (s *ConfigService) Archive(ctx context.Context, id uint) error {
	if err := repo.ArchiveConfig(ctx, s.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrConfigNotFound
		}
		return err
	}
	return nil
}

// List returns all non-archived configs ordered by name (for the start-job
// selector).
func (s *ConfigService) List(ctx context.Context) ([]domain.PlugConfig, error) {
	return repo.ListActiveConfigs(ctx, s.DB)
}

// ListAll returns every config including archived ones (machine API mirror).
func (s *ConfigService) ListAll(ctx context.Context) ([]domain.PlugConfig, error) {
	return repo.ListConfigs(ctx, s.DB)
}

// ListPage returns one fixed-size page of non-archived configs plus the
// total count. Pages are 1-indexed; out-of-range pages yield an empty page.
func (s *ConfigService) ListPage(ctx context.Context, page int) ([]domain.PlugConfig, int64, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * ConfigsPageSize

	total, err := repo.CountActiveConfigs(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.PlugConfig{}, 0, nil
	}

	items, err := repo.ListActiveConfigsPage(ctx, s.DB, offset, ConfigsPageSize)
	return items, total, err
}

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
