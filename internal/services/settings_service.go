// Package services – SettingsService
//
// This file implements the SettingsService, which mutates a user's job list
// preferences: advancing the sort key one step around the fixed ring and
// toggling the active-only filter. The ring order itself lives on
// domain.SortKey so it has exactly one home.
package services

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/plugtrack/go-plugtrack-backend/internal/domain"
	"github.com/plugtrack/go-plugtrack-backend/internal/repo"
)

// SettingsService mutates per-user display preferences.
type SettingsService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// Get returns the settings row for userID.
func (s *SettingsService) Get(ctx context.Context, userID uint) (*domain.UserSettings, error) {
	st, err := repo.GetSettings(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return st, nil
}

// AdvanceSort moves the user's sort key to its successor in the ring
// (id → name → status → start_time → end_time → duration → id) and persists
// it. Returns the new key.
func (s *SettingsService) AdvanceSort(ctx context.Context, userID uint) (domain.SortKey, error) {
	st, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	next := st.SortBy.Next()
	if err := repo.UpdateSortBy(ctx, s.DB, userID, next); err != nil {
		return "", err
	}
	return next, nil
}

// ToggleActiveOnly flips the active-only filter and persists it. Returns the
// new value.
func (s *SettingsService) ToggleActiveOnly(ctx context.Context, userID uint) (bool, error) {
	st, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	next := !st.OnlyShowActive
	if err := repo.UpdateOnlyShowActive(ctx, s.DB, userID, next); err != nil {
		return false, err
	}
	return next, nil
}

// sortLabelCaser capitalizes each word of the sort key label.
var sortLabelCaser = cases.Title(language.English)

// SortLabel renders a sort key for display: underscores become spaces and
// each word is capitalized ("start_time" → "Start Time").
func SortLabel(k domain.SortKey) string {
	return sortLabelCaser.String(strings.ReplaceAll(string(k), "_", " "))
}
