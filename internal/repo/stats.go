// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries that feed the
// insights page and the chart endpoints. Each function is context-aware and
// safe to call from services or handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/plugtrack/go-plugtrack-backend/internal/domain"
)

// StatusCounts returns the number of jobs in each lifecycle state. States
// with no jobs are present with a zero count.
func StatusCounts(ctx context.Context, db *gorm.DB) (map[domain.JobStatus]int64, error) {
	var rows []struct {
		Status domain.JobStatus
		N      int64
	}
	err := db.WithContext(ctx).
		Model(&domain.PlugJob{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := map[domain.JobStatus]int64{
		domain.StatusStarted:  0,
		domain.StatusStopped:  0,
		domain.StatusFinished: 0,
		domain.StatusFailed:   0,
	}
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}

// DurationPoint is one completed job's contribution to the duration bar
// chart: when it ended, how long it ran (seconds), and in which state it
// ended.
type DurationPoint struct {
	EndTime  time.Time
	Duration float64
	Status   domain.JobStatus
}

// RecentDurations returns the most recently completed jobs (duration set),
// at most limit of them, ordered by end time ascending so the chart reads
// left to right.
func RecentDurations(ctx context.Context, db *gorm.DB, limit int) ([]DurationPoint, error) {
	var out []DurationPoint
	err := db.WithContext(ctx).
		Model(&domain.PlugJob{}).
		Select("end_time, duration, status").
		Where("duration IS NOT NULL").
		Order("end_time DESC").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// ConfigJobCount pairs a config name with how many jobs ran against it.
type ConfigJobCount struct {
	Name string
	Jobs int64
}

// JobsPerConfig returns job counts per config, including configs that never
// ran a job, ordered by config name.
func JobsPerConfig(ctx context.Context, db *gorm.DB) ([]ConfigJobCount, error) {
	var out []ConfigJobCount
	err := db.WithContext(ctx).
		Model(&domain.PlugConfig{}).
		Select("plug_configs.name AS name, COUNT(plug_jobs.id) AS jobs").
		Joins("LEFT JOIN plug_jobs ON plug_jobs.config_id = plug_configs.id").
		Group("plug_configs.id").
		Order("plug_configs.name").
		Scan(&out).Error
	return out, err
}
