// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for PlugJob.
//
// Jobs always load with their config preloaded: every consumer (job list,
// detail view, machine API) renders the template name alongside the job.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/plugtrack/go-plugtrack-backend/internal/domain"
)

// CreateJob inserts a new job row. Callers set StartTime and Status.
func CreateJob(ctx context.Context, db *gorm.DB, j *domain.PlugJob) error {
	return db.WithContext(ctx).Create(j).Error
}

// GetJob fetches a job by primary key with its config.
func GetJob(ctx context.Context, db *gorm.DB, id uint) (*domain.PlugJob, error) {
	var j domain.PlugJob
	err := db.WithContext(ctx).
		Preload("Config").
		First(&j, id).Error
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// ListJobs returns every job with its config, newest id first.
func ListJobs(ctx context.Context, db *gorm.DB) ([]domain.PlugJob, error) {
	var out []domain.PlugJob
	err := db.WithContext(ctx).
		Preload("Config").
		Order("id desc").
		Find(&out).Error
	return out, err
}

// ListActiveJobs returns jobs still in the started state. The exclusivity
// rule means this is normally zero or one row, but the query does not assume
// that.
func ListActiveJobs(ctx context.Context, db *gorm.DB) ([]domain.PlugJob, error) {
	var out []domain.PlugJob
	err := db.WithContext(ctx).
		Preload("Config").
		Where("status = ?", domain.StatusStarted).
		Find(&out).Error
	return out, err
}

// CountActiveJobs returns the number of jobs in the started state.
func CountActiveJobs(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.PlugJob{}).
		Where("status = ?", domain.StatusStarted).
		Count(&total).Error
	return total, err
}

// CountJobs returns the total number of jobs.
func CountJobs(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.PlugJob{}).
		Count(&total).Error
	return total, err
}

// ListJobsByStatus returns all jobs in the given state with their config.
func ListJobsByStatus(ctx context.Context, db *gorm.DB, status domain.JobStatus) ([]domain.PlugJob, error) {
	var out []domain.PlugJob
	err := db.WithContext(ctx).
		Preload("Config").
		Where("status = ?", status).
		Find(&out).Error
	return out, err
}

// ListJobsPage returns one page of jobs ordered by the given sort key,
// optionally restricted to active jobs. The name key joins plug_configs for
// its ordering column; other keys order on plug_jobs directly.
func ListJobsPage(ctx context.Context, db *gorm.DB, sort domain.SortKey, activeOnly bool, offset, limit int) ([]domain.PlugJob, error) {
	q := db.WithContext(ctx).
		Model(&domain.PlugJob{}).
		Preload("Config")
	if sort.NeedsConfigJoin() {
		q = q.Joins("JOIN plug_configs ON plug_configs.id = plug_jobs.config_id")
	}
	if activeOnly {
		q = q.Where("plug_jobs.status = ?", domain.StatusStarted)
	}
	var out []domain.PlugJob
	err := q.Order(sort.OrderClause()).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountJobsFiltered returns the job count under the active-only filter,
// for pagination metadata alongside ListJobsPage.
func CountJobsFiltered(ctx context.Context, db *gorm.DB, activeOnly bool) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.PlugJob{})
	if activeOnly {
		q = q.Where("status = ?", domain.StatusStarted)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}

// UpdateJobNotes replaces the free-text notes on a job.
func UpdateJobNotes(ctx context.Context, db *gorm.DB, id uint, notes string) error {
	res := db.WithContext(ctx).
		Model(&domain.PlugJob{}).
		Where("id = ?", id).
		Update("notes", notes)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FinishJob performs the terminal transition in a single guarded UPDATE:
// status, end_time, and duration change together, and only while the row is
// still in the started state. RowsAffected==0 means the job was missing or
// already terminal; callers decide which of those they care about.
func FinishJob(ctx context.Context, db *gorm.DB, id uint, status domain.JobStatus, endTime time.Time, durationSeconds float64) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.PlugJob{}).
		Where("id = ? AND status = ?", id, domain.StatusStarted).
		Updates(map[string]any{
			"status":   status,
			"end_time": endTime,
			"duration": durationSeconds,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
