// Package services – JobService
//
// This file implements the JobService, which owns the plug job lifecycle:
// starting a job against a config, the terminal transitions (stop, finish,
// fail), and the sorted/filtered/paginated job listing. The "one active job"
// rule models a physical machine that can only run one job at a time; it is
// enforced inside a transaction at the transition boundary so two concurrent
// start requests cannot both succeed.
//
// Service-level errors (e.g. ErrActiveJobExists, ErrJobNotActive) are returned
// for predictable cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/plugtrack/go-plugtrack-backend/internal/domain"
	"github.com/plugtrack/go-plugtrack-backend/internal/repo"
)

// JobsPageSize is the fixed page size of the job list.
const JobsPageSize = 10

// JobService implements the use-cases around plug jobs. It is context-aware
// and opens its own transaction where a check and a write must be atomic.
type JobService struct {
	// DB is the database handle used for all job operations.
	DB *gorm.DB

	// Now returns the current time; overridable in tests. Defaults to
	// time.Now when nil.
	Now func() time.Time
}

// now returns the service clock reading.
func (s *JobService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Start creates a new job against configID with status started.
//
// Semantics and validation:
//   - The config must exist (ErrConfigNotFound) and not be archived
//     (ErrConfigArchived).
//   - No other job may be in the started state anywhere in the system;
//     otherwise ErrActiveJobExists and no row is created.
//
// The active-job check and the insert run in one transaction so concurrent
// starts serialize against the store instead of racing.
func (s *JobService) Start(ctx context.Context, configID uint) (*domain.PlugJob, error) {
	var job *domain.PlugJob
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cfg, err := repo.GetConfig(ctx, tx, configID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrConfigNotFound
			}
			return err
		}
		if cfg.IsRemoved {
			return ErrConfigArchived
		}

		active, err := repo.CountActiveJobs(ctx, tx)
		if err != nil {
			return err
		}
		if active > 0 {
			return ErrActiveJobExists
		}

		job = &domain.PlugJob{
			ConfigID:  configID,
			Status:    domain.StatusStarted,
			StartTime: s.now(),
			Config:    *cfg,
		}
		return repo.CreateJob(ctx, tx, job)
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Stop transitions jobID from started to stopped, setting end time and
// duration (seconds) exactly once.
//
// Errors:
//   - ErrJobNotFound when the job does not exist.
//   - ErrJobNotActive when the job already reached a terminal state.
func (s *JobService) Stop(ctx context.Context, jobID uint) (*domain.PlugJob, error) {
	if err := s.finish(ctx, jobID, domain.StatusStopped, true); err != nil {
		return nil, err
	}
	return s.Get(ctx, jobID)
}

// StopAll stops every currently active job. The exclusivity invariant means
// at most one normally exists, but the operation tolerates more and stops
// them all. Returns the number of jobs stopped.
func (s *JobService) StopAll(ctx context.Context) (int, error) {
	active, err := repo.ListActiveJobs(ctx, s.DB)
	if err != nil {
		return 0, err
	}
	stopped := 0
	for i := range active {
		if err := s.finish(ctx, active[i].ID, domain.StatusStopped, true); err != nil {
			// A job that raced to terminal between the list and the
			// update is already done; anything else is a real error.
			if errors.Is(err, ErrJobNotActive) {
				continue
			}
			return stopped, err
		}
		stopped++
	}
	return stopped, nil
}

// Terminate moves jobID into the given terminal status, performing the same
// end-time/duration computation as Stop. It is used by the machine API and
// is idempotent-safe: a job that does not exist, or that already reached a
// terminal state, is silently ignored because external controllers retry.
//
// ErrInvalidStatus is returned for any status outside
// {stopped, finished, failed}.
func (s *JobService) Terminate(ctx context.Context, jobID uint, status domain.JobStatus) error {
	if !status.Terminal() {
		return ErrInvalidStatus
	}
	return s.finish(ctx, jobID, status, false)
}

// finish performs the guarded terminal transition. When strict is true,
// missing and already-terminal jobs surface as errors; otherwise both are
// no-ops.
func (s *JobService) finish(ctx context.Context, jobID uint, status domain.JobStatus, strict bool) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		j, err := repo.GetJob(ctx, tx, jobID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				if strict {
					return ErrJobNotFound
				}
				return nil
			}
			return err
		}

		end := s.now()
		dur := end.Sub(j.StartTime).Seconds()
		done, err := repo.FinishJob(ctx, tx, jobID, status, end, dur)
		if err != nil {
			return err
		}
		if !done && strict {
			return ErrJobNotActive
		}
		return nil
	})
}

// Get fetches a single job with its config. Returns ErrJobNotFound when the
// id is unknown.
func (s *JobService) Get(ctx context.Context, jobID uint) (*domain.PlugJob, error) {
	j, err := repo.GetJob(ctx, s.DB, jobID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return j, nil
}

// UpdateNotes replaces the free-text notes on a job.
func (s *JobService) UpdateNotes(ctx context.Context, jobID uint, notes string) error {
	if err := repo.UpdateJobNotes(ctx, s.DB, jobID, notes); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrJobNotFound
		}
		return err
	}
	return nil
}

// List returns every job with its config (machine API mirror).
func (s *JobService) List(ctx context.Context) ([]domain.PlugJob, error) {
	return repo.ListJobs(ctx, s.DB)
}

// ListActive returns the currently running jobs (machine API mirror).
func (s *JobService) ListActive(ctx context.Context) ([]domain.PlugJob, error) {
	return repo.ListActiveJobs(ctx, s.DB)
}

// ListPage returns one fixed-size page of jobs under the given sort key and
// active-only filter, plus the total matching count. Pages are 1-indexed;
// out-of-range pages yield an empty page, not an error. Unknown sort keys
// fall back to start_time.
func (s *JobService) ListPage(ctx context.Context, sort domain.SortKey, activeOnly bool, page int) ([]domain.PlugJob, int64, error) {
	if page < 1 {
		page = 1
	}
	if !sort.Valid() {
		sort = domain.SortByStartTime
	}
	offset := (page - 1) * JobsPageSize

	total, err := repo.CountJobsFiltered(ctx, s.DB, activeOnly)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.PlugJob{}, 0, nil
	}

	items, err := repo.ListJobsPage(ctx, s.DB, sort, activeOnly, offset, JobsPageSize)
	return items, total, err
}
