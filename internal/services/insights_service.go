// Package services – InsightsService
//
// This file implements the InsightsService, which computes the descriptive
// statistics behind the insights page: job counts and rates per lifecycle
// state, and duration aggregates (total, median, mean, sample standard
// deviation, min, max) for the stopped, failed, and finished buckets plus
// the whole population. Durations are reported in minutes. With fewer than
// five jobs overall the service reports Show=false and no statistics, since
// there is not enough data to be worth charting.
package services

import (
	"context"
	"math"
	"sort"

	"gorm.io/gorm"

	"github.com/plugtrack/go-plugtrack-backend/internal/domain"
	"github.com/plugtrack/go-plugtrack-backend/internal/repo"
)

// minJobsForInsights is the smallest population worth aggregating.
const minJobsForInsights = 5

// DurationStats aggregates one bucket's durations, in minutes, rounded to
// two decimals. An empty bucket yields all zeros.
type DurationStats struct {
	Total  float64 `json:"total"`
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Analytics is the insights page payload. When Show is false the remaining
// fields are zero and the page renders a "not enough data" notice instead.
type Analytics struct {
	Show bool `json:"show"`

	StartedJobs  int64 `json:"started_jobs"`
	StoppedJobs  int64 `json:"stopped_jobs"`
	FailedJobs   int64 `json:"failed_jobs"`
	FinishedJobs int64 `json:"finished_jobs"`
	AllJobs      int64 `json:"all_jobs"`

	StartedRate  float64 `json:"started_jobs_rate"`
	StoppedRate  float64 `json:"stopped_jobs_rate"`
	FailedRate   float64 `json:"failed_jobs_rate"`
	FinishedRate float64 `json:"finished_jobs_rate"`

	Stopped  DurationStats `json:"stopped"`
	Failed   DurationStats `json:"failed"`
	Finished DurationStats `json:"finished"`
	All      DurationStats `json:"all"`
}

// InsightsService computes job statistics for the insights page.
type InsightsService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// Compute partitions all jobs by status and aggregates counts, rates, and
// duration statistics. Each job lands in exactly one bucket by its current
// status; duration aggregates only consider jobs whose duration is set.
func (s *InsightsService) Compute(ctx context.Context) (*Analytics, error) {
	counts, err := repo.StatusCounts(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	total := counts[domain.StatusStarted] + counts[domain.StatusStopped] +
		counts[domain.StatusFailed] + counts[domain.StatusFinished]
	if total < minJobsForInsights {
		return &Analytics{Show: false}, nil
	}

	a := &Analytics{
		Show:         true,
		StartedJobs:  counts[domain.StatusStarted],
		StoppedJobs:  counts[domain.StatusStopped],
		FailedJobs:   counts[domain.StatusFailed],
		FinishedJobs: counts[domain.StatusFinished],
		AllJobs:      total,
		StartedRate:  rate(counts[domain.StatusStarted], total),
		StoppedRate:  rate(counts[domain.StatusStopped], total),
		FailedRate:   rate(counts[domain.StatusFailed], total),
		FinishedRate: rate(counts[domain.StatusFinished], total),
	}

	stopped, err := s.durations(ctx, domain.StatusStopped)
	if err != nil {
		return nil, err
	}
	failed, err := s.durations(ctx, domain.StatusFailed)
	if err != nil {
		return nil, err
	}
	finished, err := s.durations(ctx, domain.StatusFinished)
	if err != nil {
		return nil, err
	}

	all := make([]float64, 0, len(stopped)+len(failed)+len(finished))
	all = append(all, stopped...)
	all = append(all, failed...)
	all = append(all, finished...)

	a.Stopped = aggregate(stopped)
	a.Failed = aggregate(failed)
	a.Finished = aggregate(finished)
	a.All = aggregate(all)
	return a, nil
}

// durations collects the non-null durations of one status bucket, converted
// from stored seconds to minutes.
func (s *InsightsService) durations(ctx context.Context, status domain.JobStatus) ([]float64, error) {
	jobs, err := repo.ListJobsByStatus(ctx, s.DB, status)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(jobs))
	for i := range jobs {
		if jobs[i].Duration != nil {
			out = append(out, *jobs[i].Duration/60)
		}
	}
	return out, nil
}

// aggregate computes the duration statistics for one bucket. An empty input
// yields the zero value; a single sample has a standard deviation of zero
// (degenerate case, uniform divide-by-zero-avoidance policy).
func aggregate(vals []float64) DurationStats {
	if len(vals) == 0 {
		return DurationStats{}
	}

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))

	var stdev float64
	if len(sorted) > 1 {
		var ss float64
		for _, v := range sorted {
			d := v - mean
			ss += d * d
		}
		stdev = math.Sqrt(ss / float64(len(sorted)-1)) // sample stdev
	}

	return DurationStats{
		Total:  round2(sum),
		Median: round2(median(sorted)),
		Mean:   round2(mean),
		StdDev: round2(stdev),
		Min:    round2(sorted[0]),
		Max:    round2(sorted[len(sorted)-1]),
	}
}

// median returns the middle value of an already sorted slice, averaging the
// two central values for even lengths.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// rate is the percentage of total that count represents, rounded to two
// decimals.
func rate(count, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(count) / float64(total) * 100)
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
