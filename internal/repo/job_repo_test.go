package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/plugtrack/go-plugtrack-backend/internal/domain"
)

func newRepoDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func mkConfig(t *testing.T, db *gorm.DB, name string) *domain.PlugConfig {
	t.Helper()
	c := &domain.PlugConfig{Name: name}
	if err := CreateConfig(context.Background(), db, c); err != nil {
		t.Fatalf("create config: %v", err)
	}
	return c
}

func mkJob(t *testing.T, db *gorm.DB, configID uint, status domain.JobStatus, start time.Time) *domain.PlugJob {
	t.Helper()
	j := &domain.PlugJob{ConfigID: configID, Status: status, StartTime: start}
	if status != domain.StatusStarted {
		end := start.Add(time.Minute)
		dur := 60.0
		j.EndTime, j.Duration = &end, &dur
	}
	if err := CreateJob(context.Background(), db, j); err != nil {
		t.Fatalf("create job: %v", err)
	}
	return j
}

// The terminal transition is one guarded UPDATE: it succeeds once, then the
// row stops matching and further attempts report false without touching it.
func TestFinishJob_GuardedOnce(t *testing.T) {
	db := newRepoDB(t)
	cfg := mkConfig(t, db, "A")
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	j := mkJob(t, db, cfg.ID, domain.StatusStarted, start)

	end1 := start.Add(90 * time.Second)
	done, err := FinishJob(context.Background(), db, j.ID, domain.StatusFinished, end1, 90)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if !done {
		t.Fatalf("first finish reported no-op")
	}

	end2 := start.Add(500 * time.Second)
	done, err = FinishJob(context.Background(), db, j.ID, domain.StatusFailed, end2, 500)
	if err != nil {
		t.Fatalf("second finish: %v", err)
	}
	if done {
		t.Fatalf("second finish must be a no-op")
	}

	got, err := GetJob(context.Background(), db, j.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusFinished || *got.Duration != 90 {
		t.Fatalf("terminal values renegotiated: %q %v", got.Status, *got.Duration)
	}
	if got.Config.Name != "A" {
		t.Fatalf("config not preloaded")
	}

	// Unknown id: same false/no-error contract.
	done, err = FinishJob(context.Background(), db, 9999, domain.StatusFailed, end2, 1)
	if err != nil || done {
		t.Fatalf("finish(unknown) = %v, %v; want false, nil", done, err)
	}
}

// Sorting by name joins plug_configs and orders on the template name
// descending; the page rows still arrive with Config preloaded.
func TestListJobsPage_NameJoin(t *testing.T) {
	db := newRepoDB(t)
	a := mkConfig(t, db, "Alpha")
	z := mkConfig(t, db, "Zulu")
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	mkJob(t, db, a.ID, domain.StatusFinished, base)
	mkJob(t, db, z.ID, domain.StatusFinished, base.Add(time.Minute))
	mkJob(t, db, a.ID, domain.StatusFinished, base.Add(2*time.Minute))

	out, err := ListJobsPage(context.Background(), db, domain.SortByName, false, 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("len = %d; want 3", len(out))
	}
	if out[0].Config.Name != "Zulu" {
		t.Fatalf("first row config = %q; want Zulu (name DESC)", out[0].Config.Name)
	}
	if out[1].Config.Name != "Alpha" || out[2].Config.Name != "Alpha" {
		t.Fatalf("tail rows wrong: %q %q", out[1].Config.Name, out[2].Config.Name)
	}
}

func TestListJobsPage_ActiveFilterAndOffset(t *testing.T) {
	db := newRepoDB(t)
	cfg := mkConfig(t, db, "A")
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		mkJob(t, db, cfg.ID, domain.StatusFinished, base.Add(time.Duration(i)*time.Minute))
	}
	mkJob(t, db, cfg.ID, domain.StatusStarted, base.Add(time.Hour))

	active, err := ListJobsPage(context.Background(), db, domain.SortByID, true, 0, 10)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].Status != domain.StatusStarted {
		t.Fatalf("active filter wrong: %+v", active)
	}

	total, err := CountJobsFiltered(context.Background(), db, true)
	if err != nil || total != 1 {
		t.Fatalf("filtered count = %d, %v; want 1", total, err)
	}
	total, err = CountJobsFiltered(context.Background(), db, false)
	if err != nil || total != 5 {
		t.Fatalf("full count = %d, %v; want 5", total, err)
	}

	// Offset walks id DESC.
	page2, err := ListJobsPage(context.Background(), db, domain.SortByID, false, 2, 2)
	if err != nil {
		t.Fatalf("offset page: %v", err)
	}
	if len(page2) != 2 || page2[0].ID <= page2[1].ID {
		t.Fatalf("offset page ordering wrong: %+v", page2)
	}
}

func TestStatusCounts_ZeroFilled(t *testing.T) {
	db := newRepoDB(t)
	cfg := mkConfig(t, db, "A")
	base := time.Now().Add(-time.Hour)
	mkJob(t, db, cfg.ID, domain.StatusFinished, base)
	mkJob(t, db, cfg.ID, domain.StatusFinished, base)
	mkJob(t, db, cfg.ID, domain.StatusFailed, base)

	counts, err := StatusCounts(context.Background(), db)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts[domain.StatusFinished] != 2 || counts[domain.StatusFailed] != 1 {
		t.Fatalf("counts wrong: %+v", counts)
	}
	// Unrepresented states are present with zero, not absent.
	if v, present := counts[domain.StatusStarted]; !present || v != 0 {
		t.Fatalf("started not zero-filled: %+v", counts)
	}
	if v, present := counts[domain.StatusStopped]; !present || v != 0 {
		t.Fatalf("stopped not zero-filled: %+v", counts)
	}
}

func TestRecentDurations_OrderAndLimit(t *testing.T) {
	db := newRepoDB(t)
	cfg := mkConfig(t, db, "A")
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		mkJob(t, db, cfg.ID, domain.StatusFinished, base.Add(time.Duration(i)*time.Hour))
	}
	// A running job has no duration and must not appear.
	mkJob(t, db, cfg.ID, domain.StatusStarted, base.Add(10*time.Hour))

	points, err := RecentDurations(context.Background(), db, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("len = %d; want 3", len(points))
	}
	for i := 1; i < len(points); i++ {
		if points[i].EndTime.Before(points[i-1].EndTime) {
			t.Fatalf("points not in ascending end-time order")
		}
	}
	// The limit keeps the newest completions, not the oldest.
	oldestKept := base.Add(2 * time.Hour).Add(time.Minute)
	if !points[0].EndTime.Equal(oldestKept) {
		t.Fatalf("window start = %v; want %v (newest 3)", points[0].EndTime, oldestKept)
	}
}

func TestJobsPerConfig_IncludesIdleConfigs(t *testing.T) {
	db := newRepoDB(t)
	a := mkConfig(t, db, "Alpha")
	_ = mkConfig(t, db, "Idle")
	base := time.Now().Add(-time.Hour)
	mkJob(t, db, a.ID, domain.StatusFinished, base)
	mkJob(t, db, a.ID, domain.StatusFailed, base)

	counts, err := JobsPerConfig(context.Background(), db)
	if err != nil {
		t.Fatalf("per config: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("len = %d; want 2 (left join keeps idle configs)", len(counts))
	}
	if counts[0].Name != "Alpha" || counts[0].Jobs != 2 {
		t.Fatalf("alpha row wrong: %+v", counts[0])
	}
	if counts[1].Name != "Idle" || counts[1].Jobs != 0 {
		t.Fatalf("idle row wrong: %+v", counts[1])
	}
}
