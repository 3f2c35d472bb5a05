package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/plugtrack/go-plugtrack-backend/internal/domain"
	"github.com/plugtrack/go-plugtrack-backend/internal/repo"
	"github.com/plugtrack/go-plugtrack-backend/internal/services"
)

// ---------- test DB + router ----------

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// newTestRouter wires real services over db onto a bare engine. Identity is
// injected into the context from an X-User-ID test header, standing in for
// the session middleware, which is covered in the middleware package.
func newTestRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := New(
		&services.JobService{DB: db},
		&services.ConfigService{DB: db},
		&services.SettingsService{DB: db},
		&services.AccountService{DB: db},
		&services.InsightsService{DB: db},
		db,
		[]byte("test-secret"), time.Hour,
	)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if v := c.GetHeader("X-User-ID"); v != "" {
			if n, err := strconv.ParseUint(v, 10, 32); err == nil {
				c.Set("userID", uint(n))
			}
		}
		c.Next()
	})
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.GET("/jobs", h.ListJobs)
	r.POST("/jobs", h.StartJob)
	r.POST("/jobs/stop-all", h.StopAllJobs)
	r.GET("/jobs/:id", h.GetJob)
	r.POST("/jobs/:id/stop", h.StopJob)
	r.POST("/jobs/:id/terminate", h.TerminateJob)
	r.PUT("/jobs/:id/notes", h.UpdateJobNotes)
	r.POST("/settings/sort", h.AdvanceSort)
	r.POST("/settings/active-filter", h.ToggleActiveFilter)
	r.GET("/configs", h.ListConfigs)
	r.POST("/configs", h.CreateConfig)
	r.GET("/configs/:id", h.GetConfig)
	r.PUT("/configs/:id", h.UpdateConfig)
	r.POST("/configs/:id/copy", h.CopyConfig)
	r.DELETE("/configs/:id", h.ArchiveConfig)
	r.GET("/insights", h.GetInsights)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, payload any, userID uint) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewBuffer(b)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("X-User-ID", strconv.FormatUint(uint64(userID), 10))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func seedHandlerConfig(t *testing.T, db *gorm.DB, name string) *domain.PlugConfig {
	t.Helper()
	c := &domain.PlugConfig{Name: name}
	if err := repo.CreateConfig(context.Background(), db, c); err != nil {
		t.Fatalf("seed config: %v", err)
	}
	return c
}

func seedHandlerUser(t *testing.T, db *gorm.DB) *domain.User {
	t.Helper()
	svc := &services.AccountService{DB: db}
	u, err := svc.Register(context.Background(), "op@email.com", "password1")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// ---------- jobs ----------

func TestStartJob_LifecycleOverHTTP(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db)
	cfg := seedHandlerConfig(t, db, "A")

	// Start.
	w := doJSON(t, r, "POST", "/jobs", gin.H{"config_id": cfg.ID}, 0)
	if w.Code != http.StatusCreated {
		t.Fatalf("start status = %d; body = %s", w.Code, w.Body.String())
	}
	started := decode(t, w)
	if started["status"] != "started" {
		t.Fatalf("status = %v", started["status"])
	}
	jobID := uint(started["id"].(float64))

	// Second start conflicts with a stable code.
	w = doJSON(t, r, "POST", "/jobs", gin.H{"config_id": cfg.ID}, 0)
	if w.Code != http.StatusConflict {
		t.Fatalf("conflict status = %d", w.Code)
	}
	if decode(t, w)["code"] != ErrCodeJobActive {
		t.Fatalf("conflict code = %v", decode(t, w)["code"])
	}

	// Stop freezes duration.
	w = doJSON(t, r, "POST", fmt.Sprintf("/jobs/%d/stop", jobID), nil, 0)
	if w.Code != http.StatusOK {
		t.Fatalf("stop status = %d; body = %s", w.Code, w.Body.String())
	}
	stopped := decode(t, w)
	if stopped["status"] != "stopped" || stopped["end_time"] == nil || stopped["duration"] == nil {
		t.Fatalf("stop payload incomplete: %v", stopped)
	}

	// Stopping again is an invalid-state conflict.
	w = doJSON(t, r, "POST", fmt.Sprintf("/jobs/%d/stop", jobID), nil, 0)
	if w.Code != http.StatusConflict || decode(t, w)["code"] != ErrCodeInvalidState {
		t.Fatalf("re-stop: status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestStartJob_BadRequests(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db)

	w := doJSON(t, r, "POST", "/jobs", gin.H{}, 0)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing config_id: status = %d", w.Code)
	}
	w = doJSON(t, r, "POST", "/jobs", gin.H{"config_id": 999}, 0)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown config: status = %d", w.Code)
	}
}

func TestTerminateJob_OverHTTP(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db)
	cfg := seedHandlerConfig(t, db, "A")

	w := doJSON(t, r, "POST", "/jobs", gin.H{"config_id": cfg.ID}, 0)
	jobID := uint(decode(t, w)["id"].(float64))

	// Unsupported status.
	w = doJSON(t, r, "POST", fmt.Sprintf("/jobs/%d/terminate", jobID), gin.H{"status": "paused"}, 0)
	if w.Code != http.StatusBadRequest || decode(t, w)["code"] != ErrCodeInvalidArgument {
		t.Fatalf("bad status: status=%d body=%s", w.Code, w.Body.String())
	}

	// Fail the job.
	w = doJSON(t, r, "POST", fmt.Sprintf("/jobs/%d/terminate", jobID), gin.H{"status": "failed"}, 0)
	if w.Code != http.StatusOK {
		t.Fatalf("terminate: status=%d body=%s", w.Code, w.Body.String())
	}

	// Unknown job id still succeeds (controller retries).
	w = doJSON(t, r, "POST", "/jobs/424242/terminate", gin.H{"status": "failed"}, 0)
	if w.Code != http.StatusOK {
		t.Fatalf("terminate unknown: status=%d", w.Code)
	}
}

func TestUpdateJobNotes_OverHTTP(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db)
	cfg := seedHandlerConfig(t, db, "A")

	w := doJSON(t, r, "POST", "/jobs", gin.H{"config_id": cfg.ID}, 0)
	jobID := uint(decode(t, w)["id"].(float64))

	w = doJSON(t, r, "PUT", fmt.Sprintf("/jobs/%d/notes", jobID), gin.H{"notes": "ok"}, 0)
	if w.Code != http.StatusNoContent {
		t.Fatalf("notes: status=%d", w.Code)
	}
	w = doJSON(t, r, "PUT", "/jobs/999/notes", gin.H{"notes": "x"}, 0)
	if w.Code != http.StatusNotFound {
		t.Fatalf("notes unknown: status=%d", w.Code)
	}
	w = doJSON(t, r, "PUT", "/jobs/abc/notes", gin.H{"notes": "x"}, 0)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("notes bad id: status=%d", w.Code)
	}
}

// The list honors the caller's saved preferences and reports them in the
// payload alongside pagination metadata.
func TestListJobs_UsesUserPreferences(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db)
	cfg := seedHandlerConfig(t, db, "A")
	u := seedHandlerUser(t, db)

	// 11 completed + 1 running.
	base := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	for i := 0; i < 11; i++ {
		start := base.Add(time.Duration(i) * time.Minute)
		end := start.Add(time.Minute)
		dur := 60.0
		j := &domain.PlugJob{ConfigID: cfg.ID, Status: domain.StatusFinished, StartTime: start, EndTime: &end, Duration: &dur}
		if err := repo.CreateJob(context.Background(), db, j); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	doJSON(t, r, "POST", "/jobs", gin.H{"config_id": cfg.ID}, 0)

	// Default prefs: active-only → one row.
	w := doJSON(t, r, "GET", "/jobs", nil, u.ID)
	if w.Code != http.StatusOK {
		t.Fatalf("list: status=%d", w.Code)
	}
	body := decode(t, w)
	if body["only_show_active"] != true || body["sort"] != "start_time" || body["sort_label"] != "Start Time" {
		t.Fatalf("prefs in payload wrong: %v", body)
	}
	if n := len(body["jobs"].([]any)); n != 1 {
		t.Fatalf("active-only rows = %d; want 1", n)
	}

	// Toggle the filter: now everything, paged at 10.
	if w := doJSON(t, r, "POST", "/settings/active-filter", nil, u.ID); w.Code != http.StatusOK {
		t.Fatalf("toggle: status=%d", w.Code)
	}
	w = doJSON(t, r, "GET", "/jobs", nil, u.ID)
	body = decode(t, w)
	if n := len(body["jobs"].([]any)); n != services.JobsPageSize {
		t.Fatalf("page rows = %d; want %d", n, services.JobsPageSize)
	}
	pg := body["pagination"].(map[string]any)
	if pg["total"] != float64(12) || pg["total_pages"] != float64(2) || pg["has_next"] != true {
		t.Fatalf("pagination wrong: %v", pg)
	}

	w = doJSON(t, r, "GET", "/jobs?page=2", nil, u.ID)
	body = decode(t, w)
	if n := len(body["jobs"].([]any)); n != 2 {
		t.Fatalf("page 2 rows = %d; want 2", n)
	}
}

func TestAdvanceSort_OverHTTP(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db)
	u := seedHandlerUser(t, db)

	w := doJSON(t, r, "POST", "/settings/sort", nil, u.ID)
	if w.Code != http.StatusOK {
		t.Fatalf("advance: status=%d", w.Code)
	}
	body := decode(t, w)
	if body["sort"] != "end_time" || body["sort_label"] != "End Time" {
		t.Fatalf("advance payload wrong: %v", body)
	}

	// Identity is required for preference mutations.
	w = doJSON(t, r, "POST", "/settings/sort", nil, 0)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous advance: status=%d", w.Code)
	}
}

// ---------- configs over HTTP ----------

func TestConfigCRUD_OverHTTP(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db)

	// Create.
	w := doJSON(t, r, "POST", "/configs", gin.H{
		"name": "4-Pin Plug", "cure_profile": "0101",
		"horizontal_offset": 1.2, "slot_gap": 0.4,
	}, 0)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status=%d body=%s", w.Code, w.Body.String())
	}
	id := uint(decode(t, w)["id"].(float64))

	// Duplicate name.
	w = doJSON(t, r, "POST", "/configs", gin.H{"name": "4-Pin Plug"}, 0)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate: status=%d", w.Code)
	}

	// Copy.
	w = doJSON(t, r, "POST", fmt.Sprintf("/configs/%d/copy", id), nil, 0)
	if w.Code != http.StatusCreated {
		t.Fatalf("copy: status=%d", w.Code)
	}
	if decode(t, w)["name"] != "4-Pin Plug (copy)" {
		t.Fatalf("copy name = %v", decode(t, w)["name"])
	}

	// Copy again conflicts.
	w = doJSON(t, r, "POST", fmt.Sprintf("/configs/%d/copy", id), nil, 0)
	if w.Code != http.StatusConflict {
		t.Fatalf("second copy: status=%d", w.Code)
	}

	// Archive, then edits are rejected.
	w = doJSON(t, r, "DELETE", fmt.Sprintf("/configs/%d", id), nil, 0)
	if w.Code != http.StatusNoContent {
		t.Fatalf("archive: status=%d", w.Code)
	}
	w = doJSON(t, r, "PUT", fmt.Sprintf("/configs/%d", id), gin.H{"name": "renamed"}, 0)
	if w.Code != http.StatusConflict || decode(t, w)["code"] != ErrCodeConfigArchived {
		t.Fatalf("edit archived: status=%d body=%s", w.Code, w.Body.String())
	}

	// Paginated listing shows only the live copy.
	w = doJSON(t, r, "GET", "/configs", nil, 0)
	body := decode(t, w)
	if n := len(body["configs"].([]any)); n != 1 {
		t.Fatalf("live configs = %d; want 1", n)
	}
}

// ---------- insights over HTTP ----------

func TestInsights_OverHTTP(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db)
	cfg := seedHandlerConfig(t, db, "A")

	w := doJSON(t, r, "GET", "/insights", nil, 0)
	if w.Code != http.StatusOK {
		t.Fatalf("insights: status=%d", w.Code)
	}
	if decode(t, w)["show"] != false {
		t.Fatalf("empty database must hide insights")
	}

	base := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		start := base.Add(time.Duration(i) * time.Minute)
		end := start.Add(2 * time.Minute)
		dur := 120.0
		j := &domain.PlugJob{ConfigID: cfg.ID, Status: domain.StatusFinished, StartTime: start, EndTime: &end, Duration: &dur}
		if err := repo.CreateJob(context.Background(), db, j); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	w = doJSON(t, r, "GET", "/insights", nil, 0)
	body := decode(t, w)
	if body["show"] != true || body["finished_jobs"] != float64(6) {
		t.Fatalf("insights payload wrong: %v", body)
	}
	fin := body["finished"].(map[string]any)
	if fin["mean"] != float64(2) {
		t.Fatalf("mean = %v; want 2 (minutes)", fin["mean"])
	}
}

// ---------- auth over HTTP ----------

func TestRegisterAndLogin_OverHTTP(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db)

	w := doJSON(t, r, "POST", "/auth/register", gin.H{"email": "op@email.com", "password": "password1"}, 0)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: status=%d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, "POST", "/auth/login", gin.H{"email": "op@email.com", "password": "password1"}, 0)
	if w.Code != http.StatusOK {
		t.Fatalf("login: status=%d body=%s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["token"] == nil || body["token"] == "" {
		t.Fatalf("no token issued: %v", body)
	}

	w = doJSON(t, r, "POST", "/auth/login", gin.H{"email": "op@email.com", "password": "wrong"}, 0)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: status=%d", w.Code)
	}
}
