// Plug job HTTP handlers.
//
// This file exposes REST endpoints for the job lifecycle and the per-user job
// list preferences:
//   - GET    /jobs                 (list, sorted/filtered/paginated per user settings)
//   - POST   /jobs                 (start)
//   - GET    /jobs/{id}            (detail, config embedded)
//   - POST   /jobs/{id}/stop       (stop the active job)
//   - POST   /jobs/{id}/terminate  (finish/fail/stop with explicit status)
//   - PUT    /jobs/{id}/notes      (edit notes)
//   - POST   /jobs/stop-all        (defensive cleanup)
//   - POST   /settings/sort        (advance the sort cycle one step)
//   - POST   /settings/active-filter (toggle the active-only filter)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate sentinel errors into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/plugtrack/go-plugtrack-backend/internal/domain"
	"github.com/plugtrack/go-plugtrack-backend/internal/http/middleware"
	"github.com/plugtrack/go-plugtrack-backend/internal/services"
	"github.com/plugtrack/go-plugtrack-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// JobService defines the job lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type JobService interface {
	// Start creates a new running job against configID; fails while any job is active.
	Start(ctx context.Context, configID uint) (*domain.PlugJob, error)
	// Stop transitions a running job to stopped, setting end time and duration.
	Stop(ctx context.Context, jobID uint) (*domain.PlugJob, error)
	// StopAll stops every currently running job and returns how many it stopped.
	StopAll(ctx context.Context) (int, error)
	// Terminate moves a job to the given terminal status; unknown ids are a no-op.
	Terminate(ctx context.Context, jobID uint, status domain.JobStatus) error
	// Get fetches a job with its config preloaded.
	Get(ctx context.Context, jobID uint) (*domain.PlugJob, error)
	// UpdateNotes replaces the free-text notes of a job.
	UpdateNotes(ctx context.Context, jobID uint, notes string) error
	// List returns every job, newest first, configs preloaded.
	List(ctx context.Context) ([]domain.PlugJob, error)
	// ListActive returns the currently running jobs.
	ListActive(ctx context.Context) ([]domain.PlugJob, error)
	// ListPage returns one page of jobs under the given sort/filter and the
	// total count after filtering.
	ListPage(ctx context.Context, sort domain.SortKey, activeOnly bool, page int) ([]domain.PlugJob, int64, error)
}

// SettingsService defines the per-user list preference operations.
type SettingsService interface {
	// Get returns the user's current preferences.
	Get(ctx context.Context, userID uint) (*domain.UserSettings, error)
	// AdvanceSort moves the user's sort key one step along the fixed cycle.
	AdvanceSort(ctx context.Context, userID uint) (domain.SortKey, error)
	// ToggleActiveOnly flips the active-only filter and returns the new value.
	ToggleActiveOnly(ctx context.Context, userID uint) (bool, error)
}

// ConfigService defines plug configuration template operations.
type ConfigService interface {
	// Create persists a new config template.
	Create(ctx context.Context, c *domain.PlugConfig) error
	// Get fetches a config by id, archived or not.
	Get(ctx context.Context, id uint) (*domain.PlugConfig, error)
	// Update replaces the editable fields of a non-archived config.
	Update(ctx context.Context, c *domain.PlugConfig) error
	// Copy duplicates a config under "<name> (copy)".
	Copy(ctx context.Context, id uint) (*domain.PlugConfig, error)
	// Archive soft-deletes a config; its jobs keep their reference.
	Archive(ctx context.Context, id uint) error
	// List returns non-archived configs ordered by name.
	List(ctx context.Context) ([]domain.PlugConfig, error)
	// ListAll returns every config including archived ones.
	ListAll(ctx context.Context) ([]domain.PlugConfig, error)
	// ListPage returns one page of non-archived configs and the total count.
	ListPage(ctx context.Context, page int) ([]domain.PlugConfig, int64, error)
}

// AccountService defines operator account operations.
type AccountService interface {
	// Register creates a new account with a hashed password.
	Register(ctx context.Context, email, password string) (*domain.User, error)
	// Authenticate verifies credentials and returns the matching user.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	// Get fetches a user with settings preloaded.
	Get(ctx context.Context, userID uint) (*domain.User, error)
	// UpdateEmail changes the login email.
	UpdateEmail(ctx context.Context, userID uint, email string) error
	// UpdatePassword re-hashes and stores a new password.
	UpdatePassword(ctx context.Context, userID uint, password string) error
	// IssueAPIKey replaces the user's machine API key with a fresh one.
	IssueAPIKey(ctx context.Context, userID uint, name string) (*domain.APIKey, error)
}

// InsightsService defines the analytics aggregation consumed by /insights.
type InsightsService interface {
	// Compute aggregates job counts, rates, and duration statistics.
	Compute(ctx context.Context) (*services.Analytics, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for jobs, configs, accounts, insights,
// and charts. It depends on abstract service interfaces to keep transport
// concerns separate from business logic; the raw *gorm.DB is only used by the
// chart endpoints, which render straight from the stats queries.
type Handlers struct {
	jobSvc  JobService
	cfgSvc  ConfigService
	setSvc  SettingsService
	acctSvc AccountService
	insSvc  InsightsService
	db      *gorm.DB

	sessionSecret []byte
	sessionTTL    time.Duration
}

// New constructs and returns a Handlers instance bound to the given services.
// secret and ttl configure login token minting (see Login).
func New(jobSvc JobService, cfgSvc ConfigService, setSvc SettingsService,
	acctSvc AccountService, insSvc InsightsService, db *gorm.DB,
	secret []byte, ttl time.Duration) *Handlers {
	return &Handlers{
		jobSvc:        jobSvc,
		cfgSvc:        cfgSvc,
		setSvc:        setSvc,
		acctSvc:       acctSvc,
		insSvc:        insSvc,
		db:            db,
		sessionSecret: secret,
		sessionTTL:    ttl,
	}
}

// userID extracts the authenticated user id from the Gin context (set by the
// session middleware), or 0 when the request is unauthenticated.
func userID(c *gin.Context) uint {
	return middleware.UserID(c)
}

// idParam parses the {id} path parameter as an unsigned integer. On failure
// it writes a 400 response and returns ok=false.
func idParam(c *gin.Context) (uint, bool) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || n == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a positive integer")
		return 0, false
	}
	return uint(n), true
}

//
// DTOs
//

// StartJobRequest is the JSON payload for starting a job.
type StartJobRequest struct {
	// ConfigID selects the plug configuration to run.
	ConfigID uint `json:"config_id" binding:"required"`
}

// TerminateJobRequest is the JSON payload for terminating a job with an
// explicit terminal status.
type TerminateJobRequest struct {
	// Status must be one of: stopped, finished, failed.
	Status string `json:"status" binding:"required"`
}

// UpdateNotesRequest is the JSON payload for editing job notes.
type UpdateNotesRequest struct {
	Notes string `json:"notes" binding:"max=256"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListJobsResponse wraps a page of jobs, the preferences that shaped it, and
// pagination information.
type ListJobsResponse struct {
	Jobs           []domain.PlugJob `json:"jobs"`
	Sort           string           `json:"sort"`
	SortLabel      string           `json:"sort_label"`
	OnlyShowActive bool             `json:"only_show_active"`
	Pagination     Pagination       `json:"pagination"`
}

// paginationFor builds the standard pagination block for a 1-based page of
// perPage items out of total.
func paginationFor(page, perPage int, total int64) Pagination {
	pages := utils.PageCount(total, perPage)
	return Pagination{
		Page:       page,
		PageSize:   perPage,
		Total:      total,
		TotalPages: pages,
		HasNext:    page < pages,
	}
}

//
// Handlers
//

// ListJobs returns one page of jobs shaped by the calling user's saved sort
// key and active-only filter. Unauthenticated requests see the defaults:
// sorted by start time, active only.
func (h *Handlers) ListJobs(c *gin.Context) {
	ctx := c.Request.Context()

	sort := domain.SortByStartTime
	activeOnly := true
	if uid := userID(c); uid != 0 {
		if st, err := h.setSvc.Get(ctx, uid); err == nil {
			sort, activeOnly = st.SortBy, st.OnlyShowActive
		}
	}

	page := utils.AtoiDefault(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}

	jobs, total, err := h.jobSvc.ListPage(ctx, sort, activeOnly, page)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	ok(c, http.StatusOK, ListJobsResponse{
		Jobs:           jobs,
		Sort:           string(sort),
		SortLabel:      services.SortLabel(sort),
		OnlyShowActive: activeOnly,
		Pagination:     paginationFor(page, services.JobsPageSize, total),
	})
}

// GetJob returns a single job with its config embedded.
func (h *Handlers) GetJob(c *gin.Context) {
	id, okID := idParam(c)
	if !okID {
		return
	}
	j, err := h.jobSvc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrJobNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "job not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, j)
}

// StartJob starts a new job against the requested config. At most one job may
// run system-wide; a second start is rejected with 409.
func (h *Handlers) StartJob(c *gin.Context) {
	var req StartJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "config_id required")
		return
	}

	j, err := h.jobSvc.Start(c.Request.Context(), req.ConfigID)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrActiveJobExists):
		fail(c, http.StatusConflict, ErrCodeJobActive, "another job is already running")
		return
	case errors.Is(err, services.ErrConfigNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "config not found")
		return
	case errors.Is(err, services.ErrConfigArchived):
		fail(c, http.StatusConflict, ErrCodeConfigArchived, "config is archived")
		return
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	middleware.JobStarted()
	lg := middleware.LoggerFrom(c)
	lg.Info().Uint("job_id", j.ID).Uint("config_id", j.ConfigID).Msg("job started")
	ok(c, http.StatusCreated, j)
}

// StopJob stops the given running job, freezing end time and duration.
func (h *Handlers) StopJob(c *gin.Context) {
	id, okID := idParam(c)
	if !okID {
		return
	}

	j, err := h.jobSvc.Stop(c.Request.Context(), id)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrJobNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "job not found")
		return
	case errors.Is(err, services.ErrJobNotActive):
		fail(c, http.StatusConflict, ErrCodeInvalidState, "job is not running")
		return
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	middleware.JobCompleted(string(domain.StatusStopped))
	ok(c, http.StatusOK, j)
}

// StopAllJobs stops every running job. Under the exclusivity invariant at
// most one exists, but the operation tolerates more.
func (h *Handlers) StopAllJobs(c *gin.Context) {
	n, err := h.jobSvc.StopAll(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	for i := 0; i < n; i++ {
		middleware.JobCompleted(string(domain.StatusStopped))
	}
	ok(c, http.StatusOK, gin.H{"stopped": n})
}

// TerminateJob moves a job to an explicit terminal status. Unknown job ids
// are treated as already handled and still return 200.
func (h *Handlers) TerminateJob(c *gin.Context) {
	id, okID := idParam(c)
	if !okID {
		return
	}
	var req TerminateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status required")
		return
	}

	status := domain.JobStatus(req.Status)
	if err := h.jobSvc.Terminate(c.Request.Context(), id, status); err != nil {
		if errors.Is(err, services.ErrInvalidStatus) {
			fail(c, http.StatusBadRequest, ErrCodeInvalidArgument, "status must be stopped, finished, or failed")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	middleware.JobCompleted(string(status))
	ok(c, http.StatusOK, gin.H{"id": id, "status": status})
}

// UpdateJobNotes replaces the notes of a job.
func (h *Handlers) UpdateJobNotes(c *gin.Context) {
	id, okID := idParam(c)
	if !okID {
		return
	}
	var req UpdateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "notes must be at most 256 chars")
		return
	}

	if err := h.jobSvc.UpdateNotes(c.Request.Context(), id, req.Notes); err != nil {
		if errors.Is(err, services.ErrJobNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "job not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// AdvanceSort moves the calling user's sort key one step along the fixed
// cycle and returns the new key.
func (h *Handlers) AdvanceSort(c *gin.Context) {
	uid := userID(c)
	if uid == 0 {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "login required")
		return
	}
	key, err := h.setSvc.AdvanceSort(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"sort": key, "sort_label": services.SortLabel(key)})
}

// ToggleActiveFilter flips the calling user's active-only filter.
func (h *Handlers) ToggleActiveFilter(c *gin.Context) {
	uid := userID(c)
	if uid == 0 {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "login required")
		return
	}
	v, err := h.setSvc.ToggleActiveOnly(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"only_show_active": v})
}
