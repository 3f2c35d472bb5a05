// Machine API HTTP handlers.
//
// These endpoints speak the shop-floor controller protocol. Authentication
// happens upstream in middleware.APIKeyAuth, which pulls the `api_key` field
// out of the JSON request body (the controllers cannot set headers) and
// restores the body for binding here.
//
// The protocol differs from the operator-facing API in two ways:
//   - every response carries a numeric `response` field mirroring the HTTP
//     status, which the controller firmware branches on;
//   - timestamps are epoch seconds, not RFC 3339.
//
// Endpoints:
//   - GET  /api/active   (currently running jobs)
//   - POST /api/active   (terminate a job with an explicit terminal status)
//   - GET  /api/jobs     (full job history)
//   - GET  /api/configs  (full config catalog, archived included)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plugtrack/go-plugtrack-backend/internal/domain"
	"github.com/plugtrack/go-plugtrack-backend/internal/http/middleware"
	"github.com/plugtrack/go-plugtrack-backend/internal/services"
)

//
// Wire shapes
//

// apiConfig is the config shape on the controller protocol.
type apiConfig struct {
	ID               uint    `json:"id"`
	Name             string  `json:"name"`
	CureProfile      string  `json:"cure_profile"`
	HorizontalOffset float64 `json:"horizontal_offset"`
	VerticalOffset   float64 `json:"vertical_offset"`
	HorizontalGap    float64 `json:"horizontal_gap"`
	VerticalGap      float64 `json:"vertical_gap"`
	SlotGap          float64 `json:"slot_gap"`
	Notes            string  `json:"notes"`
	IsRemoved        bool    `json:"is_removed"`
}

// apiJob is the job shape on the controller protocol. Timestamps are epoch
// seconds; end_time and duration are null while the job runs.
type apiJob struct {
	ID        uint      `json:"id"`
	ConfigID  uint      `json:"config_id"`
	Status    string    `json:"status"`
	StartTime *int64    `json:"start_time"`
	EndTime   *int64    `json:"end_time"`
	Duration  *float64  `json:"duration"`
	Notes     string    `json:"notes"`
	Config    apiConfig `json:"config"`
}

// toAPIConfig maps a domain config onto the wire shape.
func toAPIConfig(c *domain.PlugConfig) apiConfig {
	return apiConfig{
		ID:               c.ID,
		Name:             c.Name,
		CureProfile:      c.CureProfile,
		HorizontalOffset: c.HorizontalOffset,
		VerticalOffset:   c.VerticalOffset,
		HorizontalGap:    c.HorizontalGap,
		VerticalGap:      c.VerticalGap,
		SlotGap:          c.SlotGap,
		Notes:            c.Notes,
		IsRemoved:        c.IsRemoved,
	}
}

// toAPIJob maps a domain job onto the wire shape.
func toAPIJob(j *domain.PlugJob) apiJob {
	out := apiJob{
		ID:       j.ID,
		ConfigID: j.ConfigID,
		Status:   string(j.Status),
		Notes:    j.Notes,
		Config:   toAPIConfig(&j.Config),
	}
	if !j.StartTime.IsZero() {
		st := j.StartTime.Unix()
		out.StartTime = &st
	}
	if j.EndTime != nil {
		et := j.EndTime.Unix()
		out.EndTime = &et
	}
	out.Duration = j.Duration
	return out
}

// toAPIJobs maps a job slice onto the wire shape. Always returns a non-nil
// slice so the data field serializes as [] rather than null.
func toAPIJobs(jobs []domain.PlugJob) []apiJob {
	out := make([]apiJob, 0, len(jobs))
	for i := range jobs {
		out = append(out, toAPIJob(&jobs[i]))
	}
	return out
}

//
// Handlers
//

// APIActiveJobs returns the currently running jobs.
func (h *Handlers) APIActiveJobs(c *gin.Context) {
	jobs, err := h.jobSvc.ListActive(c.Request.Context())
	if err != nil {
		apiFail(c, http.StatusInternalServerError, "")
		return
	}
	apiOK(c, gin.H{"data": toAPIJobs(jobs)})
}

// APITerminateRequest is the controller payload for ending a job.
type APITerminateRequest struct {
	ID     uint   `json:"id"`
	Status string `json:"status"`
}

// APITerminate ends the given job with an explicit terminal status. A job id
// that no longer exists is acknowledged with 200 anyway; controllers retry
// aggressively and a repeat of an already-handled termination is not an
// error.
func (h *Handlers) APITerminate(c *gin.Context) {
	var req APITerminateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == 0 || req.Status == "" {
		apiFail(c, http.StatusBadRequest, "id and status required")
		return
	}

	status := domain.JobStatus(req.Status)
	if err := h.jobSvc.Terminate(c.Request.Context(), req.ID, status); err != nil {
		if errors.Is(err, services.ErrInvalidStatus) {
			apiFail(c, http.StatusBadRequest, "status must be stopped, finished, or failed")
			return
		}
		apiFail(c, http.StatusInternalServerError, "")
		return
	}

	middleware.JobCompleted(string(status))
	apiOK(c, nil)
}

// APIJobs returns the full job history in the controller shape.
func (h *Handlers) APIJobs(c *gin.Context) {
	jobs, err := h.jobSvc.List(c.Request.Context())
	if err != nil {
		apiFail(c, http.StatusInternalServerError, "")
		return
	}
	apiOK(c, gin.H{"data": toAPIJobs(jobs)})
}

// APIConfigs returns every config, archived included, in the controller
// shape.
func (h *Handlers) APIConfigs(c *gin.Context) {
	configs, err := h.cfgSvc.ListAll(c.Request.Context())
	if err != nil {
		apiFail(c, http.StatusInternalServerError, "")
		return
	}
	data := make([]apiConfig, 0, len(configs))
	for i := range configs {
		data = append(data, toAPIConfig(&configs[i]))
	}
	apiOK(c, gin.H{"data": data})
}
