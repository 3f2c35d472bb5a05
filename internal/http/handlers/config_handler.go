// Plug configuration HTTP handlers.
//
// This file exposes REST endpoints for the config template catalog:
//   - GET    /configs             (non-archived, paginated)
//   - GET    /configs/all         (everything, including archived)
//   - POST   /configs             (create)
//   - GET    /configs/{id}        (detail)
//   - PUT    /configs/{id}        (edit)
//   - POST   /configs/{id}/copy   (duplicate as "<name> (copy)")
//   - DELETE /configs/{id}        (archive; soft delete)
//
// Configs are never hard-deleted so historic jobs keep their template
// reference; archiving removes them from pickers and listings only.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/plugtrack/go-plugtrack-backend/internal/domain"
	"github.com/plugtrack/go-plugtrack-backend/internal/services"
	"github.com/plugtrack/go-plugtrack-backend/internal/utils"
)

// ConfigRequest is the JSON payload for creating or editing a config.
type ConfigRequest struct {
	// Name must be unique across all configs, archived included.
	Name             string  `json:"name" binding:"required,min=1,max=32"`
	CureProfile      string  `json:"cure_profile" binding:"max=32"`
	HorizontalOffset float64 `json:"horizontal_offset"`
	VerticalOffset   float64 `json:"vertical_offset"`
	HorizontalGap    float64 `json:"horizontal_gap"`
	VerticalGap      float64 `json:"vertical_gap"`
	SlotGap          float64 `json:"slot_gap"`
	Notes            string  `json:"notes" binding:"max=256"`
}

// ListConfigsResponse wraps a page of configs and pagination information.
type ListConfigsResponse struct {
	Configs    []domain.PlugConfig `json:"configs"`
	Pagination Pagination          `json:"pagination"`
}

// ListConfigs returns one page of non-archived configs ordered by name.
func (h *Handlers) ListConfigs(c *gin.Context) {
	page := utils.AtoiDefault(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}

	configs, total, err := h.cfgSvc.ListPage(c.Request.Context(), page)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, ListConfigsResponse{
		Configs:    configs,
		Pagination: paginationFor(page, services.ConfigsPageSize, total),
	})
}

// ListAllConfigs returns every config, archived ones included. Used by the
// job history views, which must resolve templates that are no longer offered.
func (h *Handlers) ListAllConfigs(c *gin.Context) {
	configs, err := h.cfgSvc.ListAll(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"configs": configs})
}

// GetConfig returns a single config, archived or not.
func (h *Handlers) GetConfig(c *gin.Context) {
	id, okID := idParam(c)
	if !okID {
		return
	}
	cfg, err := h.cfgSvc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrConfigNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "config not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, cfg)
}

// CreateConfig persists a new config template.
func (h *Handlers) CreateConfig(c *gin.Context) {
	var req ConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required (1-32 chars)")
		return
	}

	cfg := configFromRequest(&req)
	if err := h.cfgSvc.Create(c.Request.Context(), cfg); err != nil {
		if errors.Is(err, services.ErrDuplicateConfigName) {
			fail(c, http.StatusConflict, ErrCodeConflict, "a config with that name already exists")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusCreated, cfg)
}

// UpdateConfig replaces the editable fields of a non-archived config.
func (h *Handlers) UpdateConfig(c *gin.Context) {
	id, okID := idParam(c)
	if !okID {
		return
	}
	var req ConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required (1-32 chars)")
		return
	}

	cfg := configFromRequest(&req)
	cfg.ID = id
	err := h.cfgSvc.Update(c.Request.Context(), cfg)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrConfigNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "config not found")
		return
	case errors.Is(err, services.ErrConfigArchived):
		fail(c, http.StatusConflict, ErrCodeConfigArchived, "config is archived")
		return
	case errors.Is(err, services.ErrDuplicateConfigName):
		fail(c, http.StatusConflict, ErrCodeConflict, "a config with that name already exists")
		return
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, cfg)
}

// CopyConfig duplicates a config under "<name> (copy)". The copy conflicts
// when a config by that synthesized name already exists.
func (h *Handlers) CopyConfig(c *gin.Context) {
	id, okID := idParam(c)
	if !okID {
		return
	}
	cp, err := h.cfgSvc.Copy(c.Request.Context(), id)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrConfigNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "config not found")
		return
	case errors.Is(err, services.ErrDuplicateConfigName):
		fail(c, http.StatusConflict, ErrCodeConflict, "a copy of this config already exists")
		return
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusCreated, cp)
}

// ArchiveConfig soft-deletes a config. Archiving an archived config is a
// no-op and still succeeds.
func (h *Handlers) ArchiveConfig(c *gin.Context) {
	id, okID := idParam(c)
	if !okID {
		return
	}
	if err := h.cfgSvc.Archive(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrConfigNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "config not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// configFromRequest maps the request payload onto a fresh domain record.
func configFromRequest(req *ConfigRequest) *domain.PlugConfig {
	return &domain.PlugConfig{
		Name:             strings.TrimSpace(req.Name),
		CureProfile:      strings.TrimSpace(req.CureProfile),
		HorizontalOffset: req.HorizontalOffset,
		VerticalOffset:   req.VerticalOffset,
		HorizontalGap:    req.HorizontalGap,
		VerticalGap:      req.VerticalGap,
		SlotGap:          req.SlotGap,
		Notes:            req.Notes,
	}
}
