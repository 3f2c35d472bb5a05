// Chart HTTP handlers.
//
// These endpoints render PNG charts straight from the stats queries:
//   - GET /charts/durations.png  (bar chart of the last 50 completed jobs)
//   - GET /charts/status.png     (pie chart of jobs by status)
//   - GET /charts/configs.png    (pie chart of jobs per configuration)
//
// Rendering is cheap enough to do per request; responses are marked
// non-cacheable so the dashboard always reflects current data. An empty
// dataset yields 404 rather than a blank image.
package handlers

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plugtrack/go-plugtrack-backend/internal/charts"
	"github.com/plugtrack/go-plugtrack-backend/internal/repo"
)

// durationChartJobs caps how many completed jobs the duration chart shows.
const durationChartJobs = 50

// DurationChart renders the bar chart of recent completed job durations,
// colored by terminal status.
func (h *Handlers) DurationChart(c *gin.Context) {
	points, err := repo.RecentDurations(c.Request.Context(), h.db, durationChartJobs)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	h.renderPNG(c, func(buf *bytes.Buffer) error {
		return charts.Durations(buf, points)
	})
}

// StatusChart renders the pie chart of jobs by status.
func (h *Handlers) StatusChart(c *gin.Context) {
	counts, err := repo.StatusCounts(c.Request.Context(), h.db)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	h.renderPNG(c, func(buf *bytes.Buffer) error {
		return charts.StatusPie(buf, counts)
	})
}

// ConfigChart renders the pie chart of job counts per configuration.
func (h *Handlers) ConfigChart(c *gin.Context) {
	counts, err := repo.JobsPerConfig(c.Request.Context(), h.db)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	h.renderPNG(c, func(buf *bytes.Buffer) error {
		return charts.ConfigPie(buf, counts)
	})
}

// renderPNG runs a chart renderer into a buffer and writes the image, mapping
// the empty-dataset case to 404.
func (h *Handlers) renderPNG(c *gin.Context, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		if errors.Is(err, charts.ErrNoData) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no data to chart yet")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
