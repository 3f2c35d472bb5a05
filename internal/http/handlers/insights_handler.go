// Analytics HTTP handler.
//
// GET /insights returns the aggregated job statistics: per-status counts,
// completion rates, and duration statistics in minutes. With fewer than five
// jobs recorded the payload carries show=false and no statistics, matching
// the dashboard's "not enough data yet" state.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetInsights returns the analytics summary for the dashboard.
func (h *Handlers) GetInsights(c *gin.Context) {
	a, err := h.insSvc.Compute(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, a)
}
