package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hed1ad/theftguard/pkg/dashboard"
	"github.com/hed1ad/theftguard/pkg/records"
)

const maxInspectionLimit = 100

// dashboardHandler serves the aggregate risk view. Every request recomputes
// its view from the shared snapshot.
type dashboardHandler struct {
	snapshot *dashboard.Snapshot
}

func newDashboardHandler(snapshot *dashboard.Snapshot) *dashboardHandler {
	return &dashboardHandler{snapshot: snapshot}
}

// RegisterRoutes sets up dashboard routes under the given group.
func (h *dashboardHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/dashboard", h.Overview)
	r.GET("/dashboard/options", h.Options)
	r.GET("/dashboard/summary", h.Summary)
	r.GET("/dashboard/areas", h.Areas)
	r.GET("/dashboard/high-risk", h.HighRisk)
	r.GET("/dashboard/inspection", h.Inspection)
	r.GET("/consumers/:id/explanation", h.Explanation)
}

// Overview returns every dashboard panel for one filter selection.
func (h *dashboardHandler) Overview(c *gin.Context) {
	view := h.snapshot.Apply(parseFilter(c))
	high := view.HighPriority()

	c.JSON(http.StatusOK, gin.H{
		"summary":    view.Summary(),
		"areas":      view.ByArea(),
		"high_risk":  high,
		"inspection": view.InspectionPriority(dashboard.DefaultInspectionLimit),
	})
}

// Options returns the selectable areas, risk levels and consumer ids.
func (h *dashboardHandler) Options(c *gin.Context) {
	c.JSON(http.StatusOK, h.snapshot.Options())
}

// Summary returns the headline figures.
func (h *dashboardHandler) Summary(c *gin.Context) {
	c.JSON(http.StatusOK, h.snapshot.Apply(parseFilter(c)).Summary())
}

// Areas returns the per-area breakdown.
func (h *dashboardHandler) Areas(c *gin.Context) {
	areas := h.snapshot.Apply(parseFilter(c)).ByArea()
	c.JSON(http.StatusOK, gin.H{
		"areas": areas,
		"count": len(areas),
	})
}

// HighRisk returns High risk consumers ordered by estimated loss.
func (h *dashboardHandler) HighRisk(c *gin.Context) {
	consumers := h.snapshot.Apply(parseFilter(c)).HighPriority()
	c.JSON(http.StatusOK, gin.H{
		"consumers": consumers,
		"count":     len(consumers),
	})
}

// Inspection returns the inspection priority ranking.
func (h *dashboardHandler) Inspection(c *gin.Context) {
	limit, ok := parseLimit(c, dashboard.DefaultInspectionLimit, maxInspectionLimit)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limit", "message": "limit must be a non-negative integer"})
		return
	}

	entries := h.snapshot.Apply(parseFilter(c)).InspectionPriority(limit)
	c.JSON(http.StatusOK, gin.H{
		"consumers": entries,
		"count":     len(entries),
	})
}

// Explanation returns the stored theft reason for a consumer. The lookup
// ignores filters; a miss is reported as a notice, not an error.
func (h *dashboardHandler) Explanation(c *gin.Context) {
	id := c.Param("id")

	reason, ok := h.snapshot.Explain(id)
	if !ok {
		c.JSON(http.StatusOK, gin.H{
			"cons_no": id,
			"found":   false,
			"notice":  dashboard.NoExplanationNotice,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cons_no": id,
		"found":   true,
		"reason":  reason,
	})
}

// parseFilter reads repeated area and risk_level params. An absent param
// selects everything.
func parseFilter(c *gin.Context) dashboard.Filter {
	var f dashboard.Filter

	if areas, ok := c.GetQueryArray("area"); ok {
		f.Areas = areas
	}
	if levels, ok := c.GetQueryArray("risk_level"); ok {
		f.RiskLevels = make([]records.RiskLevel, len(levels))
		for i, l := range levels {
			f.RiskLevels[i] = records.RiskLevel(l)
		}
	}
	return f
}

func parseLimit(c *gin.Context, defaultLimit, maxLimit int) (int, bool) {
	v := c.Query("limit")
	if v == "" {
		return defaultLimit, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return min(n, maxLimit), true
}
