package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"eventpulse/internal/workers"
)

// workerView is the wire shape for one worker's health snapshot
type workerView struct {
	Name          string `json:"name"`
	Enabled       bool   `json:"enabled"`
	RunCount      int64  `json:"runCount"`
	ErrorCount    int64  `json:"errorCount"`
	LastRun       int64  `json:"lastRun,omitempty"`
	AvgDurationMs int64  `json:"avgDurationMs"`
	LastError     string `json:"lastError,omitempty"`
}

func newWorkerView(name string, h workers.WorkerHealth) workerView {
	v := workerView{
		Name:          name,
		Enabled:       h.Enabled,
		RunCount:      h.RunCount,
		ErrorCount:    h.ErrorCount,
		AvgDurationMs: h.AvgDuration.Milliseconds(),
	}
	if !h.LastRun.IsZero() {
		v.LastRun = h.LastRun.UnixMilli()
	}
	if h.LastError != nil {
		v.LastError = h.LastError.Error()
	}
	return v
}

// GET /api/v1/admin/workers
func (h *handlers) listWorkers(c *gin.Context) {
	healths := h.scheduler.WorkerHealths()

	views := make([]workerView, 0, len(healths))
	for name, wh := range healths {
		views = append(views, newWorkerView(name, wh))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })

	c.JSON(http.StatusOK, gin.H{"workers": views, "count": len(views)})
}

// POST /api/v1/admin/workers/:name/enable
// POST /api/v1/admin/workers/:name/disable
func (h *handlers) setWorkerEnabled(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		if err := h.scheduler.SetWorkerEnabled(name, enabled); err != nil {
			respondError(c, err)
			return
		}
		h.log.Infow("Worker toggled via API", "worker", name, "enabled", enabled)
		c.JSON(http.StatusOK, gin.H{"worker": name, "enabled": enabled, "changedAt": time.Now().UnixMilli()})
	}
}
