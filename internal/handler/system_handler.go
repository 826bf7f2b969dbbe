package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/gradebook-backend/internal/database"
	"github.com/stemsi/gradebook-backend/internal/response"
)

// HealthChecker reports the state of the backing stores.
type HealthChecker func(ctx context.Context) database.HealthStatus

// SystemHandler serves liveness and runtime status.
type SystemHandler struct {
	check     HealthChecker
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(check HealthChecker) *SystemHandler {
	return &SystemHandler{check: check, startTime: time.Now()}
}

type runtimeStats struct {
	Uptime     string `json:"uptime"`
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc_bytes"`
	HeapSys    uint64 `json:"heap_sys_bytes"`
	NumGC      uint32 `json:"num_gc"`
	GoVersion  string `json:"go_version"`
	NumCPU     int    `json:"num_cpu"`
}

// Health godoc
// GET /health
// Returns 200 when Postgres and Redis answer, 503 otherwise.
func (h *SystemHandler) Health(c *gin.Context) {
	status := h.check(c.Request.Context())
	if !status.OK() {
		response.FailWithDetails(c, http.StatusServiceUnavailable, response.ErrUnavailable,
			response.GetMessage(response.ErrUnavailable),
			map[string]string{"postgres": status.Postgres, "redis": status.Redis})
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "ok", "dependencies": status})
}

// Status godoc
// GET /api/v1/admin/system
// Returns Go runtime statistics and dependency health.
func (h *SystemHandler) Status(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	response.Success(c, http.StatusOK, gin.H{
		"runtime": runtimeStats{
			Uptime:     time.Since(h.startTime).Round(time.Second).String(),
			Goroutines: runtime.NumGoroutine(),
			HeapAlloc:  mem.HeapAlloc,
			HeapSys:    mem.HeapSys,
			NumGC:      mem.NumGC,
			GoVersion:  runtime.Version(),
			NumCPU:     runtime.NumCPU(),
		},
		"dependencies": h.check(c.Request.Context()),
	})
}
