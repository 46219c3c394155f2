package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/obras/backend/internal/interfaces/http/dto"
)

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpenProjectCounter reports how many projects are held open
type OpenProjectCounter interface {
	OpenCount() int
}

// SystemHandler serves health and build information
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	db        Pinger
	projects  OpenProjectCounter
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler. db and projects may be nil.
func NewSystemHandler(name, version string, db Pinger, projects OpenProjectCounter) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		db:        db,
		projects:  projects,
		startTime: time.Now(),
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name         string `json:"name"`
	Version      string `json:"version"`
	GoVersion    string `json:"go_version"`
	Uptime       string `json:"uptime"`
	OpenProjects int    `json:"open_projects"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Time     string `json:"time"`
	Database string `json:"database"`
}

// Info handles GET /system/info
func (h *SystemHandler) Info(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.projects != nil {
		info.OpenProjects = h.projects.OpenCount()
	}
	h.Success(c, info)
}

// Health handles GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:   "healthy",
		Time:     time.Now().UTC().Format(time.RFC3339),
		Database: "ok",
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			_ = c.Error(err)
			resp.Status = "unhealthy"
			resp.Database = "error"
			c.JSON(http.StatusServiceUnavailable, dto.Response{Success: false, Data: resp})
			return
		}
	}
	h.Success(c, resp)
}
