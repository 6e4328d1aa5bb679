package manager

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tunbase/apphost/types"
)

// ManageRoutes registers the runtime management endpoints on the given
// route group. The surface is administrative: package listing and
// lifecycle toggles plus runtime metrics. Package transport stays out;
// registration is in-process only.
func (m *Manager) ManageRoutes(r *gin.RouterGroup) {
	apps := r.Group("/apps")
	{
		apps.GET("", m.handleListPackages)
		apps.GET("/:id", m.handleGetPackage)
		apps.POST("/:id/activate", m.handleActivate)
		apps.POST("/:id/deactivate", m.handleDeactivate)
		apps.DELETE("/:id", m.handleUnregister)
		apps.GET("/:id/metrics", m.handlePackageMetrics)
	}
	r.GET("/metrics", m.handleMetrics)
	r.GET("/events/metrics", m.handleEventMetrics)
}

type packageView struct {
	Metadata types.ExtensionMetadata `json:"metadata"`
	AppID    string                  `json:"app_id"`
	Status   string                  `json:"status"`
	Enabled  bool                    `json:"enabled"`
}

func (m *Manager) handleListPackages(c *gin.Context) {
	views := make([]packageView, 0)
	for _, entry := range m.registry.List() {
		views = append(views, packageView{
			Metadata: entry.Package.Metadata,
			AppID:    entry.Package.App.ID,
			Status:   entry.Status,
			Enabled:  entry.Enabled,
		})
	}
	c.JSON(http.StatusOK, views)
}

func (m *Manager) handleGetPackage(c *gin.Context) {
	entry, ok := m.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": types.ErrExtensionNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, packageView{
		Metadata: entry.Package.Metadata,
		AppID:    entry.Package.App.ID,
		Status:   entry.Status,
		Enabled:  entry.Enabled,
	})
}

func (m *Manager) handleActivate(c *gin.Context) {
	if err := m.Activate(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "activated"})
}

func (m *Manager) handleDeactivate(c *gin.Context) {
	if err := m.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

func (m *Manager) handleUnregister(c *gin.Context) {
	if err := m.Unregister(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unregistered"})
}

func (m *Manager) handlePackageMetrics(c *gin.Context) {
	entry, ok := m.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": types.ErrExtensionNotFound.Error()})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	snapshots, err := m.collector.QueryLatest(entry.Package.App.ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snapshots)
}

func (m *Manager) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, m.GetMetrics())
}

func (m *Manager) handleEventMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, m.GetEventsMetrics())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrExtensionNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrDuplicateExtension):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
