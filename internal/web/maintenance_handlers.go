// internal/web/maintenance_handlers.go - retention and state cleanup endpoints
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"webmonitor/internal/database"
)

func (s *Server) setupMaintenanceRoutes(api *gin.RouterGroup) {
	maintenance := api.Group("/maintenance")
	{
		maintenance.POST("/purge", s.purgeHistory)
		maintenance.POST("/prune", s.pruneState)
		maintenance.GET("/stats", s.getDatabaseStats)
	}
}

// POST /api/maintenance/purge removes results older than the retention window.
func (s *Server) purgeHistory(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := s.engine.Maintenance().PurgeHistory(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to purge monitoring history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to purge monitoring history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Monitoring history purged",
		"deleted":   deleted,
		"timestamp": time.Now(),
	})
}

// POST /api/maintenance/prune drops tracked state for removed websites.
func (s *Server) pruneState(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := s.engine.Maintenance().PruneState(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to prune website state")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to prune website state"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Website state pruned",
		"removed":   removed,
		"tracked":   s.engine.TrackedWebsites(),
		"timestamp": time.Now(),
	})
}

// GET /api/maintenance/stats
func (s *Server) getDatabaseStats(c *gin.Context) {
	extended, ok := s.store.(database.ExtendedStore)
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Database statistics not supported by this store"})
		return
	}

	stats, err := extended.GetDatabaseStats(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("Failed to get database stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get database stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}
