// internal/web/handlers.go
package web

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"webmonitor/internal/config"
	"webmonitor/internal/database"
)

const (
	defaultResultLimit       = 50
	defaultNotificationLimit = 50
	uptimeSampleSize         = 100
	incidentWindow           = 7 * 24 * time.Hour
)

type WebsiteRequest struct {
	Name                string `json:"name" binding:"required"`
	URL                 string `json:"url" binding:"required"`
	CheckInterval       int    `json:"check_interval"`
	EnableNotifications *bool  `json:"enable_notifications"`
}

// DashboardStats summarises the latest state of every website.
type DashboardStats struct {
	WebsitesOnline   int     `json:"websites_online"`
	TotalWebsites    int     `json:"total_websites"`
	AvgResponseTime  int64   `json:"avg_response_time_ms"`
	UptimePercentage float64 `json:"uptime_percentage"`
	IncidentCount    int     `json:"incident_count"`
}

func (r *WebsiteRequest) validate(defaultInterval int) error {
	r.Name = strings.TrimSpace(r.Name)
	r.URL = strings.TrimSpace(r.URL)

	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if err := config.ValidateURL(r.URL); err != nil {
		return err
	}
	if r.CheckInterval == 0 {
		r.CheckInterval = defaultInterval
	}
	if r.CheckInterval < 1 {
		return fmt.Errorf("check_interval must be at least 1 minute")
	}
	return nil
}

func (s *Server) getWebsites(c *gin.Context) {
	sites, err := s.store.ListWebsites(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("Failed to get websites")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get websites"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  nonNil(sites),
		"count": len(sites),
	})
}

func (s *Server) getWebsite(c *gin.Context) {
	site, ok := s.lookupWebsite(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": site})
}

func (s *Server) createWebsite(c *gin.Context) {
	var req WebsiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.validate(s.config.Monitoring.DefaultInterval); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	site := &database.Website{
		Name:                req.Name,
		URL:                 req.URL,
		CheckInterval:       req.CheckInterval,
		EnableNotifications: req.EnableNotifications == nil || *req.EnableNotifications,
	}

	if err := s.store.CreateWebsite(c.Request.Context(), site); err != nil {
		logrus.WithError(err).Error("Failed to create website")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create website"})
		return
	}

	logrus.WithFields(logrus.Fields{
		"website": site.Name,
		"url":     site.URL,
	}).Info("Website created")

	s.refreshSystemMetrics(c)
	c.JSON(http.StatusCreated, gin.H{"data": site})
}

func (s *Server) updateWebsite(c *gin.Context) {
	var req WebsiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.validate(s.config.Monitoring.DefaultInterval); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	site, ok := s.lookupWebsite(c)
	if !ok {
		return
	}

	site.Name = req.Name
	site.URL = req.URL
	site.CheckInterval = req.CheckInterval
	if req.EnableNotifications != nil {
		site.EnableNotifications = *req.EnableNotifications
	}

	if err := s.store.UpdateWebsite(c.Request.Context(), site); err != nil {
		if errors.Is(err, database.ErrWebsiteNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Website not found"})
			return
		}
		logrus.WithError(err).Error("Failed to update website")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update website"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": site})
}

func (s *Server) deleteWebsite(c *gin.Context) {
	site, ok := s.lookupWebsite(c)
	if !ok {
		return
	}

	if err := s.store.DeleteWebsite(c.Request.Context(), site.ID); err != nil {
		if errors.Is(err, database.ErrWebsiteNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Website not found"})
			return
		}
		logrus.WithError(err).Error("Failed to delete website")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete website"})
		return
	}

	s.engine.ForgetWebsite(site)
	s.refreshSystemMetrics(c)

	logrus.WithField("website", site.Name).Info("Website deleted")
	c.Status(http.StatusNoContent)
}

func (s *Server) getWebsiteResults(c *gin.Context) {
	id := c.Param("id")
	limit := queryLimit(c, defaultResultLimit)

	results, err := s.store.GetMonitoringResults(c.Request.Context(), database.ResultFilters{
		WebsiteID: id,
		Limit:     limit,
	})
	if err != nil {
		logrus.WithError(err).WithField("website_id", id).Error("Failed to get monitoring results")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get website monitoring results"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  nonNil(results),
		"count": len(results),
	})
}

func (s *Server) getMonitoringResults(c *gin.Context) {
	results, err := s.store.GetMonitoringResults(c.Request.Context(), database.ResultFilters{
		WebsiteID: c.Query("websiteId"),
		Limit:     queryLimit(c, defaultResultLimit),
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to get monitoring results")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get monitoring results"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  nonNil(results),
		"count": len(results),
	})
}

func (s *Server) getLatestResults(c *gin.Context) {
	results, err := s.store.GetLatestMonitoringResults(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("Failed to get latest monitoring results")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get latest monitoring results"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  nonNil(results),
		"count": len(results),
	})
}

// POST /api/monitoring/check runs one sweep and returns every outcome. Down
// websites are part of the data, not an error.
func (s *Server) checkNow(c *gin.Context) {
	outcomes, err := s.engine.CheckNow(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("Failed to run monitoring check")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run monitoring check"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  outcomes,
		"count": len(outcomes),
	})
}

func (s *Server) getNotifications(c *gin.Context) {
	list, err := s.store.GetNotifications(c.Request.Context(), queryLimit(c, defaultNotificationLimit))
	if err != nil {
		logrus.WithError(err).Error("Failed to get notifications")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  nonNil(list),
		"count": len(list),
	})
}

func (s *Server) getDashboardStats(c *gin.Context) {
	ctx := c.Request.Context()

	sites, err := s.store.ListWebsites(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get dashboard stats"})
		return
	}
	latest, err := s.store.GetLatestMonitoringResults(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get dashboard stats"})
		return
	}
	recent, err := s.store.GetNotifications(ctx, 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get dashboard stats"})
		return
	}

	stats := DashboardStats{TotalWebsites: len(sites), UptimePercentage: 100}

	var totalResponse int64
	var responses int64
	for _, result := range latest {
		if !result.IsUp {
			continue
		}
		stats.WebsitesOnline++
		if result.ResponseTime != nil {
			totalResponse += *result.ResponseTime
			responses++
		}
	}
	if responses > 0 {
		stats.AvgResponseTime = int64(math.Round(float64(totalResponse) / float64(responses)))
	}

	if len(sites) > 0 {
		var sum float64
		for _, site := range sites {
			history, err := s.store.GetMonitoringResults(ctx, database.ResultFilters{WebsiteID: site.ID, Limit: uptimeSampleSize})
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get dashboard stats"})
				return
			}
			sum += uptimePercentage(history)
		}
		stats.UptimePercentage = math.Round(sum/float64(len(sites))*10) / 10
	}

	since := time.Now().Add(-incidentWindow)
	for _, n := range recent {
		if n.Kind == database.NotificationDown && n.CreatedAt.After(since) {
			stats.IncidentCount++
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func uptimePercentage(results []database.MonitoringResult) float64 {
	if len(results) == 0 {
		return 100
	}
	up := 0
	for _, r := range results {
		if r.IsUp {
			up++
		}
	}
	return float64(up) / float64(len(results)) * 100
}

func (s *Server) lookupWebsite(c *gin.Context) (*database.Website, bool) {
	site, err := s.store.GetWebsite(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrWebsiteNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Website not found"})
			return nil, false
		}
		logrus.WithError(err).Error("Failed to get website")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get website"})
		return nil, false
	}
	return site, true
}

func (s *Server) refreshSystemMetrics(c *gin.Context) {
	if err := s.metrics.UpdateSystemMetrics(c.Request.Context()); err != nil {
		logrus.WithError(err).Warn("Failed to update system metrics")
	}
}

func queryLimit(c *gin.Context, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
