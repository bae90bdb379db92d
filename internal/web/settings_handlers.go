// internal/web/settings_handlers.go - notification channel settings
package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"webmonitor/internal/config"
)

type EmailSettingsRequest struct {
	EnableNotifications *bool   `json:"enable_notifications"`
	FromEmail           string  `json:"from_email"`
	NotificationEmail   *string `json:"notification_email"`
}

type SMSSettingsRequest struct {
	EnableNotifications *bool   `json:"enable_notifications"`
	PhoneNumber         *string `json:"phone_number"`
	EnableCriticalOnly  *bool   `json:"enable_critical_only"`
}

func (s *Server) setupSettingsRoutes(api *gin.RouterGroup) {
	settings := api.Group("/settings")
	{
		settings.GET("", s.getSettings)
		settings.PUT("/email", s.updateEmailSettings)
		settings.PUT("/sms", s.updateSMSSettings)
		settings.POST("/test-email", s.sendTestEmail)
		settings.POST("/test-sms", s.sendTestSMS)
	}
}

// GET /api/settings returns the effective channel settings.
func (s *Server) getSettings(c *gin.Context) {
	current, err := s.engine.Settings().ChannelSettings(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("Failed to read settings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     current,
		"channels": s.engine.GetNotificationStatus(),
	})
}

// PUT /api/settings/email
func (s *Server) updateEmailSettings(c *gin.Context) {
	var req EmailSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	current, ok := s.currentSettings(c)
	if !ok {
		return
	}
	if req.EnableNotifications != nil {
		current.EmailEnabled = *req.EnableNotifications
	}
	if req.FromEmail != "" {
		current.EmailFrom = req.FromEmail
	}
	if req.NotificationEmail != nil {
		current.EmailTo = strings.TrimSpace(*req.NotificationEmail)
	}

	if err := s.store.PutSettings(c.Request.Context(), current.EmailValues()); err != nil {
		logrus.WithError(err).Error("Failed to save email settings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save email settings"})
		return
	}

	logrus.WithFields(logrus.Fields{
		"email_enabled": current.EmailEnabled,
		"email_to":      current.EmailTo,
	}).Info("Email settings updated")

	c.JSON(http.StatusOK, gin.H{"data": current})
}

// PUT /api/settings/sms
func (s *Server) updateSMSSettings(c *gin.Context) {
	var req SMSSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	current, ok := s.currentSettings(c)
	if !ok {
		return
	}
	if req.EnableNotifications != nil {
		current.SMSEnabled = *req.EnableNotifications
	}
	if req.PhoneNumber != nil {
		current.SMSPhoneNumber = strings.TrimSpace(*req.PhoneNumber)
	}
	if req.EnableCriticalOnly != nil {
		current.SMSCriticalOnly = *req.EnableCriticalOnly
	}

	if current.SMSEnabled && current.SMSPhoneNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone_number is required when SMS notifications are enabled"})
		return
	}

	if err := s.store.PutSettings(c.Request.Context(), current.SMSValues()); err != nil {
		logrus.WithError(err).Error("Failed to save SMS settings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save SMS settings"})
		return
	}

	logrus.WithFields(logrus.Fields{
		"sms_enabled":       current.SMSEnabled,
		"sms_critical_only": current.SMSCriticalOnly,
	}).Info("SMS settings updated")

	c.JSON(http.StatusOK, gin.H{"data": current})
}

// POST /api/settings/test-email
func (s *Server) sendTestEmail(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	sent, err := s.engine.SendTestEmail(ctx)
	s.respondTestResult(c, "email", sent, err)
}

// POST /api/settings/test-sms
func (s *Server) sendTestSMS(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	sent, err := s.engine.SendTestSMS(ctx)
	s.respondTestResult(c, "sms", sent, err)
}

func (s *Server) respondTestResult(c *gin.Context, channel string, sent bool, err error) {
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !sent {
		logrus.WithField("channel", channel).Warn("Test notification was not delivered")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Test " + channel + " could not be delivered"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Test " + channel + " sent successfully",
		"timestamp": time.Now(),
	})
}

func (s *Server) currentSettings(c *gin.Context) (config.ChannelSettings, bool) {
	current, err := s.engine.Settings().ChannelSettings(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("Failed to read settings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read settings"})
		return config.ChannelSettings{}, false
	}
	return current, true
}
