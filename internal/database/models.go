// internal/database/models.go
package database

import (
	"time"
)

type Website struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	URL                 string    `json:"url"`
	CheckInterval       int       `json:"check_interval"` // minutes
	EnableNotifications bool      `json:"enable_notifications"`
	CreatedAt           time.Time `json:"created_at"`
}

// MonitoringResult is one stored probe outcome. It is never updated after
// creation.
type MonitoringResult struct {
	ID           string    `json:"id"`
	WebsiteID    string    `json:"website_id"`
	StatusCode   *int      `json:"status_code"`
	ResponseTime *int64    `json:"response_time_ms"`
	IsUp         bool      `json:"is_up"`
	Error        string    `json:"error,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
}

type NotificationKind string

const (
	NotificationDown NotificationKind = "down"
	NotificationUp   NotificationKind = "up"
)

type Notification struct {
	ID        string           `json:"id"`
	WebsiteID string           `json:"website_id"`
	Kind      NotificationKind `json:"type"`
	Message   string           `json:"message"`
	EmailSent bool             `json:"email_sent"`
	SMSSent   bool             `json:"sms_sent"`
	CreatedAt time.Time        `json:"created_at"`
}

type ResultFilters struct {
	WebsiteID string
	Limit     int
}
