// internal/database/store.go
package database

import (
	"context"
	"errors"
	"time"
)

var (
	ErrWebsiteNotFound      = errors.New("website not found")
	ErrNotificationNotFound = errors.New("notification not found")
)

// Registry is the read side of the website list used by the scheduler.
type Registry interface {
	ListWebsites(ctx context.Context) ([]Website, error)
}

type WebsiteStore interface {
	Registry
	GetWebsite(ctx context.Context, id string) (*Website, error)
	CreateWebsite(ctx context.Context, site *Website) error
	UpdateWebsite(ctx context.Context, site *Website) error
	DeleteWebsite(ctx context.Context, id string) error
}

// ResultStore persists probe outcomes. The store assigns ID and CheckedAt.
type ResultStore interface {
	CreateMonitoringResult(ctx context.Context, result *MonitoringResult) error
	GetMonitoringResults(ctx context.Context, filters ResultFilters) ([]MonitoringResult, error)
	GetLatestMonitoringResults(ctx context.Context) ([]MonitoringResult, error)
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n *Notification) error
	MarkEmailSent(ctx context.Context, id string) error
	MarkSMSSent(ctx context.Context, id string) error
	GetNotifications(ctx context.Context, limit int) ([]Notification, error)
}

// SettingsStore is a flat key/value table.
type SettingsStore interface {
	GetSettings(ctx context.Context) (map[string]string, error)
	PutSettings(ctx context.Context, values map[string]string) error
}

// Store defines the interface for database operations
type Store interface {
	WebsiteStore
	ResultStore
	NotificationStore
	SettingsStore

	Close() error
}

// ExtendedStore adds maintenance operations on top of Store.
type ExtendedStore interface {
	Store

	DeleteResultsBefore(ctx context.Context, cutoff time.Time) (int, error)
	GetDatabaseStats(ctx context.Context) (*DatabaseStats, error)
}

// DatabaseStats provides information about database size and health
type DatabaseStats struct {
	TotalWebsites      int       `json:"total_websites"`
	TotalResults       int       `json:"total_results"`
	TotalNotifications int       `json:"total_notifications"`
	DatabaseSize       int64     `json:"database_size_bytes"`
	OldestResult       time.Time `json:"oldest_result"`
	NewestResult       time.Time `json:"newest_result"`
}
