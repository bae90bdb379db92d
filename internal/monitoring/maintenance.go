// internal/monitoring/maintenance.go - history retention and stale state cleanup
package monitoring

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"webmonitor/internal/database"
	"webmonitor/internal/metrics"
)

const DefaultHistoryRetention = 30 * 24 * time.Hour

// Maintenance purges old monitoring results and drops tracker state for
// websites that left the registry.
type Maintenance struct {
	registry  database.Registry
	history   database.ExtendedStore
	tracker   *StateTracker
	metrics   *metrics.Collector
	retention time.Duration
}

// NewMaintenance builds the cleanup routine. history may be nil when the
// store cannot purge, in which case only state pruning runs.
func NewMaintenance(registry database.Registry, history database.ExtendedStore, tracker *StateTracker, collector *metrics.Collector, retention time.Duration) *Maintenance {
	if retention <= 0 {
		retention = DefaultHistoryRetention
	}
	return &Maintenance{
		registry:  registry,
		history:   history,
		tracker:   tracker,
		metrics:   collector,
		retention: retention,
	}
}

// PurgeHistory deletes results older than the retention window.
func (m *Maintenance) PurgeHistory(ctx context.Context) (int, error) {
	if m.history == nil {
		return 0, nil
	}
	cutoff := time.Now().Add(-m.retention)
	deleted, err := m.history.DeleteResultsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge history: %w", err)
	}
	return deleted, nil
}

// PruneState removes tracker entries and metric series for websites that are
// no longer registered.
func (m *Maintenance) PruneState(ctx context.Context) (int, error) {
	sites, err := m.registry.ListWebsites(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list websites: %w", err)
	}

	known := make(map[string]struct{}, len(sites))
	for _, site := range sites {
		known[site.ID] = struct{}{}
	}

	removed := m.tracker.Prune(known)
	if removed > 0 {
		logrus.WithField("pruned_states", removed).Info("Pruned state for removed websites")
	}

	if err := m.metrics.UpdateSystemMetrics(ctx); err != nil {
		logrus.WithError(err).Warn("Failed to update system metrics")
	}
	return removed, nil
}

// RunOnce performs a complete cleanup pass.
func (m *Maintenance) RunOnce(ctx context.Context) error {
	var errs []string

	if _, err := m.PurgeHistory(ctx); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := m.PruneState(ctx); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("maintenance completed with errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Schedule runs a pass at startup and then every interval until ctx ends.
func (m *Maintenance) Schedule(ctx context.Context, interval time.Duration) {
	go func() {
		if err := m.RunOnce(ctx); err != nil {
			logrus.WithError(err).Error("Initial maintenance failed")
		}
	}()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logrus.Debug("Stopping maintenance scheduler")
				return
			case <-ticker.C:
				if err := m.RunOnce(ctx); err != nil {
					logrus.WithError(err).Error("Scheduled maintenance failed")
				}
			}
		}
	}()

	logrus.WithFields(logrus.Fields{
		"interval":  interval,
		"retention": m.retention,
	}).Info("Scheduled periodic maintenance")
}
