// internal/metrics/prometheus.go
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"webmonitor/internal/database"
)

// Prometheus metrics
var (
	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webmonitor_probe_duration_seconds",
			Help:    "Time spent probing websites",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"website", "status"},
	)

	ProbeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webmonitor_probes_total",
			Help: "Total number of probes executed",
		},
		[]string{"website", "status"},
	)

	WebsiteUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "webmonitor_website_up",
			Help: "Last observed state of a website (1=up, 0=down)",
		},
		[]string{"website"},
	)

	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webmonitor_sweep_duration_seconds",
			Help:    "Time spent on a full sweep of all websites",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"trigger"},
	)

	PipelineErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webmonitor_pipeline_errors_total",
			Help: "Per-website pipeline failures by stage",
		},
		[]string{"stage"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webmonitor_notifications_total",
			Help: "Notifications created on state transitions",
		},
		[]string{"kind"},
	)

	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webmonitor_notification_deliveries_total",
			Help: "Notification delivery attempts per channel",
		},
		[]string{"channel", "result"},
	)

	ActiveWebsites = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "webmonitor_active_websites_total",
			Help: "Number of websites being monitored",
		},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "webmonitor_websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)
)

type Collector struct {
	registry database.Registry
}

func NewCollector(registry database.Registry) *Collector {
	return &Collector{registry: registry}
}

func (c *Collector) RecordProbe(website string, isUp bool, duration time.Duration) {
	status := statusLabel(isUp)
	ProbeDuration.WithLabelValues(website, status).Observe(duration.Seconds())
	ProbeTotal.WithLabelValues(website, status).Inc()

	up := 0.0
	if isUp {
		up = 1
	}
	WebsiteUp.WithLabelValues(website).Set(up)
}

func (c *Collector) RecordSweep(trigger string, duration time.Duration) {
	SweepDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

func (c *Collector) RecordPipelineError(stage string) {
	PipelineErrors.WithLabelValues(stage).Inc()
}

func (c *Collector) RecordNotification(kind database.NotificationKind) {
	NotificationsTotal.WithLabelValues(string(kind)).Inc()
}

func (c *Collector) RecordDelivery(channel string, sent bool) {
	result := "failed"
	if sent {
		result = "sent"
	}
	DeliveriesTotal.WithLabelValues(channel, result).Inc()
}

// ForgetWebsite drops per-website series once the website is removed.
func (c *Collector) ForgetWebsite(website string) {
	WebsiteUp.DeleteLabelValues(website)
}

func (c *Collector) UpdateSystemMetrics(ctx context.Context) error {
	sites, err := c.registry.ListWebsites(ctx)
	if err != nil {
		return err
	}
	ActiveWebsites.Set(float64(len(sites)))
	return nil
}

func (c *Collector) RecordWebSocketConnection(delta int) {
	WebSocketConnections.Add(float64(delta))
}

func statusLabel(isUp bool) string {
	if isUp {
		return "up"
	}
	return "down"
}
