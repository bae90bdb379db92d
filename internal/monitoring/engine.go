// internal/monitoring/engine.go
package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"webmonitor/internal/config"
	"webmonitor/internal/database"
	"webmonitor/internal/metrics"
	"webmonitor/internal/notifications"
)

// Engine wires the monitoring pipeline to the store, the notification
// channels and the metrics collector, and owns their lifecycle.
type Engine struct {
	config      *config.Config
	store       database.Store
	metrics     *metrics.Collector
	settings    config.SettingsProvider
	mailer      *notifications.SendGridMailer
	sms         *notifications.TwilioSender
	tracker     *StateTracker
	pipeline    *Pipeline
	scheduler   *Scheduler
	maintenance *Maintenance
	mu          sync.RWMutex
	running     bool
}

func NewEngine(cfg *config.Config, store database.Store, metricsCollector *metrics.Collector) (*Engine, error) {
	if cfg == nil || store == nil || metricsCollector == nil {
		return nil, fmt.Errorf("engine requires config, store and metrics collector")
	}

	engine := &Engine{
		config:   cfg,
		store:    store,
		metrics:  metricsCollector,
		settings: config.NewStoredSettings(store, cfg.Notifications.DefaultChannelSettings()),
		mailer:   notifications.NewSendGridMailer(&cfg.Notifications.Email, nil),
		sms:      notifications.NewTwilioSender(&cfg.Notifications.SMS, nil),
		tracker:  NewStateTracker(NewMemoryStateStore()),
	}

	if !engine.mailer.Configured() {
		logrus.Warn("SendGrid API key not set, email notifications will not be delivered")
	}
	if !engine.sms.Configured() {
		logrus.Info("Twilio credentials not set, SMS notifications disabled")
	}

	dispatcher := NewNotificationDispatcher(store, engine.settings, engine.mailer, engine.sms, metricsCollector)
	engine.pipeline = NewPipeline(
		NewHTTPProber(cfg.Monitoring.Timeout),
		NewResultRecorder(store),
		engine.tracker,
		dispatcher,
		metricsCollector,
	)
	engine.scheduler = NewScheduler(store, engine.pipeline, metricsCollector, cfg.Monitoring.SweepInterval, cfg.Server.Workers)

	var history database.ExtendedStore
	if extended, ok := store.(database.ExtendedStore); ok {
		history = extended
	} else {
		logrus.Warn("Store does not support history purging, retention disabled")
	}
	engine.maintenance = NewMaintenance(store, history, engine.tracker, metricsCollector, cfg.Database.HistoryRetention)

	return engine, nil
}

func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running && e.scheduler.Running() {
		e.mu.Unlock()
		return nil
	}
	e.running = true
	e.mu.Unlock()

	logrus.Info("Starting monitoring engine")

	if err := e.syncWebsites(ctx); err != nil {
		logrus.WithError(err).Error("Failed to sync websites")
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		return err
	}

	cleanupInterval := 6 * time.Hour
	if e.config.Database.CleanupInterval > 0 {
		cleanupInterval = e.config.Database.CleanupInterval
	}
	e.maintenance.Schedule(ctx, cleanupInterval)

	return e.scheduler.Start(ctx)
}

// Stop halts periodic sweeps and waits for in-flight ones to finish writing.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.mu.Unlock()

	logrus.Info("Stopping monitoring engine")
	e.scheduler.Stop()
	e.scheduler.Wait()
}

// IsRunning reports false once the scheduler's context has been cancelled,
// even without an explicit Stop.
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running && e.scheduler.Running()
}

func (e *Engine) CheckNow(ctx context.Context) ([]ProbeOutcome, error) {
	return e.scheduler.CheckNow(ctx)
}

func (e *Engine) SetEventSink(sink EventSink) {
	e.pipeline.SetEventSink(sink)
}

// ForgetWebsite drops tracker state and metric series for a deleted website.
func (e *Engine) ForgetWebsite(site *database.Website) {
	e.tracker.Forget(site.ID)
	e.metrics.ForgetWebsite(site.Name)
}

func (e *Engine) Maintenance() *Maintenance {
	return e.maintenance
}

func (e *Engine) Settings() config.SettingsProvider {
	return e.settings
}

func (e *Engine) TrackedWebsites() int {
	return e.tracker.Len()
}

// SendTestEmail sends a test message using the current channel settings.
func (e *Engine) SendTestEmail(ctx context.Context) (bool, error) {
	settings, err := e.settings.ChannelSettings(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read notification settings: %w", err)
	}
	if settings.EmailTo == "" {
		return false, fmt.Errorf("notification email address not configured")
	}

	content, err := notifications.TestEmail(time.Now())
	if err != nil {
		return false, err
	}
	sent := e.mailer.Send(ctx, notifications.EmailMessage{
		To:      settings.EmailTo,
		From:    settings.EmailFrom,
		Subject: content.Subject,
		Text:    content.Text,
		HTML:    content.HTML,
	})
	e.metrics.RecordDelivery(channelEmail, sent)
	return sent, nil
}

// SendTestSMS sends a test SMS to the configured phone number.
func (e *Engine) SendTestSMS(ctx context.Context) (bool, error) {
	settings, err := e.settings.ChannelSettings(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read notification settings: %w", err)
	}
	if settings.SMSPhoneNumber == "" {
		return false, fmt.Errorf("SMS phone number not configured")
	}

	sent := e.sms.Send(ctx, settings.SMSPhoneNumber, notifications.TestSMS())
	e.metrics.RecordDelivery(channelSMS, sent)
	return sent, nil
}

// GetNotificationStatus reports which channels have credentials.
func (e *Engine) GetNotificationStatus() map[string]interface{} {
	return map[string]interface{}{
		"email_configured": e.mailer.Configured(),
		"sms_configured":   e.sms.Configured(),
	}
}

// syncWebsites creates or updates the websites seeded in the config file.
func (e *Engine) syncWebsites(ctx context.Context) error {
	for _, siteCfg := range e.config.Websites {
		existing, err := e.store.GetWebsite(ctx, siteCfg.ID)
		switch {
		case errors.Is(err, database.ErrWebsiteNotFound):
			site := &database.Website{
				ID:                  siteCfg.ID,
				Name:                siteCfg.Name,
				URL:                 siteCfg.URL,
				CheckInterval:       siteCfg.CheckInterval,
				EnableNotifications: siteCfg.NotificationsEnabled(),
			}
			if err := e.store.CreateWebsite(ctx, site); err != nil {
				logrus.WithError(err).WithField("website", site.Name).Error("Failed to create website")
				continue
			}
			logrus.WithField("website", site.Name).Info("Created website")
		case err != nil:
			return fmt.Errorf("failed to get website %s: %w", siteCfg.ID, err)
		default:
			existing.Name = siteCfg.Name
			existing.URL = siteCfg.URL
			existing.CheckInterval = siteCfg.CheckInterval
			existing.EnableNotifications = siteCfg.NotificationsEnabled()
			if err := e.store.UpdateWebsite(ctx, existing); err != nil {
				logrus.WithError(err).WithField("website", existing.Name).Error("Failed to update website")
				continue
			}
		}
	}

	if err := e.metrics.UpdateSystemMetrics(ctx); err != nil {
		logrus.WithError(err).Warn("Failed to update system metrics")
	}
	return nil
}
