// internal/monitoring/dispatcher.go
package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"webmonitor/internal/config"
	"webmonitor/internal/database"
	"webmonitor/internal/metrics"
	"webmonitor/internal/notifications"
)

const (
	channelEmail = "email"
	channelSMS   = "sms"
)

// NotificationDispatcher records a notification for a transition and tries
// each enabled channel once. A failed send only leaves its flag false.
type NotificationDispatcher struct {
	store    database.NotificationStore
	settings config.SettingsProvider
	mailer   notifications.Mailer
	sms      notifications.SMSSender
	metrics  *metrics.Collector
	now      func() time.Time
}

func NewNotificationDispatcher(
	store database.NotificationStore,
	settings config.SettingsProvider,
	mailer notifications.Mailer,
	sms notifications.SMSSender,
	collector *metrics.Collector,
) *NotificationDispatcher {
	return &NotificationDispatcher{
		store:    store,
		settings: settings,
		mailer:   mailer,
		sms:      sms,
		metrics:  collector,
		now:      time.Now,
	}
}

func notificationMessage(site database.Website, transition Transition) string {
	if transition == TransitionUp {
		return fmt.Sprintf("%s is back online", site.Name)
	}
	return fmt.Sprintf("%s is down", site.Name)
}

// Dispatch returns an error only when the notification record itself could
// not be created. Channel failures are logged and reflected in the flags.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, site database.Website, transition Transition, errDetail string) (*database.Notification, error) {
	if transition == NoTransition {
		return nil, nil
	}

	n := &database.Notification{
		WebsiteID: site.ID,
		Kind:      transition.Kind(),
		Message:   notificationMessage(site, transition),
	}
	if err := d.store.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	d.metrics.RecordNotification(n.Kind)

	settings, err := d.settings.ChannelSettings(ctx)
	if err != nil {
		logrus.WithError(err).WithField("website", site.Name).
			Warn("Failed to read notification settings, channels treated as disabled")
		settings = config.ChannelSettings{}
	}

	logger := logrus.WithFields(logrus.Fields{
		"website":         site.Name,
		"notification_id": n.ID,
		"kind":            n.Kind,
	})

	if settings.EmailEnabled {
		if d.sendEmail(ctx, site, transition, errDetail, settings) {
			if err := d.store.MarkEmailSent(ctx, n.ID); err != nil {
				logger.WithError(err).Error("Failed to mark email as sent")
			} else {
				n.EmailSent = true
			}
		}
	}

	if d.smsAllowed(transition, settings) {
		if d.sendSMS(ctx, site, transition, errDetail, settings) {
			if err := d.store.MarkSMSSent(ctx, n.ID); err != nil {
				logger.WithError(err).Error("Failed to mark SMS as sent")
			} else {
				n.SMSSent = true
			}
		}
	}

	logger.WithFields(logrus.Fields{
		"email_sent": n.EmailSent,
		"sms_sent":   n.SMSSent,
	}).Info("Notification dispatched")

	return n, nil
}

// smsAllowed applies the channel switch, the destination check and the
// critical-only rule. Recoveries are not critical.
func (d *NotificationDispatcher) smsAllowed(transition Transition, settings config.ChannelSettings) bool {
	if !settings.SMSEnabled || settings.SMSPhoneNumber == "" {
		return false
	}
	if transition == TransitionUp && settings.SMSCriticalOnly {
		return false
	}
	return true
}

func (d *NotificationDispatcher) sendEmail(ctx context.Context, site database.Website, transition Transition, errDetail string, settings config.ChannelSettings) bool {
	var (
		content notifications.EmailContent
		err     error
	)
	if transition == TransitionUp {
		content, err = notifications.RestoredEmail(site.Name, site.URL, d.now())
	} else {
		content, err = notifications.DowntimeEmail(site.Name, site.URL, errDetail, d.now())
	}
	if err != nil {
		logrus.WithError(err).WithField("website", site.Name).Error("Failed to render email")
		d.metrics.RecordDelivery(channelEmail, false)
		return false
	}

	sent := d.mailer.Send(ctx, notifications.EmailMessage{
		To:      settings.EmailTo,
		From:    settings.EmailFrom,
		Subject: content.Subject,
		Text:    content.Text,
		HTML:    content.HTML,
	})
	d.metrics.RecordDelivery(channelEmail, sent)
	return sent
}

func (d *NotificationDispatcher) sendSMS(ctx context.Context, site database.Website, transition Transition, errDetail string, settings config.ChannelSettings) bool {
	var (
		body string
		err  error
	)
	if transition == TransitionUp {
		body, err = notifications.RestoredSMS(site.Name, site.URL)
	} else {
		body, err = notifications.DowntimeSMS(site.Name, site.URL, errDetail)
	}
	if err != nil {
		logrus.WithError(err).WithField("website", site.Name).Error("Failed to render SMS")
		d.metrics.RecordDelivery(channelSMS, false)
		return false
	}

	sent := d.sms.Send(ctx, settings.SMSPhoneNumber, body)
	d.metrics.RecordDelivery(channelSMS, sent)
	return sent
}
