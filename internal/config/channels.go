// internal/config/channels.go - runtime notification channel settings
package config

import (
	"context"
	"strconv"
	"strings"
)

// Keys used in the settings store. They match what the settings API writes.
const (
	KeyEmailEnabled    = "email.enableNotifications"
	KeyEmailFrom       = "email.fromEmail"
	KeyEmailTo         = "email.notificationEmail"
	KeySMSEnabled      = "sms.enableNotifications"
	KeySMSPhoneNumber  = "sms.phoneNumber"
	KeySMSCriticalOnly = "sms.enableCriticalOnly"
)

// ChannelSettings is a typed snapshot of the global channel switches.
type ChannelSettings struct {
	EmailEnabled    bool   `json:"email_enabled"`
	EmailFrom       string `json:"email_from"`
	EmailTo         string `json:"email_to"`
	SMSEnabled      bool   `json:"sms_enabled"`
	SMSPhoneNumber  string `json:"sms_phone_number"`
	SMSCriticalOnly bool   `json:"sms_critical_only"`
}

// SettingsProvider hands out a fresh snapshot on every call.
type SettingsProvider interface {
	ChannelSettings(ctx context.Context) (ChannelSettings, error)
}

// SettingsSource is the raw key/value store behind a SettingsProvider.
type SettingsSource interface {
	GetSettings(ctx context.Context) (map[string]string, error)
}

// StoredSettings overlays values from a SettingsSource on top of defaults.
type StoredSettings struct {
	source   SettingsSource
	defaults ChannelSettings
}

func NewStoredSettings(source SettingsSource, defaults ChannelSettings) *StoredSettings {
	return &StoredSettings{source: source, defaults: defaults}
}

func (s *StoredSettings) ChannelSettings(ctx context.Context) (ChannelSettings, error) {
	values, err := s.source.GetSettings(ctx)
	if err != nil {
		return ChannelSettings{}, err
	}
	return ParseChannelSettings(values, s.defaults), nil
}

// DefaultChannelSettings derives the fallback snapshot from the YAML config.
func (n *NotificationConfig) DefaultChannelSettings() ChannelSettings {
	emailEnabled := true
	if n.Email.Enabled != nil {
		emailEnabled = *n.Email.Enabled
	}
	return ChannelSettings{
		EmailEnabled:    emailEnabled,
		EmailFrom:       n.Email.From,
		EmailTo:         n.Email.To,
		SMSEnabled:      n.SMS.Enabled != nil && *n.SMS.Enabled,
		SMSPhoneNumber:  n.SMS.PhoneNumber,
		SMSCriticalOnly: n.SMS.CriticalOnly != nil && *n.SMS.CriticalOnly,
	}
}

// ParseChannelSettings reads known keys from values. Missing or malformed
// entries keep the default. Recipients may be stored empty to clear them.
func ParseChannelSettings(values map[string]string, defaults ChannelSettings) ChannelSettings {
	out := defaults

	out.EmailEnabled = parseBool(values, KeyEmailEnabled, out.EmailEnabled)
	out.EmailFrom = parseString(values, KeyEmailFrom, out.EmailFrom)
	out.EmailTo = parseClearable(values, KeyEmailTo, out.EmailTo)
	out.SMSEnabled = parseBool(values, KeySMSEnabled, out.SMSEnabled)
	out.SMSPhoneNumber = parseClearable(values, KeySMSPhoneNumber, out.SMSPhoneNumber)
	out.SMSCriticalOnly = parseBool(values, KeySMSCriticalOnly, out.SMSCriticalOnly)

	return out
}

// EmailValues renders the email half of the snapshot as store entries.
func (c ChannelSettings) EmailValues() map[string]string {
	return map[string]string{
		KeyEmailEnabled: strconv.FormatBool(c.EmailEnabled),
		KeyEmailFrom:    c.EmailFrom,
		KeyEmailTo:      c.EmailTo,
	}
}

// SMSValues renders the SMS half of the snapshot as store entries.
func (c ChannelSettings) SMSValues() map[string]string {
	return map[string]string{
		KeySMSEnabled:      strconv.FormatBool(c.SMSEnabled),
		KeySMSPhoneNumber:  c.SMSPhoneNumber,
		KeySMSCriticalOnly: strconv.FormatBool(c.SMSCriticalOnly),
	}
}

func parseBool(values map[string]string, key string, fallback bool) bool {
	raw, ok := values[key]
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseString(values map[string]string, key, fallback string) string {
	raw, ok := values[key]
	if !ok {
		return fallback
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	return raw
}

// parseClearable treats a stored empty value as an explicit clear.
func parseClearable(values map[string]string, key, fallback string) string {
	raw, ok := values[key]
	if !ok {
		return fallback
	}
	return strings.TrimSpace(raw)
}
