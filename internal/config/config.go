// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Database      DatabaseConfig     `yaml:"database"`
	Prometheus    PrometheusConfig   `yaml:"prometheus"`
	Monitoring    MonitoringConfig   `yaml:"monitoring"`
	Logging       LoggingConfig      `yaml:"logging"`
	Notifications NotificationConfig `yaml:"notifications"`
	Websites      []WebsiteConfig    `yaml:"websites"`
	Include       IncludeConfig      `yaml:"include"`
}

type ServerConfig struct {
	Port         string        `yaml:"port"`
	Workers      int           `yaml:"workers"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	Type             string        `yaml:"type"`
	Path             string        `yaml:"path"`
	CleanupInterval  time.Duration `yaml:"cleanup_interval"`
	HistoryRetention time.Duration `yaml:"history_retention"`
}

type PrometheusConfig struct {
	Enabled     bool   `yaml:"enabled"`
	MetricsPath string `yaml:"metrics_path"`
}

type MonitoringConfig struct {
	SweepInterval   time.Duration `yaml:"sweep_interval"`
	Timeout         time.Duration `yaml:"timeout"`
	DefaultInterval int           `yaml:"default_interval"` // minutes
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type IncludeConfig struct {
	Directory string `yaml:"directory"`
	Pattern   string `yaml:"pattern"`
	Enabled   bool   `yaml:"enabled"`
}

// NotificationConfig holds channel credentials and the defaults used when the
// settings bucket has no value for a key.
type NotificationConfig struct {
	Email EmailConfig `yaml:"email"`
	SMS   SMSConfig   `yaml:"sms"`
}

// EmailConfig configures the SendGrid mail channel.
type EmailConfig struct {
	Enabled *bool  `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	APIURL  string `yaml:"api_url"`
	From    string `yaml:"from"`
	To      string `yaml:"to"`
}

// SMSConfig configures the Twilio SMS channel.
type SMSConfig struct {
	Enabled      *bool  `yaml:"enabled"`
	AccountSID   string `yaml:"account_sid"`
	AuthToken    string `yaml:"auth_token"`
	FromNumber   string `yaml:"from_number"`
	APIURL       string `yaml:"api_url"`
	PhoneNumber  string `yaml:"phone_number"`
	CriticalOnly *bool  `yaml:"critical_only"`
}

// WebsiteConfig seeds the registry on startup.
type WebsiteConfig struct {
	ID                  string `yaml:"id"`
	Name                string `yaml:"name"`
	URL                 string `yaml:"url"`
	CheckInterval       int    `yaml:"check_interval"`
	EnableNotifications *bool  `yaml:"enable_notifications"`
}

// PartialConfig represents an include file that can be merged into the main config
type PartialConfig struct {
	Monitoring    *MonitoringConfig   `yaml:"monitoring,omitempty"`
	Notifications *NotificationConfig `yaml:"notifications,omitempty"`
	Websites      []WebsiteConfig     `yaml:"websites,omitempty"`
}

// Load reads the YAML file, merges includes, overlays the environment
// (after loading envFile with godotenv when it exists), then applies defaults
// and validates.
func Load(filename, envFile string) (*Config, error) {
	config, err := loadConfigFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config file: %w", err)
	}

	if config.Include.Enabled && config.Include.Directory != "" {
		if err := loadIncludes(config, filepath.Dir(filename)); err != nil {
			return nil, fmt.Errorf("failed to load includes: %w", err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}
	applyEnv(config)

	setDefaults(config)

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func loadConfigFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &config, nil
}

func loadIncludes(config *Config, baseDir string) error {
	includeDir := config.Include.Directory
	if !filepath.IsAbs(includeDir) {
		includeDir = filepath.Join(baseDir, includeDir)
	}

	if _, err := os.Stat(includeDir); os.IsNotExist(err) {
		return fmt.Errorf("include directory does not exist: %s", includeDir)
	}

	pattern := config.Include.Pattern
	if pattern == "" {
		pattern = "*.yaml"
	}

	matches, err := filepath.Glob(filepath.Join(includeDir, pattern))
	if err != nil {
		return fmt.Errorf("failed to glob include pattern: %w", err)
	}
	if pattern == "*.yaml" {
		ymlMatches, err := filepath.Glob(filepath.Join(includeDir, "*.yml"))
		if err != nil {
			return fmt.Errorf("failed to glob .yml files: %w", err)
		}
		matches = append(matches, ymlMatches...)
	}

	sort.Slice(matches, func(i, j int) bool {
		return filepath.Base(matches[i]) < filepath.Base(matches[j])
	})

	for _, match := range matches {
		if err := loadAndMergeInclude(config, match); err != nil {
			return fmt.Errorf("failed to load include file %s: %w", match, err)
		}
	}

	return nil
}

func loadAndMergeInclude(config *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read include file: %w", err)
	}

	var partial PartialConfig
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("failed to parse include file YAML: %w", err)
	}

	mergePartialConfig(config, &partial)
	return nil
}

func mergePartialConfig(config *Config, partial *PartialConfig) {
	if len(partial.Websites) > 0 {
		config.Websites = append(config.Websites, partial.Websites...)
	}

	if partial.Monitoring != nil {
		if partial.Monitoring.SweepInterval != 0 {
			config.Monitoring.SweepInterval = partial.Monitoring.SweepInterval
		}
		if partial.Monitoring.Timeout != 0 {
			config.Monitoring.Timeout = partial.Monitoring.Timeout
		}
		if partial.Monitoring.DefaultInterval != 0 {
			config.Monitoring.DefaultInterval = partial.Monitoring.DefaultInterval
		}
	}

	if partial.Notifications != nil {
		mergeNotificationConfig(&config.Notifications, partial.Notifications)
	}
}

func mergeNotificationConfig(main *NotificationConfig, partial *NotificationConfig) {
	if partial.Email.Enabled != nil {
		main.Email.Enabled = partial.Email.Enabled
	}
	if partial.Email.APIKey != "" {
		main.Email.APIKey = partial.Email.APIKey
	}
	if partial.Email.From != "" {
		main.Email.From = partial.Email.From
	}
	if partial.Email.To != "" {
		main.Email.To = partial.Email.To
	}

	if partial.SMS.Enabled != nil {
		main.SMS.Enabled = partial.SMS.Enabled
	}
	if partial.SMS.CriticalOnly != nil {
		main.SMS.CriticalOnly = partial.SMS.CriticalOnly
	}
	if partial.SMS.AccountSID != "" {
		main.SMS.AccountSID = partial.SMS.AccountSID
	}
	if partial.SMS.AuthToken != "" {
		main.SMS.AuthToken = partial.SMS.AuthToken
	}
	if partial.SMS.FromNumber != "" {
		main.SMS.FromNumber = partial.SMS.FromNumber
	}
	if partial.SMS.PhoneNumber != "" {
		main.SMS.PhoneNumber = partial.SMS.PhoneNumber
	}
}

// applyEnv lets credentials live outside the YAML file.
func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"SENDGRID_API_KEY":    &cfg.Notifications.Email.APIKey,
		"FROM_EMAIL":          &cfg.Notifications.Email.From,
		"NOTIFICATION_EMAIL":  &cfg.Notifications.Email.To,
		"TWILIO_ACCOUNT_SID":  &cfg.Notifications.SMS.AccountSID,
		"TWILIO_AUTH_TOKEN":   &cfg.Notifications.SMS.AuthToken,
		"TWILIO_PHONE_NUMBER": &cfg.Notifications.SMS.FromNumber,
	}
	for key, target := range overrides {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			*target = value
		}
	}
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":5000"
	}
	if cfg.Server.Workers == 0 {
		cfg.Server.Workers = 8
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = "boltdb"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/webmonitor.db"
	}
	if cfg.Database.CleanupInterval == 0 {
		cfg.Database.CleanupInterval = 6 * time.Hour
	}
	if cfg.Database.HistoryRetention == 0 {
		cfg.Database.HistoryRetention = 30 * 24 * time.Hour
	}

	if cfg.Include.Pattern == "" {
		cfg.Include.Pattern = "*.yaml"
	}

	if cfg.Monitoring.SweepInterval == 0 {
		cfg.Monitoring.SweepInterval = 60 * time.Second
	}
	if cfg.Monitoring.Timeout == 0 {
		cfg.Monitoring.Timeout = 30 * time.Second
	}
	if cfg.Monitoring.DefaultInterval == 0 {
		cfg.Monitoring.DefaultInterval = 5
	}

	if cfg.Prometheus.MetricsPath == "" {
		cfg.Prometheus.MetricsPath = "/metrics"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	if cfg.Notifications.Email.APIURL == "" {
		cfg.Notifications.Email.APIURL = "https://api.sendgrid.com/v3/mail/send"
	}
	if cfg.Notifications.Email.From == "" {
		cfg.Notifications.Email.From = "notifications@webmonitor.com"
	}
	if cfg.Notifications.SMS.APIURL == "" {
		cfg.Notifications.SMS.APIURL = "https://api.twilio.com/2010-04-01"
	}

	for i := range cfg.Websites {
		if cfg.Websites[i].CheckInterval == 0 {
			cfg.Websites[i].CheckInterval = cfg.Monitoring.DefaultInterval
		}
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Workers < 1 {
		return fmt.Errorf("server.workers must be at least 1")
	}
	if cfg.Database.Type != "boltdb" {
		return fmt.Errorf("only boltdb is supported currently")
	}

	if cfg.Monitoring.SweepInterval < time.Second {
		return fmt.Errorf("monitoring.sweep_interval must be at least 1s")
	}
	if cfg.Monitoring.Timeout <= 0 {
		return fmt.Errorf("monitoring.timeout must be positive")
	}
	if cfg.Monitoring.DefaultInterval < 1 {
		return fmt.Errorf("monitoring.default_interval must be at least 1 minute")
	}

	if cfg.Include.Enabled {
		if cfg.Include.Directory == "" {
			return fmt.Errorf("include.directory must be specified when include.enabled is true")
		}
		if !isValidGlobPattern(cfg.Include.Pattern) {
			return fmt.Errorf("include.pattern contains invalid glob pattern: %s", cfg.Include.Pattern)
		}
	}

	websiteIDs := make(map[string]bool)
	for _, site := range cfg.Websites {
		if site.ID == "" {
			return fmt.Errorf("website %q has no id", site.Name)
		}
		if strings.Contains(site.ID, ":") {
			return fmt.Errorf("website ID %q must not contain ':'", site.ID)
		}
		if websiteIDs[site.ID] {
			return fmt.Errorf("duplicate website ID: %s", site.ID)
		}
		websiteIDs[site.ID] = true

		if strings.TrimSpace(site.Name) == "" {
			return fmt.Errorf("website '%s' has no name", site.ID)
		}
		if err := ValidateURL(site.URL); err != nil {
			return fmt.Errorf("website '%s': %w", site.ID, err)
		}
		if site.CheckInterval < 1 {
			return fmt.Errorf("website '%s' has invalid check_interval: %d (must be >= 1)", site.ID, site.CheckInterval)
		}
	}

	return nil
}

// NotificationsEnabled reports whether the seeded website wants alerts.
func (w *WebsiteConfig) NotificationsEnabled() bool {
	if w.EnableNotifications != nil {
		return *w.EnableNotifications
	}
	return true
}

// ValidateURL accepts absolute http and https URLs only.
func ValidateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid url %q: missing host", raw)
	}
	return nil
}

func isValidGlobPattern(pattern string) bool {
	if strings.Contains(pattern, "/") || strings.Contains(pattern, "\\") {
		return false
	}
	_, err := filepath.Match(pattern, "test.yaml")
	return err == nil
}
