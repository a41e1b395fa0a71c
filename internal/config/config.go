package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "America/Sao_Paulo"
	configPathEnv     = "CASE_SCANNER_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	databaseDriverEnv = "DATABASE_DRIVER"
	portalBaseURLEnv  = "PORTAL_BASE_URL"
	portalCookieEnv   = "PORTAL_COOKIE"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	logLevelEnv       = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Portal        PortalConfig       `yaml:"portal"`
	Window        WindowConfig       `yaml:"window"`
	Reconcile     ReconcileConfig    `yaml:"reconcile"`
	Downloads     DownloadsConfig    `yaml:"downloads"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects the slog level and handler format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes the store connection. Driver is inferred from the DSN when empty.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// PortalConfig describes how to reach the legal portal.
type PortalConfig struct {
	BaseURL            string                   `yaml:"baseUrl"`
	CasePath           string                   `yaml:"casePath"`
	DocumentsPath      string                   `yaml:"documentsPath"`
	Cookie             string                   `yaml:"cookie"`
	UserAgent          string                   `yaml:"userAgent"`
	NavigationTimeout  time.Duration            `yaml:"navigationTimeout"`
	DetailTimeout      time.Duration            `yaml:"detailTimeout"`
	DownloadTimeout    time.Duration            `yaml:"downloadTimeout"`
	PublicationMarkers []string                 `yaml:"publicationMarkers"`
	NotificationTasks  []NotificationTaskConfig `yaml:"notificationTasks"`
}

// Validate reports portal settings a run cannot work without. Paths must be server routes:
// the part after '#' never reaches the server.
func (p PortalConfig) Validate() error {
	if strings.TrimSpace(p.CasePath) == "" {
		return fmt.Errorf("portal.casePath is not configured")
	}
	for _, path := range []struct{ name, value string }{
		{"casePath", p.CasePath},
		{"documentsPath", p.DocumentsPath},
	} {
		if strings.Contains(path.value, "#") {
			return fmt.Errorf("portal.%s %q contains a fragment", path.name, path.value)
		}
	}
	return nil
}

// NotificationTaskConfig points at one notification list of the portal.
type NotificationTaskConfig struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	TableID string `yaml:"tableId"`
}

// WindowConfig sets the backward tolerance in days, the notification day included.
type WindowConfig struct {
	ToleranceDays int `yaml:"toleranceDays"`
}

// ReconcileConfig controls case selection.
type ReconcileConfig struct {
	TestModeFallback *bool `yaml:"testModeFallback"`
	TestModeLimit    int   `yaml:"testModeLimit"`
}

// FallbackEnabled reports whether processed cases are replayed when nothing is pending.
func (r ReconcileConfig) FallbackEnabled() bool {
	return r.TestModeFallback == nil || *r.TestModeFallback
}

// DownloadsConfig sets where documents are written.
type DownloadsConfig struct {
	Dir string `yaml:"dir"`
}

// SchedulerConfig defines when the run repeats in watch mode.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	APIURL   string `yaml:"apiUrl"`
}

// Load reads YAML configuration from path, or from CASE_SCANNER_CONFIG when path is
// empty, and applies environment overrides. A missing or broken file falls back to defaults.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		fileCfg, err := readFile(path)
		if err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func readFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	return fileCfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(portalBaseURLEnv); v != "" {
		c.Portal.BaseURL = v
	}
	if v := os.Getenv(portalCookieEnv); v != "" {
		c.Portal.Cookie = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to UTC", tz)
		loc = time.UTC
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	p := override.Portal
	if p.BaseURL != "" {
		base.Portal.BaseURL = p.BaseURL
	}
	if p.CasePath != "" {
		base.Portal.CasePath = p.CasePath
	}
	if p.DocumentsPath != "" {
		base.Portal.DocumentsPath = p.DocumentsPath
	}
	if p.Cookie != "" {
		base.Portal.Cookie = p.Cookie
	}
	if p.UserAgent != "" {
		base.Portal.UserAgent = p.UserAgent
	}
	if p.NavigationTimeout > 0 {
		base.Portal.NavigationTimeout = p.NavigationTimeout
	}
	if p.DetailTimeout > 0 {
		base.Portal.DetailTimeout = p.DetailTimeout
	}
	if p.DownloadTimeout > 0 {
		base.Portal.DownloadTimeout = p.DownloadTimeout
	}
	if len(p.PublicationMarkers) > 0 {
		base.Portal.PublicationMarkers = p.PublicationMarkers
	}
	if len(p.NotificationTasks) > 0 {
		base.Portal.NotificationTasks = p.NotificationTasks
	}

	if override.Window.ToleranceDays > 0 {
		base.Window.ToleranceDays = override.Window.ToleranceDays
	}

	if override.Reconcile.TestModeFallback != nil {
		base.Reconcile.TestModeFallback = override.Reconcile.TestModeFallback
	}
	if override.Reconcile.TestModeLimit > 0 {
		base.Reconcile.TestModeLimit = override.Reconcile.TestModeLimit
	}

	if override.Downloads.Dir != "" {
		base.Downloads.Dir = override.Downloads.Dir
	}

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}
	if override.Notifications.Telegram.APIURL != "" {
		base.Notifications.Telegram.APIURL = override.Notifications.Telegram.APIURL
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "rpa.db"},
		Portal: PortalConfig{
			BaseURL:            "https://juridico.bb.com.br",
			UserAgent:          "CaseScanner/1.0",
			NavigationTimeout:  15 * time.Second,
			DetailTimeout:      10 * time.Second,
			DownloadTimeout:    60 * time.Second,
			PublicationMarkers: []string{"PUBLICACAO DJ/DO"},
			NotificationTasks: []NotificationTaskConfig{
				{Name: "Andamento de publicação em processo de condução terceirizada"},
				{Name: "Doc. anexado por empresa externa em processo terceirizado"},
				{Name: "Inclusão de Documentos no NPJ"},
			},
		},
		Window:    WindowConfig{ToleranceDays: 3},
		Reconcile: ReconcileConfig{TestModeLimit: 5},
		Downloads: DownloadsConfig{Dir: "downloads"},
		Scheduler: SchedulerConfig{Interval: 24 * time.Hour, Timezone: defaultTimezone},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{APIURL: "https://api.telegram.org"},
		},
	}
}
