package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pauljones0/property-scanner/internal/filter"
	"github.com/pauljones0/property-scanner/internal/models"
	"github.com/pauljones0/property-scanner/internal/validator"
)

const (
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

type Config struct {
	SortType      models.SortStrategy   `yaml:"sort_type" validate:"sort_strategy"`
	Sites         Sites                 `yaml:"sites"`
	Filters       models.FilterCriteria `yaml:"filters"`
	Notifications Notifications         `yaml:"notifications"`
	Debug         Debug                 `yaml:"debug"`
	Storage       Storage               `yaml:"storage"`
	Scanner       Scanner               `yaml:"scanner"`
	Server        Server                `yaml:"server"`
}

type Notifications struct {
	Method  string  `yaml:"method" validate:"omitempty,oneof=email discord log none"`
	Email   Email   `yaml:"email"`
	Discord Discord `yaml:"discord"`
}

type Email struct {
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port" validate:"gte=0,lte=65535"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Sender     string `yaml:"sender" validate:"omitempty,email"`
	Recipient  string `yaml:"recipient" validate:"omitempty,email"`
	StartTLS   bool   `yaml:"starttls"`
}

type Discord struct {
	WebhookURL string `yaml:"webhook_url" validate:"omitempty,url"`
}

type Debug struct {
	BypassSeenCheck bool   `yaml:"bypass_seen_check"`
	LogLevel        string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

type Storage struct {
	Backend          string `yaml:"backend" validate:"oneof=sqlite firestore"`
	SQLitePath       string `yaml:"sqlite_path"`
	FirestoreProject string `yaml:"firestore_project"`
}

type Scanner struct {
	FetchTimeout      time.Duration `yaml:"fetch_timeout" validate:"gt=0"`
	MaxRetries        int           `yaml:"max_retries" validate:"gte=0,lte=10"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
	UserAgent         string        `yaml:"user_agent"`
	ChromePath        string        `yaml:"chrome_path"`
	SelectorsPath     string        `yaml:"selectors_path"`
}

type Server struct {
	Port       string        `yaml:"port"`
	Schedule   string        `yaml:"schedule"`
	RunTimeout time.Duration `yaml:"run_timeout" validate:"gte=0"`
}

// Default returns the configuration used for every key the file omits.
func Default() *Config {
	return &Config{
		SortType:      models.SortDefault,
		Notifications: Notifications{Email: Email{SMTPPort: 465}},
		Debug:         Debug{LogLevel: "info"},
		Storage:       Storage{Backend: BackendSQLite, SQLitePath: "data/scanner.db"},
		Scanner: Scanner{
			FetchTimeout:      45 * time.Second,
			MaxRetries:        2,
			RequestsPerSecond: 1,
		},
		Server: Server{Port: "8080", RunTimeout: 5 * time.Minute},
	}
}

// Load reads the YAML (or JSON) file at path, applies defaults and
// environment overrides, and validates the result. Every failure is a
// *models.ConfigError.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.ConfigError{Field: "path", Err: err}
	}
	// .env is optional; real environment variables always win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to read .env file", "error", err)
	}
	return Parse(data)
}

// Parse decodes data and applies the same defaults, environment overrides
// and validation as Load.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		var ce *models.ConfigError
		if errors.As(err, &ce) {
			return nil, ce
		}
		return nil, &models.ConfigError{Err: fmt.Errorf("failed to decode config: %w", err)}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		c.Notifications.Email.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Notifications.Email.Password = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return &models.ConfigError{Field: "SMTP_PORT", Err: fmt.Errorf("invalid SMTP_PORT %q: %w", v, err)}
		}
		c.Notifications.Email.SMTPPort = port
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		c.Notifications.Discord.WebhookURL = v
	}
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		c.Storage.FirestoreProject = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.SortType == "" {
		c.SortType = models.SortDefault
	}
	if c.Notifications.Method == "" {
		if c.Notifications.Email.SMTPServer != "" {
			c.Notifications.Method = "email"
		} else {
			slog.Info("No notification method configured, printing new listings to the log")
			c.Notifications.Method = "log"
		}
	}
	if len(c.Sites.Enabled()) == 0 {
		slog.Warn("No sites enabled, defaulting to rightmove")
		c.Sites = append(c.Sites, Site{Source: models.SourceRightmove, SiteConfig: models.SiteConfig{Enabled: true}})
	}
}

// Validate checks field tags and the rules that span fields.
func (c *Config) Validate() error {
	if err := validator.New().ValidateStruct(c); err != nil {
		return &models.ConfigError{Err: err}
	}
	if err := filter.Validate(c.Filters); err != nil {
		return &models.ConfigError{Field: "filters", Err: err}
	}
	for _, s := range c.Sites {
		if s.SortType != "" && !s.SortType.Valid() {
			return &models.ConfigError{Field: "sites." + string(s.Source) + ".sort_type", Err: fmt.Errorf("unknown sort strategy %q", s.SortType)}
		}
	}

	n := c.Notifications
	switch n.Method {
	case "email":
		if n.Email.SMTPServer == "" || n.Email.Sender == "" || n.Email.Recipient == "" {
			return &models.ConfigError{Field: "notifications.email", Err: errors.New("smtp_server, sender and recipient are required for email notifications")}
		}
	case "discord":
		if n.Discord.WebhookURL == "" {
			return &models.ConfigError{Field: "notifications.discord.webhook_url", Err: errors.New("required for discord notifications (or set DISCORD_WEBHOOK_URL)")}
		}
	}

	switch c.Storage.Backend {
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return &models.ConfigError{Field: "storage.sqlite_path", Err: errors.New("required for the sqlite backend")}
		}
	case BackendFirestore:
		if c.Storage.FirestoreProject == "" {
			return &models.ConfigError{Field: "storage.firestore_project", Err: errors.New("required for the firestore backend (or set GOOGLE_CLOUD_PROJECT)")}
		}
	}
	return nil
}

// SlogLevel maps debug.log_level to a slog level.
func (c *Config) SlogLevel() slog.Level {
	return ParseLevel(c.Debug.LogLevel)
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(name string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return l
}
