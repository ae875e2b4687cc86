package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/crypto/bcrypt"

	"statusboard/app/internal/classify"
	"statusboard/app/internal/series"
)

// Config holds all application configuration
type Config struct {
	// Upstream
	APIKey          string `envconfig:"UPTIMEROBOT_API_KEY"`
	UpstreamBaseURL string `envconfig:"UPTIMEROBOT_BASE_URL" default:"https://api.uptimerobot.com/v2"`
	CacheSeconds    int    `envconfig:"UPSTREAM_CACHE_SECONDS" default:"30"`

	// Server
	Port        string   `envconfig:"PORT" default:"4555"`
	DBPath      string   `envconfig:"DB_PATH" default:"./statusboard.db"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`

	// Refresh loop
	APIBaseURL  string `envconfig:"API_BASE_URL"`
	PollSeconds int    `envconfig:"POLL_SECONDS" default:"60"`

	// Presentation
	Title         string  `envconfig:"PAGE_TITLE" default:"Service Status"`
	WindowDays    int     `envconfig:"WINDOW_DAYS" default:"90"`
	Threshold     float64 `envconfig:"UPTIME_THRESHOLD" default:"95"`
	DegradedBelow float64 `envconfig:"DEGRADED_BELOW" default:"0"`
	Anonymize     bool    `envconfig:"ANONYMIZE_NAMES" default:"false"`
	Timezone      string  `envconfig:"TIMEZONE"`
	DashboardFile string  `envconfig:"DASHBOARD_FILE" default:"dashboard.yaml"`

	// Admin
	AdminUser           string `envconfig:"ADMIN_USER" default:"admin"`
	AdminPassword       string `envconfig:"ADMIN_PASSWORD"`
	AdminPasswordBcrypt string `envconfig:"ADMIN_PASSWORD_BCRYPT"`

	// Error reporting
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"production"`

	AdminHash []byte           `ignored:"true"`
	Palette   classify.Palette `ignored:"true"`
	Location  *time.Location   `ignored:"true"`
}

// Dashboard is the optional presentation file. Set fields override the environment.
type Dashboard struct {
	Title         string           `yaml:"title"`
	WindowDays    int              `yaml:"window_days"`
	Threshold     float64          `yaml:"threshold"`
	DegradedBelow float64          `yaml:"degraded_below"`
	Anonymize     *bool            `yaml:"anonymize"`
	Timezone      string           `yaml:"timezone"`
	Palette       classify.Palette `yaml:"palette"`
}

// Load reads .env, the environment and the dashboard file, then validates the result
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	dash, err := LoadDashboard(cfg.DashboardFile)
	if err != nil {
		return nil, err
	}
	cfg.apply(dash)

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDashboard parses a dashboard file. A missing file yields an empty Dashboard.
func LoadDashboard(path string) (*Dashboard, error) {
	var d Dashboard
	if path == "" {
		return &d, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &d, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	log.Printf("Loaded dashboard settings from %s", path)
	return &d, nil
}

func (c *Config) apply(d *Dashboard) {
	if d.Title != "" {
		c.Title = d.Title
	}
	if d.WindowDays != 0 {
		c.WindowDays = d.WindowDays
	}
	if d.Threshold != 0 {
		c.Threshold = d.Threshold
	}
	if d.DegradedBelow != 0 {
		c.DegradedBelow = d.DegradedBelow
	}
	if d.Anonymize != nil {
		c.Anonymize = *d.Anonymize
	}
	if d.Timezone != "" {
		c.Timezone = d.Timezone
	}
	c.Palette = d.Palette
}

func (c *Config) finish() error {
	if err := c.Validate(); err != nil {
		return err
	}

	c.Palette = c.Palette.Merge(classify.DefaultPalette())
	c.UpstreamBaseURL = strings.TrimSuffix(c.UpstreamBaseURL, "/")
	if c.APIBaseURL == "" {
		c.APIBaseURL = "http://127.0.0.1:" + c.Port
	}
	c.APIBaseURL = strings.TrimSuffix(c.APIBaseURL, "/")

	c.Location = time.Local
	if c.Timezone != "" {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
		}
		c.Location = loc
	}

	switch {
	case c.AdminPasswordBcrypt != "":
		c.AdminHash = []byte(c.AdminPasswordBcrypt)
	case c.AdminPassword != "":
		h, err := bcrypt.GenerateFromPassword([]byte(c.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		c.AdminHash = h
	default:
		log.Printf("No ADMIN_PASSWORD or ADMIN_PASSWORD_BCRYPT set, admin API disabled")
	}

	if c.APIKey == "" {
		log.Printf("Warning: UPTIMEROBOT_API_KEY is not set, /api/monitors will report errors")
	}
	return nil
}

// Validate checks the ranges of the presentation and loop settings
func (c *Config) Validate() error {
	switch c.WindowDays {
	case series.Window60, series.Window90, series.Window180:
	default:
		return fmt.Errorf("window_days must be 60, 90 or 180, got %d", c.WindowDays)
	}
	if c.Threshold <= 0 || c.Threshold > 100 {
		return fmt.Errorf("threshold must be in (0, 100], got %g", c.Threshold)
	}
	if c.DegradedBelow != 0 && (c.DegradedBelow <= c.Threshold || c.DegradedBelow > 100) {
		return fmt.Errorf("degraded_below must be above threshold and at most 100, got %g", c.DegradedBelow)
	}
	if c.PollSeconds < 1 {
		return fmt.Errorf("POLL_SECONDS must be at least 1, got %d", c.PollSeconds)
	}
	if c.CacheSeconds < 0 {
		return fmt.Errorf("UPSTREAM_CACHE_SECONDS must not be negative, got %d", c.CacheSeconds)
	}
	return nil
}

// PollInterval is the refresh loop period
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

// CacheTTL is the upstream response cache lifetime
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheSeconds) * time.Second
}

// Classifier builds the day classifier from the configured thresholds
func (c *Config) Classifier() classify.Classifier {
	cl := classify.New(c.Threshold)
	cl.DegradedBelow = c.DegradedBelow
	return cl
}
