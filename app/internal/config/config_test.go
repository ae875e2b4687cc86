package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"statusboard/app/internal/classify"
)

// --- helpers ---

func setEnvs(t *testing.T, m map[string]string) {
	t.Helper()
	for k, v := range m {
		t.Setenv(k, v)
	}
}

func writeDashboard(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// isolate clears every variable Load reads so the host environment cannot leak in
func isolate(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"UPTIMEROBOT_API_KEY", "UPTIMEROBOT_BASE_URL", "UPSTREAM_CACHE_SECONDS",
		"PORT", "DB_PATH", "CORS_ORIGINS", "API_BASE_URL", "POLL_SECONDS",
		"PAGE_TITLE", "WINDOW_DAYS", "UPTIME_THRESHOLD", "DEGRADED_BELOW",
		"ANONYMIZE_NAMES", "TIMEZONE", "ADMIN_USER", "ADMIN_PASSWORD",
		"ADMIN_PASSWORD_BCRYPT", "SENTRY_DSN", "ENVIRONMENT",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("DASHBOARD_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
}

// --- Load ---

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "4555", cfg.Port)
	assert.Equal(t, "./statusboard.db", cfg.DBPath)
	assert.Equal(t, 90, cfg.WindowDays)
	assert.Equal(t, 95.0, cfg.Threshold)
	assert.Equal(t, 60*time.Second, cfg.PollInterval())
	assert.Equal(t, 30*time.Second, cfg.CacheTTL())
	assert.Equal(t, "http://127.0.0.1:4555", cfg.APIBaseURL)
	assert.Equal(t, "https://api.uptimerobot.com/v2", cfg.UpstreamBaseURL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, classify.DefaultPalette(), cfg.Palette)
	assert.Equal(t, time.Local, cfg.Location)
	assert.Nil(t, cfg.AdminHash, "admin API disabled without a password")
	assert.False(t, cfg.Anonymize)
}

func TestLoad_Environment(t *testing.T) {
	isolate(t)
	setEnvs(t, map[string]string{
		"UPTIMEROBOT_API_KEY": "ur-key",
		"PORT":                "8080",
		"POLL_SECONDS":        "15",
		"WINDOW_DAYS":         "180",
		"UPTIME_THRESHOLD":    "99.5",
		"ANONYMIZE_NAMES":     "true",
		"TIMEZONE":            "Europe/Berlin",
		"CORS_ORIGINS":        "https://a.example,https://b.example",
		"API_BASE_URL":        "http://status.internal/",
	})
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ur-key", cfg.APIKey)
	assert.Equal(t, 15*time.Second, cfg.PollInterval())
	assert.Equal(t, 180, cfg.WindowDays)
	assert.Equal(t, 99.5, cfg.Classifier().Threshold)
	assert.True(t, cfg.Anonymize)
	assert.Equal(t, "Europe/Berlin", cfg.Location.String())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "http://status.internal", cfg.APIBaseURL)
}

func TestLoad_AdminPassword(t *testing.T) {
	isolate(t)
	t.Setenv("ADMIN_PASSWORD", "secret")
	cfg, err := Load()
	require.NoError(t, err)
	require.NotEmpty(t, cfg.AdminHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword(cfg.AdminHash, []byte("secret")))
}

func TestLoad_AdminBcryptHashWins(t *testing.T) {
	isolate(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("hashed"), bcrypt.MinCost)
	t.Setenv("ADMIN_PASSWORD", "plain")
	t.Setenv("ADMIN_PASSWORD_BCRYPT", string(hash))
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, hash, cfg.AdminHash)
}

func TestLoad_InvalidNumber(t *testing.T) {
	isolate(t)
	t.Setenv("POLL_SECONDS", "soon")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_BadTimezone(t *testing.T) {
	isolate(t)
	t.Setenv("TIMEZONE", "Mars/Olympus")
	_, err := Load()
	assert.Error(t, err)
}

// --- dashboard file ---

func TestLoad_DashboardOverridesEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("WINDOW_DAYS", "90")
	t.Setenv("DASHBOARD_FILE", writeDashboard(t, `
title: Acme Status
window_days: 60
threshold: 98
anonymize: true
palette:
  down: "#ff0000"
`))
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Acme Status", cfg.Title)
	assert.Equal(t, 60, cfg.WindowDays)
	assert.Equal(t, 98.0, cfg.Threshold)
	assert.True(t, cfg.Anonymize)
	assert.Equal(t, "#ff0000", cfg.Palette.Down)
	assert.Equal(t, classify.ColorUp, cfg.Palette.Up, "unset palette entries keep defaults")
}

func TestLoad_DashboardInvalidYAML(t *testing.T) {
	isolate(t)
	t.Setenv("DASHBOARD_FILE", writeDashboard(t, "window_days: [unterminated"))
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadDashboard_Missing(t *testing.T) {
	d, err := LoadDashboard(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Dashboard{}, *d)
}

// --- Validate ---

func validConfig() Config {
	return Config{WindowDays: 90, Threshold: 95, PollSeconds: 60}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"window 60", func(c *Config) { c.WindowDays = 60 }, true},
		{"window 180", func(c *Config) { c.WindowDays = 180 }, true},
		{"window 30", func(c *Config) { c.WindowDays = 30 }, false},
		{"threshold zero", func(c *Config) { c.Threshold = 0 }, false},
		{"threshold 100", func(c *Config) { c.Threshold = 100 }, true},
		{"threshold above 100", func(c *Config) { c.Threshold = 100.1 }, false},
		{"degraded band", func(c *Config) { c.DegradedBelow = 99 }, true},
		{"degraded below threshold", func(c *Config) { c.DegradedBelow = 90 }, false},
		{"poll zero", func(c *Config) { c.PollSeconds = 0 }, false},
		{"negative cache", func(c *Config) { c.CacheSeconds = -1 }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			tc.mutate(&c)
			err := c.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestClassifier(t *testing.T) {
	c := validConfig()
	c.Threshold = 97
	c.DegradedBelow = 99.5
	cl := c.Classifier()
	assert.Equal(t, 97.0, cl.Threshold)
	assert.Equal(t, 99.5, cl.DegradedBelow)
}
