package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "https://api.jquants.com/v1", config.JQuants.BaseURL)
	assert.Equal(t, 5, config.JQuants.RateLimit)
	assert.Equal(t, "./data", config.Data.Dir)
	assert.Equal(t, 3, config.Data.Years)
	assert.False(t, config.Schedule.Enabled)
	assert.Equal(t, "info", config.Logging.Level)

	assert.NoError(t, config.Validate())
}

func TestLoadFromFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kabu.toml")
	content := `
[data]
dir = "/var/kabu"
years = 5

[report]
watchlist = ["7203", "67580"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/kabu", config.Data.Dir)
	assert.Equal(t, 5, config.Data.Years)
	assert.Equal(t, []string{"7203", "67580"}, config.Report.Watchlist)
	// Untouched sections keep their defaults
	assert.Equal(t, "https://api.jquants.com/v1", config.JQuants.BaseURL)
}

func TestLoadFromFiles_LaterFileWins(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.toml")
	second := filepath.Join(dir, "second.toml")
	require.NoError(t, os.WriteFile(first, []byte("[data]\nyears = 2\n"), 0644))
	require.NoError(t, os.WriteFile(second, []byte("[data]\nyears = 7\n"), 0644))

	config, err := LoadFromFiles(first, second)
	require.NoError(t, err)
	assert.Equal(t, 7, config.Data.Years)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("KABU_DATA_DIR", "/tmp/kabu-env")
	t.Setenv("KABU_REPORT_WATCHLIST", "7203, 6758")
	t.Setenv("KABU_SCHEDULE_ENABLED", "true")
	t.Setenv("KABU_SCHEDULE_CRON", "0 6 * * *")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/kabu-env", config.Data.Dir)
	assert.Equal(t, []string{"7203", "6758"}, config.Report.Watchlist)
	assert.True(t, config.Schedule.Enabled)
	assert.Equal(t, "0 6 * * *", config.Schedule.Cron)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()
	ApplyFlagOverrides(config, "/tmp/out", true)
	assert.Equal(t, "/tmp/out", config.Report.OutputDir)
	assert.True(t, config.Schedule.Enabled)

	// Empty flag values leave the config alone
	config = NewDefaultConfig()
	ApplyFlagOverrides(config, "", false)
	assert.Empty(t, config.Report.OutputDir)
	assert.False(t, config.Schedule.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults pass", func(c *Config) {}, false},
		{"bad timeout", func(c *Config) { c.JQuants.Timeout = "soon" }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"rate limit too high", func(c *Config) { c.JQuants.RateLimit = 100 }, true},
		{"watchlist code too short", func(c *Config) { c.Report.Watchlist = []string{"72"} }, true},
		{"schedule disabled skips cron check", func(c *Config) { c.Schedule.Cron = "not cron" }, false},
		{"schedule enabled validates cron", func(c *Config) {
			c.Schedule.Enabled = true
			c.Schedule.Cron = "not cron"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewDefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("0 18 * * 1-5"))
	assert.NoError(t, ValidateSchedule("*/5 * * * *"))
	assert.Error(t, ValidateSchedule(""))
	assert.Error(t, ValidateSchedule("every day"))
	// Sub-5-minute schedules are rejected
	assert.Error(t, ValidateSchedule("* * * * *"))
}

func TestHasCredentials(t *testing.T) {
	c := JQuantsConfig{}
	assert.False(t, c.HasCredentials())

	c = JQuantsConfig{RefreshToken: "tok"}
	assert.True(t, c.HasCredentials())

	c = JQuantsConfig{MailAddress: "a@example.com"}
	assert.False(t, c.HasCredentials())

	c = JQuantsConfig{MailAddress: "a@example.com", Password: "pw"}
	assert.True(t, c.HasCredentials())
}
