package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	JQuants  JQuantsConfig  `toml:"jquants"`
	Data     DataConfig     `toml:"data"`
	Report   ReportConfig   `toml:"report"`
	Schedule ScheduleConfig `toml:"schedule"`
	Logging  LoggingConfig  `toml:"logging"`
}

// JQuantsConfig contains J-Quants API credentials and client settings.
// Either RefreshToken or MailAddress+Password must be provided; the client
// exchanges credentials for a refresh token when no token is configured.
type JQuantsConfig struct {
	BaseURL      string `toml:"base_url"`
	RefreshToken string `toml:"refresh_token"`
	MailAddress  string `toml:"mail_address" validate:"omitempty,email"`
	Password     string `toml:"password"`
	RateLimit    int    `toml:"rate_limit" validate:"gte=1,lte=60"` // requests per second
	Timeout      string `toml:"timeout"`
}

// DataConfig controls the on-disk cache layout
type DataConfig struct {
	Dir   string `toml:"dir" validate:"required"`
	Years int    `toml:"years" validate:"gte=1,lte=10"` // years of price history to fetch
}

// ReportConfig controls report generation
type ReportConfig struct {
	Watchlist []string `toml:"watchlist" validate:"dive,min=4,max=5"`
	OutputDir string   `toml:"output_dir"` // empty = <data.dir>/outputs
}

// ScheduleConfig controls the recurring watchlist run
type ScheduleConfig struct {
	Enabled bool   `toml:"enabled"`
	Cron    string `toml:"cron"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=debug info warn error"`
	Output []string `toml:"output" validate:"dive,oneof=stdout console file"`
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings are exposed in kabu.toml; technical parameters
// are hardcoded here for stability.
func NewDefaultConfig() *Config {
	return &Config{
		JQuants: JQuantsConfig{
			BaseURL:   "https://api.jquants.com/v1",
			RateLimit: 5,     // J-Quants free tier tolerates short bursts only
			Timeout:   "30s", // HTTP timeout per request
		},
		Data: DataConfig{
			Dir:   "./data",
			Years: 3,
		},
		Report: ReportConfig{},
		Schedule: ScheduleConfig{
			Enabled: false,
			Cron:    "0 18 * * 1-5", // weekday evenings JST, after EOD data lands
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFiles loads configuration from one or more TOML files.
// Resolution order: defaults -> file1 -> file2 -> ... -> environment.
// Later files override earlier ones; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies KABU_* environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// J-Quants configuration
	if baseURL := os.Getenv("KABU_JQUANTS_BASE_URL"); baseURL != "" {
		config.JQuants.BaseURL = baseURL
	}
	if token := os.Getenv("KABU_JQUANTS_REFRESH_TOKEN"); token != "" {
		config.JQuants.RefreshToken = token
	}
	if mail := os.Getenv("KABU_JQUANTS_MAIL_ADDRESS"); mail != "" {
		config.JQuants.MailAddress = mail
	}
	if password := os.Getenv("KABU_JQUANTS_PASSWORD"); password != "" {
		config.JQuants.Password = password
	}
	if rateLimit := os.Getenv("KABU_JQUANTS_RATE_LIMIT"); rateLimit != "" {
		if rl, err := strconv.Atoi(rateLimit); err == nil && rl > 0 {
			config.JQuants.RateLimit = rl
		}
	}
	if timeout := os.Getenv("KABU_JQUANTS_TIMEOUT"); timeout != "" {
		if _, err := time.ParseDuration(timeout); err == nil {
			config.JQuants.Timeout = timeout
		}
	}

	// Data configuration
	if dir := os.Getenv("KABU_DATA_DIR"); dir != "" {
		config.Data.Dir = dir
	}
	if years := os.Getenv("KABU_DATA_YEARS"); years != "" {
		if y, err := strconv.Atoi(years); err == nil && y > 0 {
			config.Data.Years = y
		}
	}

	// Report configuration
	if watchlist := os.Getenv("KABU_REPORT_WATCHLIST"); watchlist != "" {
		codes := []string{}
		for _, c := range strings.Split(watchlist, ",") {
			trimmed := strings.TrimSpace(c)
			if trimmed != "" {
				codes = append(codes, trimmed)
			}
		}
		if len(codes) > 0 {
			config.Report.Watchlist = codes
		}
	}
	if outputDir := os.Getenv("KABU_REPORT_OUTPUT_DIR"); outputDir != "" {
		config.Report.OutputDir = outputDir
	}

	// Schedule configuration
	if enabled := os.Getenv("KABU_SCHEDULE_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Schedule.Enabled = e
		}
	}
	if cronExpr := os.Getenv("KABU_SCHEDULE_CRON"); cronExpr != "" {
		config.Schedule.Cron = cronExpr
	}

	// Logging configuration
	if level := os.Getenv("KABU_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("KABU_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			trimmed := strings.TrimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
// Command-line flags have highest priority.
func ApplyFlagOverrides(config *Config, outputDir string, schedule bool) {
	if outputDir != "" {
		config.Report.OutputDir = outputDir
	}
	if schedule {
		config.Schedule.Enabled = true
	}
}

// Validate validates the configuration using go-playground/validator
// plus the cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}

	if _, err := time.ParseDuration(c.JQuants.Timeout); err != nil {
		return fmt.Errorf("jquants.timeout: %w", err)
	}

	if c.Schedule.Enabled {
		if err := ValidateSchedule(c.Schedule.Cron); err != nil {
			return err
		}
	}

	return nil
}

// HasCredentials reports whether the config carries enough to authenticate
// against the J-Quants API.
func (c *JQuantsConfig) HasCredentials() bool {
	return c.RefreshToken != "" || (c.MailAddress != "" && c.Password != "")
}

// HTTPTimeout returns the parsed HTTP timeout, falling back to 30s.
func (c *JQuantsConfig) HTTPTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// ValidateSchedule validates a cron schedule expression and ensures a
// minimum 5-minute interval so a misconfigured schedule cannot hammer the API.
func ValidateSchedule(expr string) error {
	if expr == "" {
		return fmt.Errorf("schedule.cron is empty")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(expr)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	// Probe two consecutive fire times to enforce the minimum interval
	first := sched.Next(time.Now())
	second := sched.Next(first)
	if second.Sub(first) < 5*time.Minute {
		return fmt.Errorf("cron expression %q fires more often than every 5 minutes", expr)
	}

	return nil
}
