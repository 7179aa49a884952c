package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/georisk"
)

// #region types
// Config is the full runtime configuration.
type Config struct {
	Storage  Storage  `toml:"storage"`
	LLM      LLM      `toml:"llm"`
	Schedule Schedule `toml:"schedule"`
	Logging  Logging  `toml:"logging"`
	Daemon   Daemon   `toml:"daemon"`
	Risk     Risk     `toml:"risk"`
}

type Storage struct {
	DataDir       string `toml:"data_dir"`
	DBPath        string `toml:"db_path"`
	TranscriptDir string `toml:"transcript_dir"`
}

type LLM struct {
	APIKey             string `toml:"api_key"`
	BaseURL            string `toml:"base_url"`
	Model              string `toml:"model"`
	MaxTokens          int    `toml:"max_tokens"`
	WebSearchMaxUses   int    `toml:"web_search_max_uses"`
	MinBriefIntervalS  int    `toml:"min_brief_interval_seconds"`
	RequestTimeoutSecs int    `toml:"request_timeout_seconds"`
}

type Schedule struct {
	QuickScanMinutes int    `toml:"quick_scan_minutes"`
	DailyBriefAt     string `toml:"daily_brief_at"`
	Timezone         string `toml:"timezone"`
}

type Logging struct {
	Format string `toml:"format"`
	Debug  bool   `toml:"debug"`
}

type Daemon struct {
	HealthAddr string `toml:"health_addr"`
	LockFile   string `toml:"lock_file"`
}

type Risk struct {
	Category         string             `toml:"category"`
	VehicleModifiers map[string]float64 `toml:"vehicle_modifiers"`
}

// #endregion types

// #region defaults
// Default returns the built-in configuration.
func Default() Config {
	dataDir := defaultDataDir()
	risk := georisk.DefaultConfig()
	return Config{
		Storage: Storage{
			DataDir: dataDir,
			DBPath:  filepath.Join(dataDir, "sentinel.db"),
		},
		LLM: LLM{
			Model:              "claude-sonnet-4-20250514",
			MaxTokens:          16000,
			WebSearchMaxUses:   10,
			MinBriefIntervalS:  60,
			RequestTimeoutSecs: 600,
		},
		Schedule: Schedule{
			QuickScanMinutes: 240,
			DailyBriefAt:     "06:30",
			Timezone:         "Local",
		},
		Logging: Logging{Format: "auto"},
		Daemon: Daemon{
			HealthAddr: "127.0.0.1:7471",
			LockFile:   filepath.Join(dataDir, "sentinel.lock"),
		},
		Risk: Risk{
			Category:         risk.Category,
			VehicleModifiers: risk.Modifiers,
		},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "safety-sentinel")
	}
	return ".sentinel"
}

// #endregion defaults

// #region load
// Load reads defaults, then the TOML file at path if it exists, then the
// environment. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(ExpandPath(path))
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.ApplyEnv()
	cfg.normalize(Default())
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv returns cfg with the environment applied.
func FromEnv(cfg Config) Config {
	cfg.ApplyEnv()
	return cfg
}

// ApplyEnv overrides fields from SENTINEL_* variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SENTINEL_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("SENTINEL_DB"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("SENTINEL_TRANSCRIPT_DIR"); v != "" {
		c.Storage.TranscriptDir = v
	}
	if v := os.Getenv("SENTINEL_API_KEY"); v != "" {
		c.LLM.APIKey = v
	} else if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if v := os.Getenv("SENTINEL_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("SENTINEL_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("SENTINEL_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.LLM.MaxTokens = n
		}
	}
	if v := os.Getenv("SENTINEL_WEB_SEARCH_MAX_USES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.LLM.WebSearchMaxUses = n
		}
	}
	if v := os.Getenv("SENTINEL_MIN_BRIEF_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.LLM.MinBriefIntervalS = int(d.Seconds())
		}
	}
	if v := os.Getenv("SENTINEL_DAILY_BRIEF_AT"); v != "" {
		c.Schedule.DailyBriefAt = v
	}
	if v := os.Getenv("SENTINEL_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("SENTINEL_DEBUG"); v != "" {
		c.Logging.Debug = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("SENTINEL_HEALTH_ADDR"); v != "" {
		c.Daemon.HealthAddr = v
	}
}

// normalize re-derives paths that still point into the default data dir
// after data_dir was overridden.
func (c *Config) normalize(def Config) {
	if c.Storage.DataDir != def.Storage.DataDir {
		if c.Storage.DBPath == def.Storage.DBPath {
			c.Storage.DBPath = filepath.Join(c.Storage.DataDir, "sentinel.db")
		}
		if c.Daemon.LockFile == def.Daemon.LockFile {
			c.Daemon.LockFile = filepath.Join(c.Storage.DataDir, "sentinel.lock")
		}
	}
	c.Storage.DataDir = ExpandPath(c.Storage.DataDir)
	c.Storage.DBPath = ExpandPath(c.Storage.DBPath)
	c.Storage.TranscriptDir = ExpandPath(c.Storage.TranscriptDir)
	c.Daemon.LockFile = ExpandPath(c.Daemon.LockFile)
	if c.Daemon.LockFile == "" {
		c.Daemon.LockFile = filepath.Join(c.Storage.DataDir, "sentinel.lock")
	}
}

// #endregion load

// #region validate
// Validate rejects values the runtime cannot work with. A missing API key is
// not an error here; brief generation reports it when attempted.
func (c Config) Validate() error {
	var errs []error
	if c.Storage.DBPath == "" {
		errs = append(errs, errors.New("storage.db_path is empty"))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens))
	}
	if c.LLM.WebSearchMaxUses < 0 {
		errs = append(errs, fmt.Errorf("llm.web_search_max_uses must not be negative, got %d", c.LLM.WebSearchMaxUses))
	}
	if c.LLM.MinBriefIntervalS < 0 {
		errs = append(errs, fmt.Errorf("llm.min_brief_interval_seconds must not be negative"))
	}
	if c.Schedule.QuickScanMinutes < 0 {
		errs = append(errs, fmt.Errorf("schedule.quick_scan_minutes must not be negative"))
	}
	if _, _, err := ParseClock(c.Schedule.DailyBriefAt); c.Schedule.DailyBriefAt != "" && err != nil {
		errs = append(errs, fmt.Errorf("schedule.daily_brief_at: %w", err))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("schedule.timezone: %w", err))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "auto", "json", "terminal", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q not one of auto|json|terminal|text", c.Logging.Format))
	}
	for k, v := range c.Risk.VehicleModifiers {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("risk.vehicle_modifiers.%s must be positive", k))
		}
	}
	return errors.Join(errs...)
}

// #endregion validate

// #region accessors
// MinBriefInterval is the minimum spacing between outbound brief requests.
func (c Config) MinBriefInterval() time.Duration {
	return time.Duration(c.LLM.MinBriefIntervalS) * time.Second
}

// QuickScanInterval is zero when quick scans are disabled.
func (c Config) QuickScanInterval() time.Duration {
	return time.Duration(c.Schedule.QuickScanMinutes) * time.Minute
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.LLM.RequestTimeoutSecs) * time.Second
}

// DailyClock returns the daily brief hour and minute; an empty setting
// falls back to the default time.
func (c Config) DailyClock() (hour, minute int) {
	h, m, err := ParseClock(c.Schedule.DailyBriefAt)
	if err != nil {
		h, m, _ = ParseClock(Default().Schedule.DailyBriefAt)
	}
	return h, m
}

// Location resolves the schedule timezone.
func (c Config) Location() (*time.Location, error) {
	switch c.Schedule.Timezone {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	return time.LoadLocation(c.Schedule.Timezone)
}

// RiskModel returns the geospatial model configuration.
func (c Config) RiskModel() georisk.Config {
	cfg := georisk.DefaultConfig()
	if c.Risk.Category != "" {
		cfg.Category = c.Risk.Category
	}
	if len(c.Risk.VehicleModifiers) > 0 {
		cfg.Modifiers = c.Risk.VehicleModifiers
	}
	return cfg
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.LLM.APIKey != "" {
		c.LLM.APIKey = "********"
	}
	return c
}

// Encode renders the config as TOML.
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// #endregion accessors

// #region helpers
// ParseClock parses "HH:MM" in 24-hour form.
func ParseClock(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("bad hour in %q", s)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("bad minute in %q", s)
	}
	return hour, minute, nil
}

// ExpandPath resolves a leading ~ to the home directory.
func ExpandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// #endregion helpers
