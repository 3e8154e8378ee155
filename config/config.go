// Package config loads service settings from an optional YAML file with
// environment-variable overrides on top.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = "8080"
	defaultTab            = "Sheet1"
	defaultExclusionPath  = "data/exclusion list.xlsx"
	defaultDashboardDir   = "./static"
	defaultRefreshSec     = 600
	minRefreshSec         = 30
	maxRefreshSec         = 86400
	defaultHTTPTimeoutSec = 30
)

// Config holds all service settings.
type Config struct {
	SheetID       string `json:"sheet_id" yaml:"sheet_id"`
	SheetTab      string `json:"sheet_tab" yaml:"sheet_tab"`
	SheetAPIKey   string `json:"-" yaml:"-"`
	ExclusionPath string `json:"exclusion_path" yaml:"exclusion_path"`
	HTTPPort      string `json:"http_port" yaml:"http_port"`
	DashboardDir  string `json:"dashboard_dir" yaml:"dashboard_dir"`

	RefreshIntervalSec int  `json:"refresh_interval_sec" yaml:"refresh_interval_sec"`
	HTTPTimeoutSec     int  `json:"http_timeout_sec" yaml:"http_timeout_sec"`
	EnableWatcher      bool `json:"enable_watcher" yaml:"enable_watcher"`
	StrictConfig       bool `json:"-" yaml:"-"`
}

type fileConfig struct {
	SheetID            string `yaml:"sheet_id"`
	SheetTab           string `yaml:"sheet_tab"`
	ExclusionPath      string `yaml:"exclusion_path"`
	HTTPPort           string `yaml:"http_port"`
	DashboardDir       string `yaml:"dashboard_dir"`
	RefreshIntervalSec *int   `yaml:"refresh_interval_sec"`
	HTTPTimeoutSec     *int   `yaml:"http_timeout_sec"`
	EnableWatcher      *bool  `yaml:"enable_watcher"`
}

// RefreshInterval returns the refresh cadence as a duration.
func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSec) * time.Second
}

// HTTPTimeout returns the outbound request timeout as a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// Load reads the config file named by CONFIG_PATH (default config.yaml) and
// applies environment overrides. In strict mode any problem is fatal; outside
// it the loader logs and continues with defaults, because an upload-only
// deployment has no sheet to configure.
func Load() (Config, error) {
	cfg := Config{
		SheetAPIKey:  os.Getenv("SHEETS_API_KEY"),
		StrictConfig: parseBoolEnv("STRICT_CONFIG"),
	}

	configPath := getEnv("CONFIG_PATH", filepath.Join("config", "config.yaml"))
	fileCfg, fileErr := loadFileConfig(configPath)
	if fileErr != nil && !errors.Is(fileErr, os.ErrNotExist) {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("config load failed (%s): %w", configPath, fileErr)
		}
		log.Printf("config load failed (%s): %v (using defaults)", configPath, fileErr)
	}

	cfg.SheetID = firstNonEmpty(os.Getenv("SHEET_ID"), fileCfg.SheetID)
	cfg.SheetTab = firstNonEmpty(os.Getenv("SHEET_TAB"), fileCfg.SheetTab, defaultTab)
	cfg.ExclusionPath = firstNonEmpty(os.Getenv("EXCLUSION_PATH"), fileCfg.ExclusionPath, defaultExclusionPath)
	cfg.DashboardDir = firstNonEmpty(os.Getenv("DASHBOARD_DIR"), fileCfg.DashboardDir, defaultDashboardDir)

	cfg.HTTPPort = firstNonEmpty(os.Getenv("HTTP_PORT"), os.Getenv("PORT"), fileCfg.HTTPPort, defaultPort)
	if !strings.HasPrefix(cfg.HTTPPort, ":") {
		cfg.HTTPPort = ":" + cfg.HTTPPort
	}

	cfg.RefreshIntervalSec = defaultRefreshSec
	if fileCfg.RefreshIntervalSec != nil {
		cfg.RefreshIntervalSec = *fileCfg.RefreshIntervalSec
	}
	if v := os.Getenv("REFRESH_INTERVAL_SEC"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			if cfg.StrictConfig {
				return cfg, fmt.Errorf("invalid REFRESH_INTERVAL_SEC: %w", err)
			}
			log.Printf("invalid REFRESH_INTERVAL_SEC=%q, using default %d", v, defaultRefreshSec)
			n = defaultRefreshSec
		}
		cfg.RefreshIntervalSec = n
	}
	if cfg.RefreshIntervalSec < minRefreshSec {
		log.Printf("refresh interval raised to minimum %ds (was %ds)", minRefreshSec, cfg.RefreshIntervalSec)
		cfg.RefreshIntervalSec = minRefreshSec
	}
	if cfg.RefreshIntervalSec > maxRefreshSec {
		log.Printf("refresh interval capped at %ds (was %ds)", maxRefreshSec, cfg.RefreshIntervalSec)
		cfg.RefreshIntervalSec = maxRefreshSec
	}

	cfg.HTTPTimeoutSec = defaultHTTPTimeoutSec
	if fileCfg.HTTPTimeoutSec != nil && *fileCfg.HTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = *fileCfg.HTTPTimeoutSec
	}
	if v := os.Getenv("HTTP_TIMEOUT_SEC"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			if cfg.StrictConfig {
				return cfg, fmt.Errorf("invalid HTTP_TIMEOUT_SEC: %q", v)
			}
			log.Printf("invalid HTTP_TIMEOUT_SEC=%q, using default %d", v, defaultHTTPTimeoutSec)
			n = defaultHTTPTimeoutSec
		}
		cfg.HTTPTimeoutSec = n
	}

	cfg.EnableWatcher = true
	if fileCfg.EnableWatcher != nil {
		cfg.EnableWatcher = *fileCfg.EnableWatcher
	}
	if v := os.Getenv("ENABLE_WATCHER"); v != "" {
		cfg.EnableWatcher = parseBoolEnv("ENABLE_WATCHER")
	}

	if err := validate(cfg); err != nil {
		if cfg.StrictConfig {
			return cfg, err
		}
		log.Printf("config validation: %v (continuing; upload fallback still works)", err)
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.SheetID) == "" {
		return errors.New("SHEET_ID is not set; remote refresh disabled")
	}
	if strings.TrimSpace(cfg.SheetAPIKey) == "" {
		return errors.New("SHEETS_API_KEY is not set; remote refresh disabled")
	}
	return nil
}

// HasSheetSource reports whether the remote sheet is configured at all.
func (c Config) HasSheetSource() bool {
	return strings.TrimSpace(c.SheetID) != "" && strings.TrimSpace(c.SheetAPIKey) != ""
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if len(data) == 0 {
		return cfg, errors.New("empty config file")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBoolEnv(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
