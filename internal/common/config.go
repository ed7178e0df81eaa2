package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration. Values are merged in
// order: built-in defaults, config files, SCOUT_* environment variables,
// CLI flag overrides.
type Config struct {
	Environment string          `toml:"environment" yaml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server" yaml:"server"`
	Logging     LoggingConfig   `toml:"logging" yaml:"logging"`
	Storage     StorageConfig   `toml:"storage" yaml:"storage"`
	Crawler     CrawlerConfig   `toml:"crawler" yaml:"crawler"`
	Audit       AuditConfig     `toml:"audit" yaml:"audit"`
	Renderer    RendererConfig  `toml:"renderer" yaml:"renderer"`
	WebSocket   WebSocketConfig `toml:"websocket" yaml:"websocket"`
	Scheduler   SchedulerConfig `toml:"scheduler" yaml:"scheduler"`
}

type ServerConfig struct {
	Port int    `toml:"port" yaml:"port"`
	Host string `toml:"host" yaml:"host"`
}

type LoggingConfig struct {
	Level      string   `toml:"level" yaml:"level"`             // "debug", "info", "warn", "error"
	Output     []string `toml:"output" yaml:"output"`           // "stdout", "file"
	TimeFormat string   `toml:"time_format" yaml:"time_format"` // Go time layout for log timestamps
}

// StorageConfig covers both the Badger-backed job log store and the
// S3-compatible object store for crawl artifacts.
type StorageConfig struct {
	Badger BadgerConfig      `toml:"badger" yaml:"badger"`
	Object ObjectStoreConfig `toml:"object" yaml:"object"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" yaml:"path"`                         // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup" yaml:"reset_on_startup"` // Delete database on startup for clean test runs
	RetentionDays  int    `toml:"retention_days" yaml:"retention_days"`     // Job log retention before pruning
}

// ObjectStoreConfig holds S3-compatible storage settings (R2, MinIO, S3).
type ObjectStoreConfig struct {
	Enabled   bool   `toml:"enabled" yaml:"enabled"`
	Endpoint  string `toml:"endpoint" yaml:"endpoint"`
	Region    string `toml:"region" yaml:"region"`
	Bucket    string `toml:"bucket" yaml:"bucket"`
	AccessKey string `toml:"access_key" yaml:"access_key"`
	SecretKey string `toml:"secret_key" yaml:"secret_key"`
}

// CrawlerConfig holds the engine-level knobs. Per-job limits arrive in
// the job payload and are clamped against these.
type CrawlerConfig struct {
	SharedSecret       string        `toml:"shared_secret" yaml:"shared_secret"`               // HMAC secret for inbound auth and outbound callbacks
	APIBaseURL         string        `toml:"api_base_url" yaml:"api_base_url"`                 // Coordinator base URL for callbacks, backlinks, remote audits
	UserAgent          string        `toml:"user_agent" yaml:"user_agent"`                     // Sent on every fetch and robots/sitemap request
	MaxConcurrentJobs  int           `toml:"max_concurrent_jobs" yaml:"max_concurrent_jobs"`   // Runner pool size
	MaxConcurrentFetch int           `toml:"max_concurrent_fetches" yaml:"max_concurrent_fetches"` // Per-job page worker count
	FetchTimeout       time.Duration `toml:"fetch_timeout" yaml:"fetch_timeout"`
	CallbackTimeout    time.Duration `toml:"callback_timeout" yaml:"callback_timeout"`
	BatchPageThreshold int           `toml:"batch_page_threshold" yaml:"batch_page_threshold"` // Flush a result batch at this many pages
	BatchInterval      time.Duration `toml:"batch_interval" yaml:"batch_interval"`             // Flush a non-empty batch at least this often
	MaxChildSitemaps   int           `toml:"max_child_sitemaps" yaml:"max_child_sitemaps"`
	StaleJobThreshold  time.Duration `toml:"stale_job_threshold" yaml:"stale_job_threshold"` // No progress for this long marks a job failed
}

type AuditConfig struct {
	Enabled       bool   `toml:"enabled" yaml:"enabled"`
	Mode          string `toml:"mode" yaml:"mode"` // "local" (lighthouse CLI) or "remote" (coordinator browser API)
	MaxConcurrent int    `toml:"max_concurrent" yaml:"max_concurrent"`
}

type RendererConfig struct {
	Enabled       bool   `toml:"enabled" yaml:"enabled"`
	Mode          string `toml:"mode" yaml:"mode"` // "script" (node subprocess) or "chromedp" (pooled headless chrome)
	ScriptPath    string `toml:"script_path" yaml:"script_path"`
	MaxConcurrent int    `toml:"max_concurrent" yaml:"max_concurrent"`
}

type WebSocketConfig struct {
	MinLevel        string   `toml:"min_level" yaml:"min_level"`               // Minimum log level forwarded to clients
	ExcludePatterns []string `toml:"exclude_patterns" yaml:"exclude_patterns"` // Substring filters for noisy log lines
}

type SchedulerConfig struct {
	Enabled             bool   `toml:"enabled" yaml:"enabled"`
	MaintenanceSchedule string `toml:"maintenance_schedule" yaml:"maintenance_schedule"` // Cron schedule format
}

// NewDefaultConfig creates a config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/scout.db",
				ResetOnStartup: false,
				RetentionDays:  7,
			},
			Object: ObjectStoreConfig{
				Enabled: false,
				Region:  "auto",
			},
		},
		Crawler: CrawlerConfig{
			UserAgent:          "ScoutBot/1.0",
			MaxConcurrentJobs:  4,
			MaxConcurrentFetch: 10,
			FetchTimeout:       30 * time.Second,
			CallbackTimeout:    30 * time.Second,
			BatchPageThreshold: 25,
			BatchInterval:      15 * time.Second,
			MaxChildSitemaps:   5,
			StaleJobThreshold:  15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:       false,
			Mode:          "local",
			MaxConcurrent: 2,
		},
		Renderer: RendererConfig{
			Enabled:       false,
			Mode:          "script",
			ScriptPath:    "./scripts/render.js",
			MaxConcurrent: 2,
		},
		WebSocket: WebSocketConfig{
			MinLevel:        "info",
			ExcludePatterns: []string{},
		},
		Scheduler: SchedulerConfig{
			Enabled:             true,
			MaintenanceSchedule: "*/5 * * * *",
		},
	}
}

// LoadFromFiles loads configuration from the given files in order, each
// overlaying the previous. Missing files are skipped so callers can pass
// a default search list.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yml", ".yaml":
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		default:
			if err := toml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies SCOUT_* environment variables on top of the
// file-merged configuration.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("SCOUT_ENVIRONMENT"); v != "" {
		config.Environment = v
	}
	if v := os.Getenv("SCOUT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("SCOUT_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("SCOUT_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("SCOUT_SHARED_SECRET"); v != "" {
		config.Crawler.SharedSecret = v
	}
	if v := os.Getenv("SCOUT_API_BASE_URL"); v != "" {
		config.Crawler.APIBaseURL = v
	}
	if v := os.Getenv("SCOUT_USER_AGENT"); v != "" {
		config.Crawler.UserAgent = v
	}
	if v := os.Getenv("SCOUT_MAX_CONCURRENT_JOBS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Crawler.MaxConcurrentJobs = n
		}
	}
	if v := os.Getenv("SCOUT_MAX_CONCURRENT_FETCHES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Crawler.MaxConcurrentFetch = n
		}
	}
	if v := os.Getenv("SCOUT_FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Crawler.FetchTimeout = d
		}
	}
	if v := os.Getenv("SCOUT_BATCH_PAGE_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Crawler.BatchPageThreshold = n
		}
	}
	if v := os.Getenv("SCOUT_BATCH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Crawler.BatchInterval = d
		}
	}
	if v := os.Getenv("SCOUT_BADGER_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("SCOUT_OBJECT_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Storage.Object.Enabled = b
		}
	}
	if v := os.Getenv("SCOUT_OBJECT_ENDPOINT"); v != "" {
		config.Storage.Object.Endpoint = v
	}
	if v := os.Getenv("SCOUT_OBJECT_REGION"); v != "" {
		config.Storage.Object.Region = v
	}
	if v := os.Getenv("SCOUT_OBJECT_BUCKET"); v != "" {
		config.Storage.Object.Bucket = v
	}
	if v := os.Getenv("SCOUT_OBJECT_ACCESS_KEY"); v != "" {
		config.Storage.Object.AccessKey = v
	}
	if v := os.Getenv("SCOUT_OBJECT_SECRET_KEY"); v != "" {
		config.Storage.Object.SecretKey = v
	}
	if v := os.Getenv("SCOUT_AUDIT_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Audit.Enabled = b
		}
	}
	if v := os.Getenv("SCOUT_AUDIT_MODE"); v != "" {
		config.Audit.Mode = v
	}
	if v := os.Getenv("SCOUT_RENDERER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Renderer.Enabled = b
		}
	}
	if v := os.Getenv("SCOUT_RENDERER_MODE"); v != "" {
		config.Renderer.Mode = v
	}
	if v := os.Getenv("SCOUT_RENDERER_SCRIPT_PATH"); v != "" {
		config.Renderer.ScriptPath = v
	}
}

// ApplyFlagOverrides applies command-line flag values. Zero values mean
// the flag was not provided.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks required values. Failures here are startup-fatal.
func (c *Config) Validate() error {
	if c.Crawler.SharedSecret == "" {
		return fmt.Errorf("crawler.shared_secret is required (set SCOUT_SHARED_SECRET or config file)")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Storage.Object.Enabled {
		if c.Storage.Object.Endpoint == "" {
			return fmt.Errorf("storage.object.endpoint is required when object storage is enabled")
		}
		if c.Storage.Object.Bucket == "" {
			return fmt.Errorf("storage.object.bucket is required when object storage is enabled")
		}
		if c.Storage.Object.AccessKey == "" || c.Storage.Object.SecretKey == "" {
			return fmt.Errorf("storage.object credentials are required when object storage is enabled")
		}
	}
	if c.Renderer.Enabled {
		switch c.Renderer.Mode {
		case "script", "chromedp":
		default:
			return fmt.Errorf("renderer.mode must be \"script\" or \"chromedp\", got %q", c.Renderer.Mode)
		}
		if c.Renderer.Mode == "script" && c.Renderer.ScriptPath == "" {
			return fmt.Errorf("renderer.script_path is required in script mode")
		}
	}
	if c.Audit.Enabled {
		switch c.Audit.Mode {
		case "local", "remote":
		default:
			return fmt.Errorf("audit.mode must be \"local\" or \"remote\", got %q", c.Audit.Mode)
		}
		if c.Audit.Mode == "remote" && c.Crawler.APIBaseURL == "" {
			return fmt.Errorf("crawler.api_base_url is required for remote audit mode")
		}
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "production" || env == "prod"
}

// DeepCloneConfig returns an independent copy of the configuration.
func DeepCloneConfig(config *Config) *Config {
	if config == nil {
		return nil
	}
	clone := *config
	clone.Logging.Output = append([]string(nil), config.Logging.Output...)
	clone.WebSocket.ExcludePatterns = append([]string(nil), config.WebSocket.ExcludePatterns...)
	return &clone
}
