package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Worker      WorkerConfig     `toml:"worker"`
	WebSocket   WebSocketConfig  `toml:"websocket"`
	Translator  TranslatorConfig `toml:"translator"`
	Logging     LoggingConfig    `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

// WorkerConfig controls the background job worker.
type WorkerConfig struct {
	PollInterval        string `toml:"poll_interval"`         // e.g. "5s" - how often the worker polls for pending jobs
	MTBatchSize         int    `toml:"mt_batch_size"`         // Segments translated per batch (default: 5)
	MTBatchDelay        string `toml:"mt_batch_delay"`        // Pause between batches to respect provider rate limits
	TemplateBatchSize   int    `toml:"template_batch_size"`   // Segments per template-application batch
	StaleAfter          string `toml:"stale_after"`           // Processing jobs older than this are swept to failed
	Retention           string `toml:"retention"`             // Terminal jobs older than this are purged
	SweepSchedule       string `toml:"sweep_schedule"`        // Cron schedule for the maintenance sweeper
	ThroughputPerMinute int    `toml:"throughput_per_minute"` // Assumed segments/minute for remaining-time estimates
}

// WebSocketConfig contains configuration for the collaboration channel
type WebSocketConfig struct {
	// Throttle intervals for high-frequency events. Map of event type to
	// duration string, e.g. {"file_progress": "500ms"}.
	ThrottleIntervals map[string]string `toml:"throttle_intervals"`
}

// TranslatorConfig selects and configures the MT provider.
type TranslatorConfig struct {
	Provider string       `toml:"provider" validate:"omitempty,oneof=claude gemini offline"`
	Claude   ClaudeConfig `toml:"claude"`
	Gemini   GeminiConfig `toml:"gemini"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`       // Default: "claude-haiku-3-5-20241022"
	MaxTokens   int     `toml:"max_tokens"`  // Default: 1024
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "1m")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0)
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`   // Default: "gemini-2.0-flash"
	Timeout     string  `toml:"timeout"` // Operation timeout as duration string (default: "1m")
	Temperature float32 `toml:"temperature"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// DefaultConfig returns the configuration defaults applied before any
// file or environment override.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/lingua",
			},
		},
		Worker: WorkerConfig{
			PollInterval:        "5s",
			MTBatchSize:         5,
			MTBatchDelay:        "1s",
			TemplateBatchSize:   20,
			StaleAfter:          "30m",
			Retention:           "168h",
			SweepSchedule:       "*/5 * * * *",
			ThroughputPerMinute: 10,
		},
		WebSocket: WebSocketConfig{
			ThrottleIntervals: map[string]string{},
		},
		Translator: TranslatorConfig{
			Provider: "offline",
			Claude: ClaudeConfig{
				Model:     "claude-haiku-3-5-20241022",
				MaxTokens: 1024,
				Timeout:   "1m",
			},
			Gemini: GeminiConfig{
				Model:   "gemini-2.0-flash",
				Timeout: "1m",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
	}
}

// LoadFromFiles loads configuration from defaults, then each TOML file in
// order (later files override earlier ones), then environment variables.
func LoadFromFiles(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies LINGUA_* environment variables on top of the
// file configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LINGUA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LINGUA_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("LINGUA_STORAGE_PATH"); v != "" {
		cfg.Storage.Badger.Path = v
	}
	if v := os.Getenv("LINGUA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LINGUA_TRANSLATOR_PROVIDER"); v != "" {
		cfg.Translator.Provider = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && cfg.Translator.Claude.APIKey == "" {
		cfg.Translator.Claude.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && cfg.Translator.Gemini.APIKey == "" {
		cfg.Translator.Gemini.APIKey = v
	}
}

// ApplyFlagOverrides applies command-line flag values (highest priority).
func ApplyFlagOverrides(cfg *Config, port int, host string) {
	if port != 0 {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}
}

// Validate checks structural validity plus the duration fields the
// struct tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"worker.poll_interval":  c.Worker.PollInterval,
		"worker.mt_batch_delay": c.Worker.MTBatchDelay,
		"worker.stale_after":    c.Worker.StaleAfter,
		"worker.retention":      c.Worker.Retention,
	}
	for field, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", field, err)
		}
	}

	if c.Worker.MTBatchSize <= 0 {
		return fmt.Errorf("worker.mt_batch_size must be positive")
	}
	if c.Worker.ThroughputPerMinute <= 0 {
		return fmt.Errorf("worker.throughput_per_minute must be positive")
	}
	return nil
}

// PollInterval returns the parsed worker poll interval.
func (w *WorkerConfig) PollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(w.PollInterval)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// MTBatchDelayDuration returns the parsed inter-batch delay.
func (w *WorkerConfig) MTBatchDelayDuration() time.Duration {
	d, err := time.ParseDuration(w.MTBatchDelay)
	if err != nil {
		return time.Second
	}
	return d
}

// StaleAfterDuration returns the parsed stale-job window.
func (w *WorkerConfig) StaleAfterDuration() time.Duration {
	d, err := time.ParseDuration(w.StaleAfter)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// RetentionDuration returns the parsed terminal-job retention window.
func (w *WorkerConfig) RetentionDuration() time.Duration {
	d, err := time.ParseDuration(w.Retention)
	if err != nil {
		return 7 * 24 * time.Hour
	}
	return d
}
