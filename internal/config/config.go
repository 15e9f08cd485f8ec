// Package config provides configuration types, defaults and validation for
// the recruit site.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/recruitsite/recruit/internal/applications"
	"github.com/recruitsite/recruit/internal/log"
	"github.com/recruitsite/recruit/internal/tracing"
)

// Config holds all configuration options for recruit.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Watcher  WatcherConfig  `mapstructure:"watcher"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP server options.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// TemplatesDir overrides the embedded templates when set. Files missing
	// from the directory fall back to the embedded ones.
	TemplatesDir string `mapstructure:"templates_dir"`
}

// DatabaseConfig holds storage options.
type DatabaseConfig struct {
	Path                string `mapstructure:"path"`
	AutoMigrate         bool   `mapstructure:"auto_migrate"`
	BackupBeforeMigrate bool   `mapstructure:"backup_before_migrate"`
}

// CacheConfig holds cache options.
type CacheConfig struct {
	// PageTTL bounds how long a page looked up by file name is reused.
	PageTTL time.Duration `mapstructure:"page_ttl"`
}

// WatcherConfig controls refreshing render data when another process writes
// the database.
type WatcherConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// TelegramConfig controls application notifications.
type TelegramConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// TokenEnv names the environment variable holding the bot token.
	TokenEnv   string        `mapstructure:"token_env"`
	ChatID     string        `mapstructure:"chat_id"`
	Timeout    time.Duration `mapstructure:"timeout"`
	APIBaseURL string        `mapstructure:"api_base_url"`
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp"
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for "file" exporter.
	// Default: ~/.config/recruit/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`

	ServiceName string `mapstructure:"service_name"`
}

// LogConfig holds logging options. An empty Path logs to stderr.
type LogConfig struct {
	Path  string `mapstructure:"path"`
	Level string `mapstructure:"level"`
	Debug bool   `mapstructure:"debug"`
}

// DefaultTracesFilePath returns the default path for trace files.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".recruit", "traces", "traces.jsonl")
	}
	return filepath.Join(home, ".config", "recruit", "traces", "traces.jsonl")
}

// Defaults returns a Config with the default values.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:                filepath.Join(".recruit", "recruit.db"),
			AutoMigrate:         true,
			BackupBeforeMigrate: true,
		},
		Cache: CacheConfig{
			PageTTL: 5 * time.Minute,
		},
		Watcher: WatcherConfig{
			Enabled:  true,
			Debounce: 500 * time.Millisecond,
		},
		Telegram: TelegramConfig{
			Enabled:    false,
			TokenEnv:   "RECRUIT_TELEGRAM_TOKEN",
			Timeout:    10 * time.Second,
			APIBaseURL: applications.DefaultTelegramBaseURL,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     "", // Derived from the home directory at runtime
			OTLPEndpoint: tracing.DefaultOTLPEndpoint,
			SampleRate:   1.0,
			ServiceName:  tracing.DefaultServiceName,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks every section and joins the problems found.
func (c Config) Validate() error {
	return errors.Join(
		ValidateServer(c.Server),
		ValidateDatabase(c.Database),
		ValidateTelegram(c.Telegram),
		ValidateTracing(c.Tracing),
		ValidateLog(c.Log),
	)
}

// ValidateServer checks server configuration for errors.
func ValidateServer(server ServerConfig) error {
	if server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if server.ReadTimeout < 0 || server.WriteTimeout < 0 {
		return errors.New("server timeouts must not be negative")
	}
	if server.TemplatesDir != "" {
		info, err := os.Stat(server.TemplatesDir)
		if err != nil {
			return fmt.Errorf("server.templates_dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("server.templates_dir %q is not a directory", server.TemplatesDir)
		}
	}
	return nil
}

// ValidateDatabase checks database configuration for errors.
func ValidateDatabase(db DatabaseConfig) error {
	if db.Path == "" {
		return errors.New("database.path is required")
	}
	return nil
}

// ValidateTelegram checks notification settings. They are only required when
// notifications are enabled.
func ValidateTelegram(tg TelegramConfig) error {
	if !tg.Enabled {
		return nil
	}
	if err := applications.ValidateEnvName(tg.TokenEnv); err != nil {
		return fmt.Errorf("telegram.token_env: %w", err)
	}
	if err := applications.ValidateChatID(tg.ChatID); err != nil {
		return fmt.Errorf("telegram.chat_id: %w", err)
	}
	if tg.Timeout < 0 {
		return errors.New("telegram.timeout must not be negative")
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tr TracingConfig) error {
	if tr.SampleRate < 0.0 || tr.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tr.SampleRate)
	}

	if tr.Exporter != "" {
		switch tr.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tr.Exporter)
		}
	}

	if tr.Enabled && tr.Exporter == "otlp" && tr.OTLPEndpoint == "" {
		return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
	}
	return nil
}

// ValidateLog checks the log level name.
func ValidateLog(l LogConfig) error {
	if l.Level == "" {
		return nil
	}
	if _, err := log.ParseLevel(l.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// TracingProviderConfig converts the tracing section for tracing.NewProvider,
// filling in the default file path.
func (c Config) TracingProviderConfig() tracing.Config {
	filePath := c.Tracing.FilePath
	if filePath == "" {
		filePath = DefaultTracesFilePath()
	}
	return tracing.Config{
		Enabled:      c.Tracing.Enabled,
		Exporter:     c.Tracing.Exporter,
		FilePath:     filePath,
		OTLPEndpoint: c.Tracing.OTLPEndpoint,
		SampleRate:   c.Tracing.SampleRate,
		ServiceName:  c.Tracing.ServiceName,
	}
}

// TelegramNotifierConfig converts the telegram section for the notifier.
func (c Config) TelegramNotifierConfig() applications.TelegramConfig {
	return applications.TelegramConfig{
		TokenEnv: c.Telegram.TokenEnv,
		ChatID:   c.Telegram.ChatID,
		BaseURL:  c.Telegram.APIBaseURL,
		Timeout:  c.Telegram.Timeout,
	}
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	tmpl, err := DefaultConfigTemplate()
	if err != nil {
		return err
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(tmpl), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
