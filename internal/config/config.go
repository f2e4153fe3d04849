// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
}

// LoggerConfig controls the global zap logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the browser process and the debugging channel.
type BrowserConfig struct {
	// BinaryPath is the Chromium/Chrome executable. Empty means autodetect
	// from a list of well-known locations.
	BinaryPath string   `mapstructure:"binary_path" yaml:"binary_path"`
	Headless   bool     `mapstructure:"headless" yaml:"headless"`
	Args       []string `mapstructure:"args" yaml:"args"`

	// LaunchAttempts and LaunchRetryInterval bound the wait for the remote
	// debugging endpoint to come up after the process is spawned.
	LaunchAttempts      int           `mapstructure:"launch_attempts" yaml:"launch_attempts"`
	LaunchRetryInterval time.Duration `mapstructure:"launch_retry_interval" yaml:"launch_retry_interval"`

	// CommandTimeout bounds each individual protocol command round trip.
	CommandTimeout time.Duration `mapstructure:"command_timeout" yaml:"command_timeout"`

	// SettleDelay is the fixed pause used around page readiness checks and
	// before interacting with freshly scrolled elements.
	SettleDelay time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`

	// ReadyPollInterval and ReadyPollAttempts bound the in-page
	// document-ready poll after navigation.
	ReadyPollInterval time.Duration `mapstructure:"ready_poll_interval" yaml:"ready_poll_interval"`
	ReadyPollAttempts int           `mapstructure:"ready_poll_attempts" yaml:"ready_poll_attempts"`
}

// LLMProvider identifies the backing model provider for the resolver and translator.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
)

// LLMConfig configures the selector/content resolver and the plan translator.
type LLMConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`

	// RequestsPerMinute rate-limits outbound model calls. Zero disables the limiter.
	RequestsPerMinute int `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`

	// MaxDocumentBytes truncates page markup before it is sent to the model.
	MaxDocumentBytes int `mapstructure:"max_document_bytes" yaml:"max_document_bytes"`
}

// StoreConfig configures the file-based sink for extracted results.
type StoreConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// Logger
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "wayfarer")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)
	v.SetDefault("logger.compress", true)

	// Browser
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.launch_attempts", 30)
	v.SetDefault("browser.launch_retry_interval", 500*time.Millisecond)
	v.SetDefault("browser.command_timeout", 30*time.Second)
	v.SetDefault("browser.settle_delay", 1*time.Second)
	v.SetDefault("browser.ready_poll_interval", 500*time.Millisecond)
	v.SetDefault("browser.ready_poll_attempts", 20)

	// LLM
	v.SetDefault("llm.provider", string(ProviderGemini))
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.api_timeout", 60*time.Second)
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 8192)
	v.SetDefault("llm.requests_per_minute", 30)
	v.SetDefault("llm.max_document_bytes", 200_000)

	// Store
	v.SetDefault("store.dir", "./results")
}

// NewDefaultConfig returns a Config populated with the default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static; this only fires on a programming error.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Validate checks cross-field constraints that viper cannot express.
func (c *Config) Validate() error {
	if c.Browser.LaunchAttempts <= 0 {
		return fmt.Errorf("browser.launch_attempts must be positive, got %d", c.Browser.LaunchAttempts)
	}
	if c.Browser.LaunchRetryInterval <= 0 {
		return fmt.Errorf("browser.launch_retry_interval must be positive, got %s", c.Browser.LaunchRetryInterval)
	}
	if c.Browser.CommandTimeout <= 0 {
		return fmt.Errorf("browser.command_timeout must be positive, got %s", c.Browser.CommandTimeout)
	}
	if c.LLM.Provider != ProviderGemini {
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	return nil
}
