package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "wayfarer", cfg.Logger.ServiceName)

	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 30, cfg.Browser.LaunchAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Browser.LaunchRetryInterval)
	assert.Equal(t, 30*time.Second, cfg.Browser.CommandTimeout)

	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, "./results", cfg.Store.Dir)

	require.NoError(t, cfg.Validate())
}

func TestConfigOverridesFromViper(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("browser.headless", false)
	v.Set("browser.command_timeout", "10s")
	v.Set("llm.model", "gemini-2.5-pro")

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 10*time.Second, cfg.Browser.CommandTimeout)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero launch attempts", func(c *Config) { c.Browser.LaunchAttempts = 0 }},
		{"negative retry interval", func(c *Config) { c.Browser.LaunchRetryInterval = -time.Second }},
		{"zero command timeout", func(c *Config) { c.Browser.CommandTimeout = 0 }},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "watson" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
