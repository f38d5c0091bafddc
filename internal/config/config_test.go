package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Test MQTT defaults
	assert.Equal(t, "localhost", cfg.MQTT.BrokerHost)
	assert.Equal(t, 1883, cfg.MQTT.BrokerPort)
	assert.Equal(t, "twickenham_events", cfg.MQTT.BaseTopic)
	assert.Equal(t, "homeassistant", cfg.MQTT.DiscoveryPrefix)
	assert.Equal(t, 1, cfg.MQTT.QoS)

	// Test scraping defaults
	assert.NotEmpty(t, cfg.Scraping.URL)
	assert.Equal(t, 10, cfg.Scraping.TimeoutSeconds)
	assert.Equal(t, 3, cfg.Scraping.MaxRetries)

	// Test enrichment defaults
	assert.False(t, cfg.Enrichment.Enabled)
	assert.Equal(t, 16, cfg.Enrichment.MaxLength)
	assert.Equal(t, 3, cfg.Enrichment.BreakerThreshold)
	assert.Equal(t, 600, cfg.Enrichment.BreakerCooldownSeconds)

	// Test service defaults
	assert.Equal(t, 3600, cfg.Service.IntervalSeconds)
	assert.Equal(t, 0, cfg.Service.MetricsPort)

	// Test logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		modifyFn  func(*Config)
		wantError bool
		errorMsg  string
	}{
		{
			name:      "valid default config",
			modifyFn:  func(cfg *Config) {},
			wantError: false,
		},
		{
			name: "missing broker host",
			modifyFn: func(cfg *Config) {
				cfg.MQTT.BrokerHost = ""
			},
			wantError: true,
			errorMsg:  "broker host is required",
		},
		{
			name: "invalid broker port",
			modifyFn: func(cfg *Config) {
				cfg.MQTT.BrokerPort = 70000
			},
			wantError: true,
			errorMsg:  "port must be between 1 and 65535",
		},
		{
			name: "invalid qos",
			modifyFn: func(cfg *Config) {
				cfg.MQTT.QoS = 3
			},
			wantError: true,
			errorMsg:  "qos must be 0, 1 or 2",
		},
		{
			name: "password without username",
			modifyFn: func(cfg *Config) {
				cfg.MQTT.Password = "secret"
			},
			wantError: true,
			errorMsg:  "username is required",
		},
		{
			name: "missing scraping url",
			modifyFn: func(cfg *Config) {
				cfg.Scraping.URL = ""
			},
			wantError: true,
			errorMsg:  "scraping url is required",
		},
		{
			name: "malformed scraping url",
			modifyFn: func(cfg *Config) {
				cfg.Scraping.URL = "not a url"
			},
			wantError: true,
			errorMsg:  "invalid url",
		},
		{
			name: "enrichment enabled without api key",
			modifyFn: func(cfg *Config) {
				cfg.Enrichment.Enabled = true
			},
			wantError: true,
			errorMsg:  "api_key is required",
		},
		{
			name: "enrichment enabled with api key",
			modifyFn: func(cfg *Config) {
				cfg.Enrichment.Enabled = true
				cfg.Enrichment.APIKey = "test-key"
			},
			wantError: false,
		},
		{
			name: "interval too short",
			modifyFn: func(cfg *Config) {
				cfg.Service.IntervalSeconds = 30
			},
			wantError: true,
			errorMsg:  "interval must be at least 60 seconds",
		},
		{
			name: "calendar enabled without path",
			modifyFn: func(cfg *Config) {
				cfg.Calendar.Enabled = true
				cfg.Calendar.OutputPath = ""
			},
			wantError: true,
			errorMsg:  "output_path is required",
		},
		{
			name: "invalid logging level",
			modifyFn: func(cfg *Config) {
				cfg.Logging.Level = "verbose"
			},
			wantError: true,
			errorMsg:  "invalid level",
		},
		{
			name: "invalid logging format",
			modifyFn: func(cfg *Config) {
				cfg.Logging.Format = "xml"
			},
			wantError: true,
			errorMsg:  "invalid format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modifyFn(cfg)

			errs := cfg.Validate()
			if tt.wantError {
				require.NotEmpty(t, errs)
				found := false
				for _, err := range errs {
					if strings.Contains(err.Error(), tt.errorMsg) {
						found = true
					}
				}
				assert.True(t, found, "expected an error containing %q, got %v", tt.errorMsg, errs)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
mqtt:
  broker_host: broker.example.com
  broker_port: 8883
  tls_enabled: true
  base_topic: tw_events
  qos: 1
scraping:
  url: https://example.com/events
  max_retries: 5
enrichment:
  enabled: true
  api_key: file-key
  model: gemini-2.5-pro
service:
  interval_seconds: 1800
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	mgr, err := NewConfigManager(path)
	require.NoError(t, err)
	require.NoError(t, mgr.Load(context.Background()))

	cfg := mgr.Get(context.Background())
	assert.Equal(t, "broker.example.com", cfg.MQTT.BrokerHost)
	assert.Equal(t, 8883, cfg.MQTT.BrokerPort)
	assert.True(t, cfg.MQTT.TLSEnabled)
	assert.Equal(t, "tw_events", cfg.MQTT.BaseTopic)
	assert.Equal(t, "https://example.com/events", cfg.Scraping.URL)
	assert.Equal(t, 5, cfg.Scraping.MaxRetries)
	assert.True(t, cfg.Enrichment.Enabled)
	assert.Equal(t, "file-key", cfg.Enrichment.APIKey)
	assert.Equal(t, "gemini-2.5-pro", cfg.Enrichment.Model)
	assert.Equal(t, 1800, cfg.Service.IntervalSeconds)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched sections keep defaults.
	assert.Equal(t, 16, cfg.Enrichment.MaxLength)
	assert.Equal(t, "homeassistant", cfg.MQTT.DiscoveryPrefix)

	require.NoError(t, mgr.Validate(context.Background()))
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	mgr, err := NewConfigManager(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.NoError(t, mgr.Load(context.Background()))

	cfg := mgr.Get(context.Background())
	assert.Equal(t, "localhost", cfg.MQTT.BrokerHost)
	assert.Equal(t, 3600, cfg.Service.IntervalSeconds)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("TWICK_MQTT_BROKER_HOST", "env-broker")
	t.Setenv("TWICK_MQTT_USERNAME", "env-user")
	t.Setenv("TWICK_MQTT_PASSWORD", "env-pass")

	mgr, err := NewConfigManager(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.NoError(t, mgr.Load(context.Background()))

	cfg := mgr.Get(context.Background())
	assert.Equal(t, "env-key", cfg.Enrichment.APIKey)
	assert.Equal(t, "env-broker", cfg.MQTT.BrokerHost)
	assert.Equal(t, "env-user", cfg.MQTT.Username)
	assert.Equal(t, "env-pass", cfg.MQTT.Password)
}

func TestValidateReportsAllErrors(t *testing.T) {
	mgr, err := NewConfigManager(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.NoError(t, mgr.Load(context.Background()))

	cfg := mgr.Get(context.Background())
	cfg.MQTT.BrokerHost = ""
	cfg.Scraping.URL = ""

	verr := mgr.Validate(context.Background())
	require.Error(t, verr)
	assert.Contains(t, verr.Error(), "broker host is required")
	assert.Contains(t, verr.Error(), "scraping url is required")
}
