package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// viperConfigManager implements ConfigManager using Viper.
type viperConfigManager struct {
	configPath string
	config     *Config
	viper      *viper.Viper
	watchChan  chan Config
}

// Load loads configuration from all sources.
func (m *viperConfigManager) Load(ctx context.Context) error {
	// Initialize viper
	m.viper = viper.New()

	// Set config file path
	m.viper.SetConfigFile(m.configPath)
	m.viper.SetConfigType("yaml")

	// Set environment variable prefix
	m.viper.SetEnvPrefix("TWICK")
	m.viper.AutomaticEnv()
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	m.setDefaults()

	// Try to read config file (optional)
	if err := m.viper.ReadInConfig(); err != nil {
		// Config file not found is OK, we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// File not found via viper - OK, use defaults
		} else if os.IsNotExist(err) {
			// File not found via os - OK, use defaults
		} else {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal into config struct
	if err := m.unmarshalConfig(); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Apply environment variable overrides for sensitive data
	m.applyEnvOverrides()

	return nil
}

// Get returns the current configuration.
func (m *viperConfigManager) Get(ctx context.Context) *Config {
	return m.config
}

// Validate validates configuration is correct and complete.
func (m *viperConfigManager) Validate(ctx context.Context) error {
	errs := m.config.Validate()
	if len(errs) > 0 {
		var errMsgs []string
		for _, err := range errs {
			errMsgs = append(errMsgs, err.Error())
		}
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errMsgs, "\n  - "))
	}
	return nil
}

// Watch watches for configuration changes and reloads.
func (m *viperConfigManager) Watch(ctx context.Context) <-chan Config {
	m.viper.WatchConfig()
	m.viper.OnConfigChange(func(e fsnotify.Event) {
		if err := m.unmarshalConfig(); err != nil {
			// Log error but don't send to channel
			return
		}
		select {
		case m.watchChan <- *m.config:
		default:
			// Channel full, skip this update
		}
	})

	return m.watchChan
}

// Reload reloads configuration from sources.
func (m *viperConfigManager) Reload(ctx context.Context) error {
	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := m.unmarshalConfig(); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.applyEnvOverrides()

	return nil
}

// setDefaults sets default values in viper.
func (m *viperConfigManager) setDefaults() {
	defaults := DefaultConfig()

	// MQTT defaults
	m.viper.SetDefault("mqtt.broker_host", defaults.MQTT.BrokerHost)
	m.viper.SetDefault("mqtt.broker_port", defaults.MQTT.BrokerPort)
	m.viper.SetDefault("mqtt.tls_enabled", defaults.MQTT.TLSEnabled)
	m.viper.SetDefault("mqtt.username", defaults.MQTT.Username)
	m.viper.SetDefault("mqtt.password", defaults.MQTT.Password)
	m.viper.SetDefault("mqtt.client_id", defaults.MQTT.ClientID)
	m.viper.SetDefault("mqtt.base_topic", defaults.MQTT.BaseTopic)
	m.viper.SetDefault("mqtt.discovery_prefix", defaults.MQTT.DiscoveryPrefix)
	m.viper.SetDefault("mqtt.qos", defaults.MQTT.QoS)

	// Scraping defaults
	m.viper.SetDefault("scraping.url", defaults.Scraping.URL)
	m.viper.SetDefault("scraping.timeout_seconds", defaults.Scraping.TimeoutSeconds)
	m.viper.SetDefault("scraping.max_retries", defaults.Scraping.MaxRetries)
	m.viper.SetDefault("scraping.retry_delay_seconds", defaults.Scraping.RetryDelaySeconds)

	// Enrichment defaults
	m.viper.SetDefault("enrichment.enabled", defaults.Enrichment.Enabled)
	m.viper.SetDefault("enrichment.api_key", defaults.Enrichment.APIKey)
	m.viper.SetDefault("enrichment.model", defaults.Enrichment.Model)
	m.viper.SetDefault("enrichment.max_length", defaults.Enrichment.MaxLength)
	m.viper.SetDefault("enrichment.flags_enabled", defaults.Enrichment.FlagsEnabled)
	m.viper.SetDefault("enrichment.cache_path", defaults.Enrichment.CachePath)
	m.viper.SetDefault("enrichment.timeout_seconds", defaults.Enrichment.TimeoutSeconds)
	m.viper.SetDefault("enrichment.breaker_threshold", defaults.Enrichment.BreakerThreshold)
	m.viper.SetDefault("enrichment.breaker_window_seconds", defaults.Enrichment.BreakerWindowSeconds)
	m.viper.SetDefault("enrichment.breaker_cooldown_seconds", defaults.Enrichment.BreakerCooldownSeconds)

	// Service defaults
	m.viper.SetDefault("service.interval_seconds", defaults.Service.IntervalSeconds)
	m.viper.SetDefault("service.metrics_port", defaults.Service.MetricsPort)

	// Calendar defaults
	m.viper.SetDefault("calendar.enabled", defaults.Calendar.Enabled)
	m.viper.SetDefault("calendar.output_path", defaults.Calendar.OutputPath)

	// Logging defaults
	m.viper.SetDefault("logging.level", defaults.Logging.Level)
	m.viper.SetDefault("logging.format", defaults.Logging.Format)
	m.viper.SetDefault("logging.file", defaults.Logging.File)
	m.viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	m.viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	m.viper.SetDefault("logging.max_age_days", defaults.Logging.MaxAgeDays)

	// App identity defaults
	m.viper.SetDefault("app.name", defaults.App.Name)
	m.viper.SetDefault("app.manufacturer", defaults.App.Manufacturer)
	m.viper.SetDefault("app.model", defaults.App.Model)
	m.viper.SetDefault("app.sw_version", defaults.App.SWVersion)
	m.viper.SetDefault("app.config_url", defaults.App.ConfigURL)
}

// unmarshalConfig unmarshals viper config into Config struct.
func (m *viperConfigManager) unmarshalConfig() error {
	cfg := &Config{}

	// MQTT
	cfg.MQTT.BrokerHost = m.viper.GetString("mqtt.broker_host")
	cfg.MQTT.BrokerPort = m.viper.GetInt("mqtt.broker_port")
	cfg.MQTT.TLSEnabled = m.viper.GetBool("mqtt.tls_enabled")
	cfg.MQTT.Username = m.viper.GetString("mqtt.username")
	cfg.MQTT.Password = m.viper.GetString("mqtt.password")
	cfg.MQTT.ClientID = m.viper.GetString("mqtt.client_id")
	cfg.MQTT.BaseTopic = m.viper.GetString("mqtt.base_topic")
	cfg.MQTT.DiscoveryPrefix = m.viper.GetString("mqtt.discovery_prefix")
	cfg.MQTT.QoS = m.viper.GetInt("mqtt.qos")

	// Scraping
	cfg.Scraping.URL = m.viper.GetString("scraping.url")
	cfg.Scraping.TimeoutSeconds = m.viper.GetInt("scraping.timeout_seconds")
	cfg.Scraping.MaxRetries = m.viper.GetInt("scraping.max_retries")
	cfg.Scraping.RetryDelaySeconds = m.viper.GetInt("scraping.retry_delay_seconds")

	// Enrichment
	cfg.Enrichment.Enabled = m.viper.GetBool("enrichment.enabled")
	cfg.Enrichment.APIKey = m.viper.GetString("enrichment.api_key")
	cfg.Enrichment.Model = m.viper.GetString("enrichment.model")
	cfg.Enrichment.MaxLength = m.viper.GetInt("enrichment.max_length")
	cfg.Enrichment.FlagsEnabled = m.viper.GetBool("enrichment.flags_enabled")
	cfg.Enrichment.CachePath = m.viper.GetString("enrichment.cache_path")
	cfg.Enrichment.TimeoutSeconds = m.viper.GetInt("enrichment.timeout_seconds")
	cfg.Enrichment.BreakerThreshold = m.viper.GetInt("enrichment.breaker_threshold")
	cfg.Enrichment.BreakerWindowSeconds = m.viper.GetInt("enrichment.breaker_window_seconds")
	cfg.Enrichment.BreakerCooldownSeconds = m.viper.GetInt("enrichment.breaker_cooldown_seconds")

	// Service
	cfg.Service.IntervalSeconds = m.viper.GetInt("service.interval_seconds")
	cfg.Service.MetricsPort = m.viper.GetInt("service.metrics_port")

	// Calendar
	cfg.Calendar.Enabled = m.viper.GetBool("calendar.enabled")
	cfg.Calendar.OutputPath = m.viper.GetString("calendar.output_path")

	// Logging
	cfg.Logging.Level = m.viper.GetString("logging.level")
	cfg.Logging.Format = m.viper.GetString("logging.format")
	cfg.Logging.File = m.viper.GetString("logging.file")
	cfg.Logging.MaxSizeMB = m.viper.GetInt("logging.max_size_mb")
	cfg.Logging.MaxBackups = m.viper.GetInt("logging.max_backups")
	cfg.Logging.MaxAgeDays = m.viper.GetInt("logging.max_age_days")

	// App identity
	cfg.App.Name = m.viper.GetString("app.name")
	cfg.App.Manufacturer = m.viper.GetString("app.manufacturer")
	cfg.App.Model = m.viper.GetString("app.model")
	cfg.App.SWVersion = m.viper.GetString("app.sw_version")
	cfg.App.ConfigURL = m.viper.GetString("app.config_url")

	m.config = cfg
	return nil
}

// applyEnvOverrides applies environment variable overrides for sensitive data.
func (m *viperConfigManager) applyEnvOverrides() {
	// Gemini API key from environment
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		m.config.Enrichment.APIKey = apiKey
	}

	// Broker credentials from environment
	if user := os.Getenv("TWICK_MQTT_USERNAME"); user != "" {
		m.config.MQTT.Username = user
	}
	if pass := os.Getenv("TWICK_MQTT_PASSWORD"); pass != "" {
		m.config.MQTT.Password = pass
	}

	// Broker host from environment
	if host := os.Getenv("TWICK_MQTT_BROKER_HOST"); host != "" {
		m.config.MQTT.BrokerHost = host
	}
}
