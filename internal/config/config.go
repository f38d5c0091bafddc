package config

import "context"

// Package config provides configuration management for eventsd.
//
// Responsibilities:
//   - Load configuration from a YAML file and environment variables
//   - Validate configuration on startup
//   - Provide runtime access to all configuration
//   - Support configuration reloading for selected settings
//   - Manage sensitive data (broker credentials, API keys)
//   - Establish reasonable defaults
//
// Configuration Sources (priority order, high to low):
//   1. Environment variables (TWICK_* prefix)
//   2. YAML config file (default: /etc/eventsd/config.yaml)
//   3. Built-in defaults (lowest priority)
//
// Main Configuration Sections:
//
//   1. MQTT
//      - broker_host / broker_port: Broker endpoint
//      - tls_enabled: Use TLS for the broker connection
//      - username / password: Broker credentials
//      - client_id: MQTT client identifier
//      - base_topic: Root of every published topic
//      - discovery_prefix: Home Assistant discovery root
//      - qos: QoS for all publishes and the last will
//
//   2. Scraping
//      - url: Events page to fetch
//      - timeout_seconds: Per-request timeout
//      - max_retries / retry_delay_seconds: Transient failure handling
//
//   3. Enrichment
//      - enabled: Call the external AI at all
//      - api_key / model: Gemini credentials and model
//      - max_length: Display-width budget for short names
//      - flags_enabled: Allow flag emoji in short names
//      - cache_path: On-disk JSON cache location
//      - breaker_*: Circuit breaker tuning
//
//   4. Service
//      - interval_seconds: Cycle cadence
//      - metrics_port: Prometheus listener (0 disables)
//
//   5. Calendar
//      - enabled: Write an ICS file each cycle
//      - output_path: Where to write it
//
//   6. Logging
//      - level: "debug" | "info" | "warn" | "error"
//      - format: "json" | "text"
//      - file + rotation settings (empty file logs to stdout only)
//
// Config struct contains all configuration fields
type Config struct {
	// MQTT broker and topic configuration
	MQTT struct {
		BrokerHost      string
		BrokerPort      int
		TLSEnabled      bool
		Username        string
		Password        string
		ClientID        string
		BaseTopic       string
		DiscoveryPrefix string
		QoS             int
	}

	// Scraping configuration
	Scraping struct {
		URL               string
		TimeoutSeconds    int
		MaxRetries        int
		RetryDelaySeconds int
	}

	// Enrichment configuration
	Enrichment struct {
		Enabled                bool
		APIKey                 string
		Model                  string
		MaxLength              int
		FlagsEnabled           bool
		CachePath              string
		TimeoutSeconds         int
		BreakerThreshold       int
		BreakerWindowSeconds   int
		BreakerCooldownSeconds int
	}

	// Service loop configuration
	Service struct {
		IntervalSeconds int
		MetricsPort     int
	}

	// Calendar output configuration
	Calendar struct {
		Enabled    bool
		OutputPath string
	}

	// Logging configuration
	Logging struct {
		Level      string
		Format     string
		File       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
	}

	// App identity advertised in discovery
	App struct {
		Name         string
		Manufacturer string
		Model        string
		SWVersion    string
		ConfigURL    string
	}
}

// ConfigManager defines the interface for configuration access.
type ConfigManager interface {
	// Load loads configuration from all sources.
	Load(ctx context.Context) error

	// Get returns the current configuration.
	Get(ctx context.Context) *Config

	// Validate validates configuration is correct and complete.
	Validate(ctx context.Context) error

	// Watch watches for configuration changes and reloads (if supported).
	Watch(ctx context.Context) <-chan Config

	// Reload reloads configuration from sources (selective settings).
	Reload(ctx context.Context) error
}

// NewConfigManager creates a new configuration manager.
func NewConfigManager(configPath string) (ConfigManager, error) {
	mgr := &viperConfigManager{
		configPath: configPath,
		config:     DefaultConfig(),
		watchChan:  make(chan Config, 1),
	}
	return mgr, nil
}

// NewConfigManagerWithDefaults creates a config manager with default config path.
func NewConfigManagerWithDefaults() (ConfigManager, error) {
	return NewConfigManager("/etc/eventsd/config.yaml")
}
