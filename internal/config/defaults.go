package config

// DefaultConfig returns a configuration with all default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	// MQTT defaults
	cfg.MQTT.BrokerHost = "localhost"
	cfg.MQTT.BrokerPort = 1883
	cfg.MQTT.TLSEnabled = false
	cfg.MQTT.ClientID = "twickenham-eventsd"
	cfg.MQTT.BaseTopic = "twickenham_events"
	cfg.MQTT.DiscoveryPrefix = "homeassistant"
	cfg.MQTT.QoS = 1

	// Scraping defaults
	cfg.Scraping.URL = "https://www.richmond.gov.uk/services/parking/cpz/twickenham_stadium_events"
	cfg.Scraping.TimeoutSeconds = 10
	cfg.Scraping.MaxRetries = 3
	cfg.Scraping.RetryDelaySeconds = 5

	// Enrichment defaults
	cfg.Enrichment.Enabled = false
	cfg.Enrichment.Model = "gemini-2.5-flash"
	cfg.Enrichment.MaxLength = 16
	cfg.Enrichment.FlagsEnabled = false
	cfg.Enrichment.CachePath = "/var/lib/eventsd/enrichment_cache.json"
	cfg.Enrichment.TimeoutSeconds = 15
	cfg.Enrichment.BreakerThreshold = 3
	cfg.Enrichment.BreakerWindowSeconds = 300
	cfg.Enrichment.BreakerCooldownSeconds = 600

	// Service defaults
	cfg.Service.IntervalSeconds = 3600
	cfg.Service.MetricsPort = 0 // disabled

	// Calendar defaults
	cfg.Calendar.Enabled = false
	cfg.Calendar.OutputPath = "/var/lib/eventsd/twickenham_events.ics"

	// Logging defaults
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.Logging.File = ""
	cfg.Logging.MaxSizeMB = 10
	cfg.Logging.MaxBackups = 3
	cfg.Logging.MaxAgeDays = 28

	// App identity defaults
	cfg.App.Name = "Twickenham Events"
	cfg.App.Manufacturer = "eventsd"
	cfg.App.Model = "Twick Events"
	cfg.App.SWVersion = Version
	cfg.App.ConfigURL = ""

	return cfg
}

// Version is the software version advertised in discovery payloads.
const Version = "1.0.0"
