package config

import (
	"fmt"
	"net/url"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validate validates the configuration and returns validation errors.
func (c *Config) Validate() []error {
	var errs []error

	// Validate MQTT configuration
	if c.MQTT.BrokerHost == "" {
		errs = append(errs, &ValidationError{
			Field:   "mqtt.broker_host",
			Message: "broker host is required",
		})
	}
	if c.MQTT.BrokerPort < 1 || c.MQTT.BrokerPort > 65535 {
		errs = append(errs, &ValidationError{
			Field:   "mqtt.broker_port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", c.MQTT.BrokerPort),
		})
	}
	if c.MQTT.BaseTopic == "" {
		errs = append(errs, &ValidationError{
			Field:   "mqtt.base_topic",
			Message: "base topic is required",
		})
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, &ValidationError{
			Field:   "mqtt.qos",
			Message: fmt.Sprintf("qos must be 0, 1 or 2, got %d", c.MQTT.QoS),
		})
	}
	if c.MQTT.Password != "" && c.MQTT.Username == "" {
		errs = append(errs, &ValidationError{
			Field:   "mqtt.username",
			Message: "username is required when a password is set",
		})
	}

	// Validate scraping configuration
	if c.Scraping.URL == "" {
		errs = append(errs, &ValidationError{
			Field:   "scraping.url",
			Message: "scraping url is required",
		})
	} else if parsed, err := url.Parse(c.Scraping.URL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		errs = append(errs, &ValidationError{
			Field:   "scraping.url",
			Message: fmt.Sprintf("invalid url: %s", c.Scraping.URL),
		})
	}
	if c.Scraping.TimeoutSeconds < 1 {
		errs = append(errs, &ValidationError{
			Field:   "scraping.timeout_seconds",
			Message: fmt.Sprintf("timeout must be at least 1 second, got %d", c.Scraping.TimeoutSeconds),
		})
	}
	if c.Scraping.MaxRetries < 1 {
		errs = append(errs, &ValidationError{
			Field:   "scraping.max_retries",
			Message: fmt.Sprintf("max_retries must be at least 1, got %d", c.Scraping.MaxRetries),
		})
	}

	// Validate enrichment configuration
	if c.Enrichment.Enabled && c.Enrichment.APIKey == "" {
		errs = append(errs, &ValidationError{
			Field:   "enrichment.api_key",
			Message: "api_key is required when enrichment is enabled",
		})
	}
	if c.Enrichment.MaxLength < 1 {
		errs = append(errs, &ValidationError{
			Field:   "enrichment.max_length",
			Message: fmt.Sprintf("max_length must be at least 1, got %d", c.Enrichment.MaxLength),
		})
	}
	if c.Enrichment.BreakerThreshold < 1 {
		errs = append(errs, &ValidationError{
			Field:   "enrichment.breaker_threshold",
			Message: fmt.Sprintf("breaker_threshold must be at least 1, got %d", c.Enrichment.BreakerThreshold),
		})
	}

	// Validate service configuration
	if c.Service.IntervalSeconds < 60 {
		errs = append(errs, &ValidationError{
			Field:   "service.interval_seconds",
			Message: fmt.Sprintf("interval must be at least 60 seconds, got %d", c.Service.IntervalSeconds),
		})
	}
	if c.Service.MetricsPort != 0 && (c.Service.MetricsPort < 1 || c.Service.MetricsPort > 65535) {
		errs = append(errs, &ValidationError{
			Field:   "service.metrics_port",
			Message: fmt.Sprintf("metrics_port must be 0 or between 1 and 65535, got %d", c.Service.MetricsPort),
		})
	}

	// Validate calendar configuration
	if c.Calendar.Enabled && c.Calendar.OutputPath == "" {
		errs = append(errs, &ValidationError{
			Field:   "calendar.output_path",
			Message: "output_path is required when calendar is enabled",
		})
	}

	// Validate logging configuration
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		errs = append(errs, &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Logging.Level),
		})
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		errs = append(errs, &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid format '%s', must be one of: json, text", c.Logging.Format),
		})
	}

	return errs
}
