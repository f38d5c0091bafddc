package main

// Package main is the entry point for the eventsd service.
//
// Responsibilities:
//   - Load and validate configuration from YAML and environment variables
//   - Connect to the MQTT broker with a last-will availability message
//   - Wire the scraper, enrichment processor, status aggregator,
//     publisher and optional calendar generator into the cycle service
//   - Subscribe the command handler for refresh and clear_cache
//   - Implement graceful shutdown with context cancellation
//
// Data Flow:
//   1. Scraper fetches the council events page on an interval
//   2. Normalization turns raw rows into canonical events
//   3. Enrichment shortens and classifies fixture names (Gemini, cached)
//   4. Aggregation derives the status snapshot and error history
//   5. Publisher writes retained event, status and discovery topics

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/twickenham/eventsd/internal/calendar"
	"github.com/twickenham/eventsd/internal/config"
	"github.com/twickenham/eventsd/internal/enrich"
	"github.com/twickenham/eventsd/internal/enrich/gemini"
	"github.com/twickenham/eventsd/internal/logging"
	"github.com/twickenham/eventsd/internal/mqtt"
	"github.com/twickenham/eventsd/internal/scrape"
	"github.com/twickenham/eventsd/internal/service"
	"github.com/twickenham/eventsd/internal/status"
)

func main() {
	configPath := flag.String("config", "/etc/eventsd/config.yaml", "path to the YAML config file")
	flag.Parse()

	ctx := context.Background()

	mgr, err := config.NewConfigManager(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create config manager: %v\n", err)
		os.Exit(1)
	}
	if err := mgr.Load(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := mgr.Validate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := mgr.Get(ctx)

	logger, err := logging.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	svc, handler, err := buildService(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build service", zap.Error(err))
	}

	if err := handler.Start(); err != nil {
		logger.Fatal("failed to subscribe command topics", zap.Error(err))
	}
	if err := svc.Start(); err != nil {
		logger.Fatal("failed to start service", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutdown signal received")

	if err := svc.Stop(); err != nil {
		logger.Error("error stopping service", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// buildService wires every collaborator from configuration.
func buildService(cfg *config.Config, logger *zap.Logger) (*service.Service, *mqtt.CommandHandler, error) {
	topics := mqtt.NewTopics(cfg.MQTT.BaseTopic)
	qos := byte(cfg.MQTT.QoS)

	client, err := mqtt.Connect(mqtt.ConnectOptions{
		BrokerHost:        cfg.MQTT.BrokerHost,
		BrokerPort:        cfg.MQTT.BrokerPort,
		TLS:               cfg.MQTT.TLSEnabled,
		Username:          cfg.MQTT.Username,
		Password:          cfg.MQTT.Password,
		ClientID:          cfg.MQTT.ClientID,
		AvailabilityTopic: topics.Availability,
		QoS:               qos,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("mqtt connect: %w", err)
	}

	fetcher, err := scrape.NewFetcher(scrape.Options{
		URL:        cfg.Scraping.URL,
		Timeout:    time.Duration(cfg.Scraping.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.Scraping.MaxRetries,
		RetryDelay: time.Duration(cfg.Scraping.RetryDelaySeconds) * time.Second,
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("scraper: %w", err)
	}

	enrichOpts := enrich.Options{
		Cache: enrich.NewCache(cfg.Enrichment.CachePath, logger),
		Breaker: enrich.NewBreaker(
			cfg.Enrichment.BreakerThreshold,
			time.Duration(cfg.Enrichment.BreakerWindowSeconds)*time.Second,
			time.Duration(cfg.Enrichment.BreakerCooldownSeconds)*time.Second,
		),
		Logger:         logger,
		MaxLength:      cfg.Enrichment.MaxLength,
		FlagsEnabled:   cfg.Enrichment.FlagsEnabled,
		RequestTimeout: time.Duration(cfg.Enrichment.TimeoutSeconds) * time.Second,
	}
	if cfg.Enrichment.Enabled {
		provider, err := gemini.NewClient(cfg.Enrichment.APIKey, cfg.Enrichment.Model, enrichOpts.RequestTimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("gemini client: %w", err)
		}
		enrichOpts.Provider = provider
	}
	processor := enrich.NewProcessor(enrichOpts)

	publisher := mqtt.NewPublisher(client, topics, mqtt.DeviceInfo{
		ID:           cfg.MQTT.BaseTopic,
		Name:         cfg.App.Name,
		Manufacturer: cfg.App.Manufacturer,
		Model:        cfg.App.Model,
		SWVersion:    cfg.App.SWVersion,
		ConfigURL:    cfg.App.ConfigURL,
	}, cfg.MQTT.DiscoveryPrefix, qos, logger)

	var gen *calendar.Generator
	if cfg.Calendar.Enabled {
		gen = calendar.NewGenerator(cfg.Calendar.OutputPath, logger)
	}

	svc, err := service.NewService(service.Options{
		Config:     cfg,
		Logger:     logger,
		Fetcher:    fetcher,
		Processor:  processor,
		Aggregator: status.NewAggregator(logger, cfg.Service.IntervalSeconds, cfg.Enrichment.Enabled),
		Publisher:  publisher,
		Calendar:   gen,
	})
	if err != nil {
		return nil, nil, err
	}

	handler := mqtt.NewCommandHandler(client, topics, svc, qos, logger)
	return svc, handler, nil
}
