// Package service drives the scrape cycle: one loop fetches, normalizes,
// enriches, aggregates and publishes on an interval, with on-demand
// refresh triggers from the command path.
package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/twickenham/eventsd/internal/calendar"
	"github.com/twickenham/eventsd/internal/config"
	"github.com/twickenham/eventsd/internal/enrich"
	"github.com/twickenham/eventsd/internal/models"
	"github.com/twickenham/eventsd/internal/mqtt"
	"github.com/twickenham/eventsd/internal/scrape"
	"github.com/twickenham/eventsd/internal/status"
)

// Service owns the cycle loop and implements the command sink. Exactly
// one cycle runs at a time; refresh requests arriving mid-cycle are
// dropped, not queued.
type Service struct {
	cfg        *config.Config
	logger     *zap.Logger
	fetcher    *scrape.Fetcher
	processor  *enrich.Processor
	aggregator *status.Aggregator
	publisher  *mqtt.Publisher
	calendar   *calendar.Generator

	refreshCh chan models.CommandMeta
	busy      atomic.Bool
	now       func() time.Time

	// Publish failures surface in the following cycle's status.
	prevPublishErrs []string

	metricsServer *http.Server

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// State
	mu      sync.RWMutex
	running bool
}

// Options collects the service collaborators, constructed in main.
type Options struct {
	Config     *config.Config
	Logger     *zap.Logger
	Fetcher    *scrape.Fetcher
	Processor  *enrich.Processor
	Aggregator *status.Aggregator
	Publisher  *mqtt.Publisher
	Calendar   *calendar.Generator
}

// NewService builds the service. Calendar may be nil when disabled.
func NewService(opts Options) (*Service, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if opts.Fetcher == nil || opts.Processor == nil || opts.Aggregator == nil || opts.Publisher == nil {
		return nil, fmt.Errorf("fetcher, processor, aggregator and publisher are required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cfg:        opts.Config,
		logger:     opts.Logger,
		fetcher:    opts.Fetcher,
		processor:  opts.Processor,
		aggregator: opts.Aggregator,
		publisher:  opts.Publisher,
		calendar:   opts.Calendar,
		refreshCh:  make(chan models.CommandMeta, 1),
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start announces availability, runs the startup cycle and begins the
// interval loop.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("service is already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.publisher.AnnounceOnline(); err != nil {
		s.logger.Warn("failed to announce online", zap.Error(err))
	}
	if err := s.publisher.EnsureDiscovery(); err != nil {
		s.logger.Warn("failed to publish discovery", zap.Error(err))
	}

	if s.cfg.Service.MetricsPort > 0 {
		s.startMetricsServer()
	}

	s.wg.Add(1)
	go s.run()

	s.logger.Info("service started",
		zap.Int("interval_seconds", s.cfg.Service.IntervalSeconds),
		zap.Bool("enrichment_enabled", s.processor.Enabled()),
		zap.Bool("calendar_enabled", s.calendar != nil))
	return nil
}

// Stop finishes any in-flight cycle, announces offline and disconnects.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("service is not running")
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("stopping service")
	s.cancel()

	if s.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.metricsServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("metrics server shutdown failed", zap.Error(err))
		}
	}

	s.wg.Wait()

	if err := s.publisher.AnnounceOffline(); err != nil {
		s.logger.Warn("failed to announce offline", zap.Error(err))
	}
	s.publisher.Disconnect()

	s.logger.Info("service stopped")
	return nil
}

// IsRunning returns whether the service loop is active.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// TriggerRefresh requests an immediate cycle on behalf of cmd, whose
// metadata is echoed as last_command in the resulting snapshot. It reports
// false when a cycle is in flight; the request is dropped in that case.
func (s *Service) TriggerRefresh(cmd models.CommandMeta) bool {
	if s.busy.Load() {
		return false
	}
	select {
	case s.refreshCh <- cmd:
	default:
		// A refresh is already pending; coalesce, first command wins.
	}
	return true
}

// ClearCache drops the enrichment cache, returning the entry count.
func (s *Service) ClearCache() (int, error) {
	return s.processor.ClearCache(), nil
}

func (s *Service) run() {
	defer s.wg.Done()

	// Shutdown cancels the loop only. A cycle already in flight runs to
	// completion under its own context so retained topics never capture a
	// half-finished fetch as an error state.
	cycleCtx := context.Background()

	s.runCycle(cycleCtx, models.TriggerStartup, nil)

	interval := time.Duration(s.cfg.Service.IntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(cycleCtx, models.TriggerInterval, nil)
		case cmd := <-s.refreshCh:
			s.runCycle(cycleCtx, models.TriggerCommand, &cmd)
		}
	}
}

func (s *Service) startMetricsServer() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s.metricsServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Service.MetricsPort),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("metrics listener started", zap.Int("port", s.cfg.Service.MetricsPort))
		if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics server error", zap.Error(err))
		}
	}()
}
