// Package status derives the service health snapshot published after each
// cycle and maintains the bounded error history behind it.
package status

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/twickenham/eventsd/internal/models"
)

// MaxRetainedErrors caps the deduplicated error list. When the cap is hit
// the oldest record is dropped to make room.
const MaxRetainedErrors = 25

// Aggregator accumulates error history and cycle counters across the
// process lifetime and renders a StatusSnapshot per cycle.
type Aggregator struct {
	logger            *zap.Logger
	intervalSeconds   int
	enrichmentEnabled bool
	now               func() time.Time

	mu               sync.Mutex
	errors           []models.ErrorRecord
	enrichErrorCount int
	publishErrCount  int
}

// NewAggregator builds an Aggregator. intervalSeconds and
// enrichmentEnabled are echoed into every snapshot so consumers can see
// the effective configuration.
func NewAggregator(logger *zap.Logger, intervalSeconds int, enrichmentEnabled bool) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		logger:            logger,
		intervalSeconds:   intervalSeconds,
		enrichmentEnabled: enrichmentEnabled,
		now:               time.Now,
	}
}

// CycleInput is everything one cycle contributes to the snapshot.
type CycleInput struct {
	EventCount  int
	FetchOK     bool
	FetchErrs   []string
	EnrichErrs  []string
	PublishErrs []string
	Trigger     models.Trigger
	Command     *models.CommandMeta
}

// Aggregate folds one cycle's outcome into the retained history and
// returns the snapshot to publish. Counters are monotonic for the life of
// the process; the error list is deduplicated by message.
func (a *Aggregator) Aggregate(in CycleInput) models.StatusSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now().UTC()
	a.recordLocked(now, in.FetchErrs)
	a.recordLocked(now, in.EnrichErrs)
	a.recordLocked(now, in.PublishErrs)
	a.enrichErrorCount += len(in.EnrichErrs)
	a.publishErrCount += len(in.PublishErrs)

	snapshot := models.StatusSnapshot{
		State:                a.deriveStateLocked(in),
		EventCount:           in.EventCount,
		EnrichmentErrorCount: a.enrichErrorCount,
		PublishErrorCount:    a.publishErrCount,
		ErrorCount:           len(a.errors),
		EnrichmentEnabled:    a.enrichmentEnabled,
		LastRunTS:            now.Unix(),
		LastRunISO:           now.Format(time.RFC3339),
		LastRunTrigger:       in.Trigger,
		IntervalSeconds:      a.intervalSeconds,
		Errors:               append([]models.ErrorRecord(nil), a.errors...),
		LastCommand:          in.Command,
	}
	return snapshot
}

// deriveStateLocked implements the state machine: a clean fetch with
// events is active; a clean fetch with zero events and a clean history is
// no_events; everything else is error. A genuinely empty calendar must
// never be reported as a failure.
func (a *Aggregator) deriveStateLocked(in CycleInput) models.ServiceState {
	if !in.FetchOK {
		return models.StateError
	}
	if in.EventCount > 0 {
		return models.StateActive
	}
	if len(a.errors) == 0 {
		return models.StateNoEvents
	}
	return models.StateError
}

func (a *Aggregator) recordLocked(now time.Time, messages []string) {
	for _, msg := range messages {
		if msg == "" {
			continue
		}
		if a.seenLocked(msg) {
			continue
		}
		if len(a.errors) >= MaxRetainedErrors {
			a.logger.Debug("error list full, dropping oldest record",
				zap.String("dropped", a.errors[0].Message))
			a.errors = a.errors[1:]
		}
		a.errors = append(a.errors, models.ErrorRecord{
			Message:   msg,
			FirstSeen: now.Unix(),
		})
	}
}

func (a *Aggregator) seenLocked(msg string) bool {
	for _, e := range a.errors {
		if e.Message == msg {
			return true
		}
	}
	return false
}

// ClearErrors drops the retained error history. Exposed for the
// clear-errors maintenance path; the monotonic counters are untouched.
func (a *Aggregator) ClearErrors() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errors = nil
}
