package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/twickenham/eventsd/internal/metrics"
	"github.com/twickenham/eventsd/internal/models"
	"github.com/twickenham/eventsd/internal/normalize"
	"github.com/twickenham/eventsd/internal/status"
)

// runCycle performs one fetch-normalize-enrich-publish pass. Publish
// failures cannot be reported in the snapshot being published, so they
// are carried over and surface in the following cycle's status. command
// is non-nil only for command-triggered cycles and becomes last_command
// in the snapshot.
func (s *Service) runCycle(ctx context.Context, trigger models.Trigger, command *models.CommandMeta) {
	s.busy.Store(true)
	defer s.busy.Store(false)

	started := s.now()
	s.logger.Info("cycle started", zap.String("trigger", string(trigger)))

	input := status.CycleInput{
		Trigger:     trigger,
		Command:     command,
		PublishErrs: s.prevPublishErrs,
	}

	raw, stats, err := s.fetcher.Fetch(ctx)
	if err != nil {
		input.FetchErrs = append(input.FetchErrs, err.Error())
	} else {
		input.FetchOK = true
	}

	var events []models.Event
	if input.FetchOK {
		var warnings []string
		events, warnings = s.buildEvents(ctx, raw)
		input.FetchErrs = append(input.FetchErrs, warnings...)
		for i := range events {
			res := s.processor.Enrich(ctx, events[i].Name)
			if res.HadError {
				input.EnrichErrs = append(input.EnrichErrs, res.ErrorMessage)
			}
			events[i].ShortName = res.ShortName
			events[i].TypeTag = res.TypeTag
			events[i].Emoji = res.Emoji
			events[i].IconID = res.IconID
		}
	}
	input.EventCount = len(events)
	metrics.UpcomingEvents.Set(float64(len(events)))

	snapshot := s.aggregator.Aggregate(input)

	if err := s.publisher.EnsureDiscovery(); err != nil {
		s.logger.Warn("discovery publish failed", zap.Error(err))
	}
	s.prevPublishErrs = s.publisher.PublishCycle(events, snapshot)

	if s.calendar != nil {
		if err := s.calendar.Write(events); err != nil {
			s.logger.Warn("calendar write failed", zap.Error(err))
		}
	}

	elapsed := s.now().Sub(started)
	metrics.CyclesTotal.WithLabelValues(string(trigger), string(snapshot.State)).Inc()
	metrics.CycleDuration.Observe(elapsed.Seconds())
	s.logger.Info("cycle finished",
		zap.String("trigger", string(trigger)),
		zap.String("state", string(snapshot.State)),
		zap.Int("event_count", len(events)),
		zap.Int("fetch_attempts", stats.Attempts),
		zap.Duration("elapsed", elapsed))
}

// buildEvents normalizes raw rows into events, dropping rows whose date
// cannot be resolved and events already in the past. Today's events are
// kept for the whole day regardless of start time.
func (s *Service) buildEvents(ctx context.Context, raw []models.RawEvent) ([]models.Event, []string) {
	now := s.now().UTC()
	today := now.Format(normalize.DateLayout)

	events := make([]models.Event, 0, len(raw))
	var warnings []string
	for _, r := range raw {
		if ctx.Err() != nil {
			break
		}

		date, dateWarns := normalize.NormalizeDate(r.Date, now)
		warnings = append(warnings, dateWarns...)
		if date == "" {
			s.logger.Warn("dropping event with unresolvable date",
				zap.String("title", r.Title), zap.String("date", r.Date))
			continue
		}
		if date < today {
			continue
		}

		start, end, timeWarns := normalize.NormalizeTime(r.Time)
		warnings = append(warnings, timeWarns...)

		crowd, crowdWarns := normalize.FormatCrowd(r.Crowd)
		warnings = append(warnings, crowdWarns...)

		events = append(events, models.Event{
			Name:      r.Title,
			Date:      date,
			StartTime: start,
			EndTime:   end,
			Crowd:     crowd,
		})
	}
	return events, warnings
}
