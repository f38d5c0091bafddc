// Package calendar renders the upcoming events as an iCalendar file so
// the schedule can be subscribed to outside of MQTT.
package calendar

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/twickenham/eventsd/internal/models"
	"github.com/twickenham/eventsd/internal/normalize"
)

const (
	productID = "-//Twickenham Events//eventsd//EN"
	venue     = "Twickenham Stadium, London"

	// Events without a scraped kickoff still need a concrete start for
	// calendar clients; mid-afternoon matches the typical fixture slot.
	defaultStartTime = "15:00"
)

// Generator writes the ICS file for a cycle's events.
type Generator struct {
	outputPath string
	logger     *zap.Logger
	now        func() time.Time
	newUID     func() string
}

// NewGenerator builds a Generator targeting outputPath.
func NewGenerator(outputPath string, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		outputPath: outputPath,
		logger:     logger,
		now:        time.Now,
		newUID:     func() string { return uuid.New().String() },
	}
}

// Write renders events to the configured path, replacing the previous file
// atomically. Events whose date cannot be parsed are skipped with a log
// line rather than failing the whole calendar.
func (g *Generator) Write(events []models.Event) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText(ical.PropVersion, "2.0")

	stamp := g.now().UTC()
	for _, ev := range events {
		start, err := g.eventStart(ev)
		if err != nil {
			g.logger.Warn("skipping calendar entry with unusable date",
				zap.String("event", ev.Name), zap.Error(err))
			continue
		}

		entry := ical.NewEvent()
		entry.Props.SetText(ical.PropUID, g.newUID())
		entry.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
		entry.Props.SetDateTime(ical.PropDateTimeStart, start)
		if ev.EndTime != "" {
			if end, err := parseAt(ev.Date, ev.EndTime); err == nil {
				entry.Props.SetDateTime(ical.PropDateTimeEnd, end)
			}
		}
		entry.Props.SetText(ical.PropSummary, ev.DisplayName())
		entry.Props.SetText(ical.PropLocation, venue)
		if ev.Crowd != "" {
			entry.Props.SetText(ical.PropDescription, fmt.Sprintf("Expected crowd: %s", ev.Crowd))
		}
		cal.Children = append(cal.Children, entry.Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(g.outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create calendar directory: %w", err)
	}
	tmp := g.outputPath + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write calendar: %w", err)
	}
	if err := os.Rename(tmp, g.outputPath); err != nil {
		return fmt.Errorf("failed to replace calendar: %w", err)
	}
	g.logger.Debug("calendar written",
		zap.String("path", g.outputPath), zap.Int("events", len(events)))
	return nil
}

func (g *Generator) eventStart(ev models.Event) (time.Time, error) {
	start := ev.StartTime
	if start == "" {
		start = defaultStartTime
	}
	return parseAt(ev.Date, start)
}

func parseAt(date, clock string) (time.Time, error) {
	return time.Parse(normalize.DateLayout+" 15:04", fmt.Sprintf("%s %s", date, clock))
}
