package mqtt

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/twickenham/eventsd/internal/metrics"
	"github.com/twickenham/eventsd/internal/models"
	"github.com/twickenham/eventsd/internal/normalize"
)

// Publisher renders events and status onto the retained topic set. It owns
// the broker client exclusively; nothing else publishes through it.
type Publisher struct {
	client Client
	topics Topics
	logger *zap.Logger
	qos    byte
	now    func() time.Time

	device            DeviceInfo
	discoveryPrefix   string
	lastDiscoveryHash string
}

// NewPublisher builds a Publisher over an established client.
func NewPublisher(client Client, topics Topics, device DeviceInfo, discoveryPrefix string, qos byte, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if discoveryPrefix == "" {
		discoveryPrefix = DefaultDiscoveryPrefix
	}
	return &Publisher{
		client:          client,
		topics:          topics,
		logger:          logger,
		qos:             qos,
		now:             time.Now,
		device:          device,
		discoveryPrefix: discoveryPrefix,
	}
}

type allUpcomingPayload struct {
	EventCount  int            `json:"event_count"`
	LastUpdated string         `json:"last_updated"`
	Events      []models.Event `json:"events"`
}

type todayPayload struct {
	TodayEventCount int            `json:"today_event_count"`
	LastUpdated     string         `json:"last_updated"`
	Events          []models.Event `json:"events"`
}

// nextPayload flattens the first event so the primary value is the fixture
// name with the remaining fields as siblings. With no events the zero
// Event serves as the explicit empty marker.
type nextPayload struct {
	models.Event
	EventCount  int    `json:"event_count"`
	LastUpdated string `json:"last_updated"`
}

// PublishCycle emits the status, all_upcoming, next and today messages as
// a best-effort unit. Individual failures are collected and returned so
// the aggregator can count them against the next cycle; they never abort
// the remaining publishes.
func (p *Publisher) PublishCycle(events []models.Event, status models.StatusSnapshot) []string {
	if !p.client.Connected() {
		// Waiting out four publish timeouts gains nothing while the broker
		// is away; report once and let the reconnect catch the next cycle.
		metrics.PublishErrorsTotal.Inc()
		p.logger.Warn("broker not connected, skipping cycle publishes")
		return []string{"mqtt broker not connected, cycle publishes skipped"}
	}

	now := p.now().UTC()
	nowISO := now.Format(time.RFC3339)

	sorted := make([]models.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date < sorted[j].Date
		}
		return sorted[i].StartTime < sorted[j].StartTime
	})

	var errs []string
	record := func(topic string, err error) {
		if err == nil {
			return
		}
		metrics.PublishErrorsTotal.Inc()
		p.logger.Warn("publish failed", zap.String("topic", topic), zap.Error(err))
		errs = append(errs, fmt.Sprintf("publish to %s failed: %v", topic, err))
	}

	record(p.topics.Status, p.publishJSON(p.topics.Status, status, true))

	record(p.topics.AllUpcoming, p.publishJSON(p.topics.AllUpcoming, allUpcomingPayload{
		EventCount:  len(sorted),
		LastUpdated: nowISO,
		Events:      sorted,
	}, true))

	next := nextPayload{EventCount: len(sorted), LastUpdated: nowISO}
	if len(sorted) > 0 {
		next.Event = sorted[0]
	}
	record(p.topics.Next, p.publishJSON(p.topics.Next, next, true))

	today := todayPayload{LastUpdated: nowISO, Events: []models.Event{}}
	todayStr := now.Format(normalize.DateLayout)
	for _, ev := range sorted {
		if ev.Date == todayStr {
			today.Events = append(today.Events, ev)
		}
	}
	today.TodayEventCount = len(today.Events)
	record(p.topics.Today, p.publishJSON(p.topics.Today, today, true))

	return errs
}

// AnnounceOnline marks the service available, retained so late subscribers
// see the current liveness immediately.
func (p *Publisher) AnnounceOnline() error {
	return p.client.Publish(p.topics.Availability, p.qos, true, []byte(PayloadOnline))
}

// AnnounceOffline is the graceful counterpart of the broker-side will.
func (p *Publisher) AnnounceOffline() error {
	return p.client.Publish(p.topics.Availability, p.qos, true, []byte(PayloadOffline))
}

// Disconnect closes the broker connection after letting in-flight messages
// drain.
func (p *Publisher) Disconnect() {
	p.client.Disconnect(250 * time.Millisecond)
}

func (p *Publisher) publishJSON(topic string, payload any, retained bool) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	return p.client.Publish(topic, p.qos, retained, data)
}
