package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/twickenham/eventsd/internal/models"
)

var testDevice = DeviceInfo{
	ID:           "twickenham_events",
	Name:         "Twickenham Events",
	Manufacturer: "eventsd",
	Model:        "Twick Events",
	SWVersion:    "1.0.0",
}

func newTestPublisher(client Client) *Publisher {
	p := NewPublisher(client, NewTopics("twickenham_events"), testDevice, "", 0, zap.NewNop())
	p.now = func() time.Time { return time.Date(2026, 6, 6, 9, 0, 0, 0, time.UTC) }
	return p
}

func testEvents() []models.Event {
	return []models.Event{
		{Name: "Stadium Concert", Date: "2026-06-13", StartTime: "19:30"},
		{Name: "England v Australia", Date: "2026-06-06", StartTime: "15:00", Crowd: "82,000"},
		{Name: "Morning Fixture", Date: "2026-06-06", StartTime: "11:00"},
	}
}

func TestPublishCycleTopicsAndOrdering(t *testing.T) {
	client := newFakeClient()
	p := newTestPublisher(client)

	errs := p.PublishCycle(testEvents(), models.StatusSnapshot{State: models.StateActive, EventCount: 3})
	assert.Empty(t, errs)

	msgs := client.messages()
	require.Len(t, msgs, 4)
	for _, m := range msgs {
		assert.True(t, m.retained, "cycle topics are retained: %s", m.topic)
	}

	var upcoming allUpcomingPayload
	require.NoError(t, json.Unmarshal(client.messagesOn("twickenham_events/events/all_upcoming")[0].payload, &upcoming))
	assert.Equal(t, 3, upcoming.EventCount)
	require.Len(t, upcoming.Events, 3)
	assert.Equal(t, "Morning Fixture", upcoming.Events[0].Name, "sorted by date then start time")
	assert.Equal(t, "England v Australia", upcoming.Events[1].Name)
	assert.Equal(t, "Stadium Concert", upcoming.Events[2].Name)
}

func TestPublishCycleSkippedWhenDisconnected(t *testing.T) {
	client := newFakeClient()
	client.disconnected = true
	p := newTestPublisher(client)

	errs := p.PublishCycle(testEvents(), models.StatusSnapshot{State: models.StateActive})

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "not connected")
	assert.Empty(t, client.messages(), "no publish is attempted against a dead connection")
}

func TestPublishCycleNextIsFlattened(t *testing.T) {
	client := newFakeClient()
	p := newTestPublisher(client)
	p.PublishCycle(testEvents(), models.StatusSnapshot{})

	var next map[string]any
	require.NoError(t, json.Unmarshal(client.messagesOn("twickenham_events/events/next")[0].payload, &next))
	assert.Equal(t, "Morning Fixture", next["fixture"])
	assert.Equal(t, "2026-06-06", next["date"])
	assert.Equal(t, float64(3), next["event_count"])
	_, nested := next["event"]
	assert.False(t, nested, "next payload must not nest the event")
}

func TestPublishCycleToday(t *testing.T) {
	client := newFakeClient()
	p := newTestPublisher(client)
	p.PublishCycle(testEvents(), models.StatusSnapshot{})

	var today todayPayload
	require.NoError(t, json.Unmarshal(client.messagesOn("twickenham_events/events/today")[0].payload, &today))
	assert.Equal(t, 2, today.TodayEventCount)
	require.Len(t, today.Events, 2)
	assert.Equal(t, "2026-06-06", today.Events[0].Date)
}

func TestPublishCycleEmptyCalendar(t *testing.T) {
	client := newFakeClient()
	p := newTestPublisher(client)
	p.PublishCycle(nil, models.StatusSnapshot{State: models.StateNoEvents})

	var next map[string]any
	require.NoError(t, json.Unmarshal(client.messagesOn("twickenham_events/events/next")[0].payload, &next))
	assert.Equal(t, "", next["fixture"], "empty marker, not an absent message")
	assert.Equal(t, float64(0), next["event_count"])

	var today todayPayload
	require.NoError(t, json.Unmarshal(client.messagesOn("twickenham_events/events/today")[0].payload, &today))
	assert.Equal(t, 0, today.TodayEventCount)
	assert.NotNil(t, today.Events)
}

func TestPublishCycleCollectsFailuresWithoutAborting(t *testing.T) {
	client := newFakeClient()
	client.publishErr = errors.New("broker unreachable")
	p := newTestPublisher(client)

	errs := p.PublishCycle(testEvents(), models.StatusSnapshot{})
	assert.Len(t, errs, 4, "every topic is still attempted")
	for _, e := range errs {
		assert.Contains(t, e, "broker unreachable")
	}
}

func TestAnnounceOnlineOffline(t *testing.T) {
	client := newFakeClient()
	p := newTestPublisher(client)

	require.NoError(t, p.AnnounceOnline())
	require.NoError(t, p.AnnounceOffline())

	msgs := client.messagesOn("twickenham_events/availability")
	require.Len(t, msgs, 2)
	assert.Equal(t, "online", string(msgs[0].payload))
	assert.Equal(t, "offline", string(msgs[1].payload))
	assert.True(t, msgs[0].retained)
	assert.True(t, msgs[1].retained)
}
