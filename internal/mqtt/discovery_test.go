package mqtt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDiscoveryBundle(t *testing.T) {
	client := newFakeClient()
	p := newTestPublisher(client)

	require.NoError(t, p.EnsureDiscovery())

	msgs := client.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "homeassistant/device/twickenham_events/config", msgs[0].topic)
	assert.True(t, msgs[0].retained)

	var bundle map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].payload, &bundle))

	dev, ok := bundle["dev"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "twickenham_events", dev["ids"])
	assert.Equal(t, "Twickenham Events", dev["name"])
	assert.Equal(t, "eventsd", dev["mf"])
	assert.Equal(t, "1.0.0", dev["sw"])

	origin, ok := bundle["o"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "twickenham_events", origin["name"])

	cmps, ok := bundle["cmps"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"status", "last_run", "upcoming", "next", "today", "event_count", "refresh", "clear_cache"} {
		assert.Contains(t, cmps, key)
	}

	status := cmps["status"].(map[string]any)
	assert.Equal(t, "sensor", status["p"])
	assert.Equal(t, "twickenham_events/status", status["state_topic"])
	assert.True(t, strings.Contains(status["value_template"].(string), "value_json.status"))

	refresh := cmps["refresh"].(map[string]any)
	assert.Equal(t, "button", refresh["p"])
	assert.Equal(t, "twickenham_events/cmd/refresh", refresh["command_topic"])

	avail, ok := bundle["availability"].([]any)
	require.True(t, ok)
	require.Len(t, avail, 1)
	assert.Equal(t, "twickenham_events/availability", avail[0].(map[string]any)["topic"])
	assert.Equal(t, "online", bundle["payload_available"])
	assert.Equal(t, "offline", bundle["payload_not_available"])
}

func TestEnsureDiscoveryIsIdempotent(t *testing.T) {
	client := newFakeClient()
	p := newTestPublisher(client)

	require.NoError(t, p.EnsureDiscovery())
	require.NoError(t, p.EnsureDiscovery())
	require.NoError(t, p.EnsureDiscovery())

	assert.Len(t, client.messages(), 1, "unchanged metadata must publish exactly once")
}

func TestEnsureDiscoveryRepublishesOnChange(t *testing.T) {
	client := newFakeClient()
	p := newTestPublisher(client)

	require.NoError(t, p.EnsureDiscovery())
	p.device.SWVersion = "1.1.0"
	require.NoError(t, p.EnsureDiscovery())

	assert.Len(t, client.messages(), 2)
}
