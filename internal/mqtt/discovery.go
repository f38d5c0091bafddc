package mqtt

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// DefaultDiscoveryPrefix is Home Assistant's default discovery root.
const DefaultDiscoveryPrefix = "homeassistant"

// DeviceInfo is the static identity advertised in the discovery bundle.
type DeviceInfo struct {
	ID           string
	Name         string
	Manufacturer string
	Model        string
	SWVersion    string
	ConfigURL    string
}

// EnsureDiscovery publishes the device-bundle discovery descriptor. The
// bundle is rebuilt from static metadata each call and only published when
// its hash differs from the last publish, so calling it every cycle is
// cheap and broker-restart recovery stays a one-liner for the service.
//
// Home Assistant expects abbreviated keys in the device block of a bundle
// (ids/mf/mdl/sw), unlike single-entity discovery which accepts both.
func (p *Publisher) EnsureDiscovery() error {
	payload, err := json.Marshal(p.buildBundle())
	if err != nil {
		return fmt.Errorf("failed to encode discovery bundle: %w", err)
	}

	sum := sha256.Sum256(payload)
	hash := hex.EncodeToString(sum[:])
	if hash == p.lastDiscoveryHash {
		return nil
	}

	topic := fmt.Sprintf("%s/device/%s/config", p.discoveryPrefix, p.device.ID)
	if err := p.client.Publish(topic, p.qos, true, payload); err != nil {
		return fmt.Errorf("failed to publish discovery bundle: %w", err)
	}
	p.lastDiscoveryHash = hash
	p.logger.Info("published discovery bundle", zap.String("topic", topic))
	return nil
}

func (p *Publisher) buildBundle() map[string]any {
	dev := map[string]any{
		"ids":  p.device.ID,
		"name": p.device.Name,
	}
	if p.device.Manufacturer != "" {
		dev["mf"] = p.device.Manufacturer
	}
	if p.device.Model != "" {
		dev["mdl"] = p.device.Model
	}
	if p.device.SWVersion != "" {
		dev["sw"] = p.device.SWVersion
	}

	origin := map[string]any{
		"name": p.topics.Base,
		"sw":   p.device.SWVersion,
	}
	if p.device.ConfigURL != "" {
		origin["url"] = p.device.ConfigURL
	}

	uid := func(suffix string) string { return fmt.Sprintf("%s_%s", p.device.ID, suffix) }

	cmps := map[string]any{
		"status": map[string]any{
			"p":                     "sensor",
			"unique_id":             uid("status"),
			"name":                  "Status",
			"state_topic":           p.topics.Status,
			"value_template":        "{{ value_json.status }}",
			"json_attributes_topic": p.topics.Status,
			"icon":                  "mdi:information",
			"entity_category":       "diagnostic",
		},
		"last_run": map[string]any{
			"p":               "sensor",
			"unique_id":       uid("last_run"),
			"name":            "Last Run",
			"state_topic":     p.topics.Status,
			"value_template":  "{{ value_json.last_run_iso }}",
			"device_class":    "timestamp",
			"entity_category": "diagnostic",
		},
		"event_count": map[string]any{
			"p":               "sensor",
			"unique_id":       uid("event_count"),
			"name":            "Event Count",
			"state_topic":     p.topics.Status,
			"value_template":  "{{ value_json.event_count }}",
			"state_class":     "measurement",
			"entity_category": "diagnostic",
		},
		"upcoming": map[string]any{
			"p":                     "sensor",
			"unique_id":             uid("upcoming"),
			"name":                  "Upcoming Events",
			"state_topic":           p.topics.AllUpcoming,
			"value_template":        "{{ value_json.event_count | default(0) }}",
			"json_attributes_topic": p.topics.AllUpcoming,
			"icon":                  "mdi:calendar-multiple",
		},
		"next": map[string]any{
			"p":                     "sensor",
			"unique_id":             uid("next"),
			"name":                  "Next Event",
			"state_topic":           p.topics.Next,
			"value_template":        "{{ value_json.fixture | default('') }}",
			"json_attributes_topic": p.topics.Next,
			"icon":                  "mdi:calendar-clock",
		},
		"today": map[string]any{
			"p":                     "sensor",
			"unique_id":             uid("today"),
			"name":                  "Today Events",
			"state_topic":           p.topics.Today,
			"value_template":        "{{ value_json.today_event_count | default(0) }}",
			"json_attributes_topic": p.topics.Today,
			"icon":                  "mdi:calendar-today",
		},
		"refresh": map[string]any{
			"p":             "button",
			"unique_id":     uid("refresh"),
			"name":          "Refresh",
			"command_topic": p.topics.CommandPrefix + "refresh",
			"icon":          "mdi:refresh",
		},
		"clear_cache": map[string]any{
			"p":             "button",
			"unique_id":     uid("clear_cache"),
			"name":          "Clear Cache",
			"command_topic": p.topics.CommandPrefix + "clear_cache",
			"icon":          "mdi:broom",
		},
	}

	return map[string]any{
		"dev":                   dev,
		"o":                     origin,
		"cmps":                  cmps,
		"qos":                   int(p.qos),
		"availability":          []map[string]any{{"topic": p.topics.Availability}},
		"payload_available":     PayloadOnline,
		"payload_not_available": PayloadOffline,
	}
}
