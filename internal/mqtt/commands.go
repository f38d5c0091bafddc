package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/twickenham/eventsd/internal/metrics"
	"github.com/twickenham/eventsd/internal/models"
)

// Command outcomes reported on the result topic.
const (
	OutcomeSuccess     = "success"
	OutcomeDroppedBusy = "dropped_busy"
	OutcomeUnknown     = "unknown_command"
	OutcomeError       = "error"
)

const (
	CommandRefresh    = "refresh"
	CommandClearCache = "clear_cache"
)

// CommandSink is what the command handler drives. TriggerRefresh reports
// whether the refresh was accepted; a running cycle drops it rather than
// queueing. The command metadata is echoed as last_command in the snapshot
// the refresh produces. ClearCache returns the number of entries removed.
type CommandSink interface {
	TriggerRefresh(cmd models.CommandMeta) bool
	ClearCache() (int, error)
}

// CommandHandler listens on the command topics and executes the two
// fire-and-forget commands. Each command gets an ack and a result payload,
// mirrored onto retained last_ack/last_result topics for dashboards that
// attach late.
type CommandHandler struct {
	client Client
	topics Topics
	sink   CommandSink
	logger *zap.Logger
	qos    byte
	now    func() time.Time
	newID  func() string
}

// NewCommandHandler builds the handler; Start attaches it to the broker.
func NewCommandHandler(client Client, topics Topics, sink CommandSink, qos byte, logger *zap.Logger) *CommandHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandHandler{
		client: client,
		topics: topics,
		sink:   sink,
		logger: logger,
		qos:    qos,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

// Start subscribes to the command filter and publishes the retained
// command registry so subscribers can discover what is accepted.
func (h *CommandHandler) Start() error {
	if err := h.client.Subscribe(h.topics.CommandFilter(), h.qos, h.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to commands: %w", err)
	}
	return h.publishRegistry()
}

type ackPayload struct {
	ID         string `json:"id"`
	Command    string `json:"command"`
	ReceivedTS string `json:"received_ts"`
	Status     string `json:"status"`
}

type resultPayload struct {
	ID          string `json:"id"`
	Command     string `json:"command"`
	CompletedTS string `json:"completed_ts"`
	Outcome     string `json:"outcome"`
	Details     string `json:"details,omitempty"`
	DurationMS  int64  `json:"duration_ms"`
}

// handleMessage resolves the command from the topic suffix. The payload is
// only inspected for an optional caller-supplied id; its content is
// otherwise ignored, presence is the trigger.
func (h *CommandHandler) handleMessage(topic string, payload []byte) {
	name := strings.ToLower(strings.TrimPrefix(topic, h.topics.CommandPrefix))
	if name == "" || strings.Contains(name, "/") {
		h.logger.Warn("ignoring malformed command topic", zap.String("topic", topic))
		return
	}

	id := h.extractID(payload)
	start := h.now()
	h.publishAck(ackPayload{
		ID:         id,
		Command:    name,
		ReceivedTS: start.UTC().Format(time.RFC3339),
		Status:     "received",
	})

	outcome, details := h.execute(name, id, start)
	metrics.CommandsTotal.WithLabelValues(name, outcome).Inc()
	h.publishResult(resultPayload{
		ID:          id,
		Command:     name,
		CompletedTS: h.now().UTC().Format(time.RFC3339),
		Outcome:     outcome,
		Details:     details,
		DurationMS:  h.now().Sub(start).Milliseconds(),
	})
}

func (h *CommandHandler) execute(name, id string, received time.Time) (outcome, details string) {
	switch name {
	case CommandRefresh:
		accepted := h.sink.TriggerRefresh(models.CommandMeta{
			ID:         id,
			Name:       name,
			ReceivedTS: received.UTC().Format(time.RFC3339),
		})
		if !accepted {
			return OutcomeDroppedBusy, "a cycle is already running"
		}
		return OutcomeSuccess, "refresh cycle triggered"
	case CommandClearCache:
		removed, err := h.sink.ClearCache()
		if err != nil {
			return OutcomeError, err.Error()
		}
		return OutcomeSuccess, fmt.Sprintf("cleared %d cached entries", removed)
	default:
		h.logger.Warn("unknown command received", zap.String("command", name))
		return OutcomeUnknown, fmt.Sprintf("no handler for %q", name)
	}
}

// extractID honours a caller-supplied JSON id so requesters can correlate
// ack and result; anything else gets a fresh uuid.
func (h *CommandHandler) extractID(payload []byte) string {
	var body struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &body); err == nil && strings.TrimSpace(body.ID) != "" {
		return strings.TrimSpace(body.ID)
	}
	return h.newID()
}

func (h *CommandHandler) publishAck(ack ackPayload) {
	h.publish(h.topics.CommandAck, ack, false)
	h.publish(h.topics.LastAck, ack, true)
}

func (h *CommandHandler) publishResult(result resultPayload) {
	h.publish(h.topics.CommandResult, result, false)
	h.publish(h.topics.LastResult, result, true)
}

func (h *CommandHandler) publishRegistry() error {
	registry := map[string]any{
		"last_updated": h.now().UTC().Format(time.RFC3339),
		"commands": []map[string]string{
			{"name": CommandRefresh, "description": "Run a scrape cycle now; dropped if one is already running"},
			{"name": CommandClearCache, "description": "Clear the enrichment cache"},
		},
	}
	data, err := json.Marshal(registry)
	if err != nil {
		return fmt.Errorf("failed to encode command registry: %w", err)
	}
	if err := h.client.Publish(h.topics.Registry, h.qos, true, data); err != nil {
		return fmt.Errorf("failed to publish command registry: %w", err)
	}
	return nil
}

func (h *CommandHandler) publish(topic string, payload any, retained bool) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode command payload", zap.Error(err))
		return
	}
	if err := h.client.Publish(topic, h.qos, retained, data); err != nil {
		metrics.PublishErrorsTotal.Inc()
		h.logger.Warn("command publish failed", zap.String("topic", topic), zap.Error(err))
	}
}
