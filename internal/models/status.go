package models

// ServiceState is the derived health of the service, recomputed each cycle.
type ServiceState string

const (
	StateActive   ServiceState = "active"
	StateNoEvents ServiceState = "no_events"
	StateError    ServiceState = "error"
)

// Trigger records what caused a cycle to run.
type Trigger string

const (
	TriggerStartup  Trigger = "startup"
	TriggerInterval Trigger = "interval"
	TriggerCommand  Trigger = "command"
)

// ErrorRecord is one deduplicated error observation. FirstSeen is fixed at
// the first time the message was recorded and never updated.
type ErrorRecord struct {
	Message   string `json:"message"`
	FirstSeen int64  `json:"first_seen_ts"`
}

// StatusSnapshot is the single source of truth for health, published
// retained each cycle. Immutable once built.
type StatusSnapshot struct {
	State                ServiceState  `json:"status"`
	EventCount           int           `json:"event_count"`
	EnrichmentErrorCount int           `json:"enrichment_error_count"`
	PublishErrorCount    int           `json:"publish_error_count"`
	ErrorCount           int           `json:"error_count"`
	EnrichmentEnabled    bool          `json:"enrichment_enabled"`
	LastRunTS            int64         `json:"last_run_ts"`
	LastRunISO           string        `json:"last_run_iso"`
	LastRunTrigger       Trigger       `json:"last_run_trigger"`
	IntervalSeconds      int           `json:"interval_seconds"`
	Errors               []ErrorRecord `json:"errors"`
	LastCommand          *CommandMeta  `json:"last_command,omitempty"`
}

// CommandMeta identifies the command that triggered the most recent cycle.
type CommandMeta struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReceivedTS  string `json:"received_ts,omitempty"`
	CompletedTS string `json:"completed_ts,omitempty"`
}
