package mqtt

import "fmt"

// Availability literals. The availability topic carries exactly these two
// values, retained.
const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// Topics derives every topic from the configured base.
type Topics struct {
	Base string

	Status       string
	AllUpcoming  string
	Next         string
	Today        string
	Availability string

	CommandPrefix string
	CommandAck    string
	CommandResult string
	LastAck       string
	LastResult    string
	Registry      string
}

// NewTopics builds the topic table for a base such as "twickenham_events".
func NewTopics(base string) Topics {
	return Topics{
		Base:          base,
		Status:        fmt.Sprintf("%s/status", base),
		AllUpcoming:   fmt.Sprintf("%s/events/all_upcoming", base),
		Next:          fmt.Sprintf("%s/events/next", base),
		Today:         fmt.Sprintf("%s/events/today", base),
		Availability:  fmt.Sprintf("%s/availability", base),
		CommandPrefix: fmt.Sprintf("%s/cmd/", base),
		CommandAck:    fmt.Sprintf("%s/commands/ack", base),
		CommandResult: fmt.Sprintf("%s/commands/result", base),
		LastAck:       fmt.Sprintf("%s/commands/last_ack", base),
		LastResult:    fmt.Sprintf("%s/commands/last_result", base),
		Registry:      fmt.Sprintf("%s/commands/registry", base),
	}
}

// CommandFilter is the subscription filter covering every command topic.
func (t Topics) CommandFilter() string {
	return t.CommandPrefix + "#"
}
