package models

// TypeTag classifies an event for icon and display purposes. The set is
// closed; anything the classifier cannot place lands on TypeGeneric.
type TypeTag string

const (
	TypeFinal    TypeTag = "final"
	TypeRugby    TypeTag = "rugby"
	TypeFootball TypeTag = "football"
	TypeCricket  TypeTag = "cricket"
	TypeConcert  TypeTag = "concert"
	TypeGeneric  TypeTag = "generic"
)

// RawEvent is one row scraped from the source page, untouched beyond
// whitespace trimming. Date/Time/Crowd are free-form strings.
type RawEvent struct {
	Date  string
	Title string
	Time  string
	Crowd string
}

// Event is one occurrence after normalization and enrichment. Events are
// built fresh each cycle and never mutated afterwards; there is no
// cross-cycle identity.
type Event struct {
	Name      string  `json:"fixture"`
	ShortName string  `json:"fixture_short,omitempty"`
	Date      string  `json:"date"`                 // YYYY-MM-DD
	StartTime string  `json:"start_time,omitempty"` // HH:MM, 24h
	EndTime   string  `json:"end_time,omitempty"`
	Crowd     string  `json:"crowd,omitempty"`
	Emoji     string  `json:"emoji,omitempty"`
	IconID    string  `json:"mdi_icon,omitempty"`
	TypeTag   TypeTag `json:"event_type,omitempty"`
}

// DisplayName returns the short name when enrichment produced one,
// otherwise the full fixture name.
func (e *Event) DisplayName() string {
	if e.ShortName != "" {
		return e.ShortName
	}
	return e.Name
}
