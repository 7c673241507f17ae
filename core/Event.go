package core

import "time"

type EventKind string

const (
	EventVerdict EventKind = "verdict"
	EventInfo    EventKind = "info"
	EventStdout  EventKind = "stdout"
	EventStderr  EventKind = "stderr"
	EventError   EventKind = "error"
)

// Event is a single entry handed to a report. Only the fields relevant to
// Kind are set.
type Event struct {
	Scanner   string         `json:"scanner"`
	Kind      EventKind      `json:"kind"`
	Passed    *bool          `json:"passed,omitempty"`
	InfoType  string         `json:"info_type,omitempty"`
	Message   any            `json:"message,omitempty"`
	Text      string         `json:"text,omitempty"`
	Error     map[string]any `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

func NewVerdictEvent(scanner string, passed bool) Event {
	return Event{Scanner: scanner, Kind: EventVerdict, Passed: &passed, Timestamp: time.Now().UTC()}
}

func NewInfoEvent(scanner, infoType string, message any) Event {
	return Event{Scanner: scanner, Kind: EventInfo, InfoType: infoType, Message: message, Timestamp: time.Now().UTC()}
}

func NewStdoutEvent(scanner, text string) Event {
	return Event{Scanner: scanner, Kind: EventStdout, Text: text, Timestamp: time.Now().UTC()}
}

func NewStderrEvent(scanner, text string) Event {
	return Event{Scanner: scanner, Kind: EventStderr, Text: text, Timestamp: time.Now().UTC()}
}

func NewErrorEvent(scanner string, data map[string]any) Event {
	return Event{Scanner: scanner, Kind: EventError, Error: data, Timestamp: time.Now().UTC()}
}

// IsFailure reports whether the event is a failing verdict.
func (e Event) IsFailure() bool {
	return e.Kind == EventVerdict && e.Passed != nil && !*e.Passed
}
