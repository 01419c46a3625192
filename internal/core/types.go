package core

import "time"

// EventType identifies the kind of combat-log event.
type EventType string

const (
	EventBeginCast EventType = "begincast"
	EventCast      EventType = "cast"
	EventDamage    EventType = "damage"
	EventResource  EventType = "resourcechange"
	EventDeath     EventType = "death"
	EventAura      EventType = "aura"
)

// Event is a single combat-log record. Timestamps are milliseconds,
// fight-relative unless the caller says otherwise.
type Event struct {
	Timestamp    int64     `json:"timestamp"`
	Type         EventType `json:"type"`
	SourceID     int       `json:"sourceID"`
	TargetID     int       `json:"targetID"`
	AbilityID    int       `json:"abilityGameID"`
	Amount       float64   `json:"amount"`
	ResourceType int       `json:"resourceChangeType,omitempty"`
	// Events holds nested sub-records, e.g. the damage instances
	// leading up to a death event.
	Events []Event `json:"events,omitempty"`
}

// EventPage is one page of a paginated event stream. A zero
// NextPageTimestamp means the stream is exhausted.
type EventPage struct {
	Events            []Event `json:"data"`
	NextPageTimestamp int64   `json:"nextPageTimestamp"`
}

// Fight describes one attempt (kill or wipe) at an encounter.
type Fight struct {
	ID            int    `json:"id"`
	EncounterName string `json:"name"`
	StartTime     int64  `json:"startTime"`
	EndTime       int64  `json:"endTime"`
	Kill          bool   `json:"kill"`
}

// DurationMs returns the fight length in milliseconds.
func (f Fight) DurationMs() int64 {
	if f.EndTime <= f.StartTime {
		return 0
	}
	return f.EndTime - f.StartTime
}

// IngestRun captures provenance for one ingestion of a report.
type IngestRun struct {
	ID          string    `json:"id"`
	ReportCode  string    `json:"report_code"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Fights      int       `json:"fights"`
	Pages       int       `json:"pages"`
	Requests    int       `json:"requests"`
	ToolVersion string    `json:"tool_version"`
}
