package models

import "time"

// Event is a scheduled interval shared by one or more participants.
// TimeZone holds a catalog label such as "Eastern Time (ET)", never an IANA id.
type Event struct {
	ID        string     `json:"id"`
	Profiles  []string   `json:"profiles"`
	TimeZone  string     `json:"timeZone"`
	CreatedBy string     `json:"createdBy"`
	StartTime time.Time  `json:"startTime"`
	EndTime   time.Time  `json:"endTime"`
	Logs      []LogEntry `json:"logs"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// LogEntry is one append-only audit record. Entries are never edited or removed.
type LogEntry struct {
	Description string    `json:"description"`
	At          time.Time `json:"at"`
}

// EventFields is the mutable subset of an Event written by an update.
type EventFields struct {
	Profiles  []string
	TimeZone  string
	StartTime time.Time
	EndTime   time.Time
}

// EventChange is what an update writes: the new field values plus the single
// audit entry describing them.
type EventChange struct {
	Fields EventFields
	Log    LogEntry
}

// PresentedEvent is an Event rendered for a display timezone.
// All instants are local wall-clock strings in DisplayTimeZone.
type PresentedEvent struct {
	ID              string           `json:"id"`
	Profiles        []ProfileSummary `json:"profiles"`
	TimeZone        string           `json:"timeZone"`
	DisplayTimeZone string           `json:"displayTimeZone"`
	CreatedBy       string           `json:"createdBy"`
	StartTime       string           `json:"startTime"`
	EndTime         string           `json:"endTime"`
	Logs            []PresentedLog   `json:"logs"`
	CreatedAt       string           `json:"createdAt"`
	UpdatedAt       string           `json:"updatedAt"`
}

// PresentedLog is a LogEntry with its instant rendered in the display timezone.
type PresentedLog struct {
	Description string `json:"description"`
	At          string `json:"at"`
}

// CreateEventRequest is the POST /api/v1/events/create payload.
// Times are RFC3339 instants.
type CreateEventRequest struct {
	Profiles  []string `json:"profiles"`
	TimeZone  string   `json:"timeZone"`
	StartTime string   `json:"startTime"`
	EndTime   string   `json:"endTime"`
	CreatedBy string   `json:"createdBy"`
}

// UpdateEventRequest is the PUT /api/v1/events/update/:id payload.
// Absent fields are left untouched; an explicit empty profiles list is rejected.
type UpdateEventRequest struct {
	Profiles  []string `json:"profiles"`
	TimeZone  *string  `json:"timeZone"`
	StartTime *string  `json:"startTime"`
	EndTime   *string  `json:"endTime"`
}

// UpdateEventResponse reports whether an update changed anything.
type UpdateEventResponse struct {
	Updated bool `json:"updated"`
}
