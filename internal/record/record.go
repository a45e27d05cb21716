// Package record defines the retrievable units the pipeline operates on.
// Records are created by the sync process and are immutable for the
// lifetime of a query.
package record

import "time"

// SourceType identifies which synced collection a record came from.
type SourceType string

const (
	SourceDocument      SourceType = "document"
	SourceEmail         SourceType = "email"
	SourceCalendarEvent SourceType = "calendar_event"
	SourceNextWeekEvent SourceType = "next_week_event"
)

// Valid reports whether t is one of the known source types.
func (t SourceType) Valid() bool {
	switch t {
	case SourceDocument, SourceEmail, SourceCalendarEvent, SourceNextWeekEvent:
		return true
	}
	return false
}

// Metadata holds source-specific attributes. Only the fields relevant to a
// record's SourceType are populated.
type Metadata struct {
	// Documents.
	PageNumber int

	// Emails.
	FromName   string
	FromEmail  string
	ToName     string
	ToEmail    string
	Subject    string
	ReceivedAt time.Time

	// Calendar events (regular and next-week).
	StartAt   time.Time
	EndAt     time.Time
	Location  string
	Attendees string
}

// Record is a unit of user-owned retrievable content.
type Record struct {
	ID         string
	ParentID   string // owning aggregate, e.g. the document a page belongs to
	UserID     string
	SourceType SourceType
	Title      string
	Content    string
	Embedding  []float32
	Metadata   Metadata
	CreatedAt  time.Time
}

// Scored is a Record with a similarity score attached.
type Scored struct {
	Record
	Score float32
}
