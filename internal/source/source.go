// Package source loads user records from the sync database. The pipeline
// never reads the database directly: a wholesale load produces a Batch that
// the store turns into an immutable snapshot.
//
// Two backends exist: Postgres (the sync process writes there) and SQLite
// (local data sets and tests). Both return the same record types.
package source

import (
	"context"

	"github.com/kalvix/mailrag/internal/record"
)

// Source is the interface for record source backends.
type Source interface {
	// Load returns all records for the given user, grouped by origin.
	// An unknown user yields an empty batch, not an error.
	Load(ctx context.Context, userID string) (Batch, error)
}

// Batch holds one wholesale load, grouped the way the sync database
// stores them. Document pages arrive with precomputed embeddings; mail
// and event records are embedded during snapshot build.
type Batch struct {
	Documents      []record.Record
	Emails         []record.Record
	CalendarEvents []record.Record
	NextWeekEvents []record.Record
}

// All returns every record in the batch in a single slice.
func (b Batch) All() []record.Record {
	out := make([]record.Record, 0, b.Len())
	out = append(out, b.Documents...)
	out = append(out, b.Emails...)
	out = append(out, b.CalendarEvents...)
	out = append(out, b.NextWeekEvents...)
	return out
}

// Len returns the total record count.
func (b Batch) Len() int {
	return len(b.Documents) + len(b.Emails) + len(b.CalendarEvents) + len(b.NextWeekEvents)
}
