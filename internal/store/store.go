// Package store holds the in-memory, read-mostly record collections that
// queries retrieve against. Rebuilds happen off to the side: a new snapshot
// is assembled fully, then published with a single pointer swap, so
// concurrent queries never observe a half-populated store.
package store

import (
	"sync"
	"time"

	"github.com/kalvix/mailrag/internal/record"
)

// Snapshot is an immutable view of one user's records. All fields are
// fixed at build time; readers share it without locking.
type Snapshot struct {
	userID  string
	records []record.Record
	counts  map[record.SourceType]int
	builtAt time.Time
}

// NewSnapshot builds a snapshot over the given records. The slice is owned
// by the snapshot after the call.
func NewSnapshot(userID string, records []record.Record) *Snapshot {
	counts := make(map[record.SourceType]int)
	for _, r := range records {
		counts[r.SourceType]++
	}
	return &Snapshot{
		userID:  userID,
		records: records,
		counts:  counts,
		builtAt: time.Now().UTC(),
	}
}

// UserID returns the scope this snapshot was built for.
func (s *Snapshot) UserID() string { return s.userID }

// Records returns the snapshot's records. Callers must not mutate them.
func (s *Snapshot) Records() []record.Record {
	if s == nil {
		return nil
	}
	return s.records
}

// Len returns the record count.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// CountsByType returns a copy of the per-source-type record counts.
func (s *Snapshot) CountsByType() map[record.SourceType]int {
	out := make(map[record.SourceType]int)
	if s == nil {
		return out
	}
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// BuiltAt returns when the snapshot was published.
func (s *Snapshot) BuiltAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.builtAt
}

// Store maps user IDs to their current snapshot. Reads are concurrent;
// Publish replaces a user's snapshot wholesale.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]*Snapshot
}

// New creates an empty Store.
func New() *Store {
	return &Store{snapshots: make(map[string]*Snapshot)}
}

// Snapshot returns the current snapshot for the user, or nil if no data
// has been loaded. A nil snapshot behaves as an empty record set.
func (s *Store) Snapshot(userID string) *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshots[userID]
}

// Publish atomically replaces the user's snapshot. In-flight queries keep
// reading the snapshot they started with.
func (s *Store) Publish(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.userID] = snap
}

// TotalCount returns the record count across all loaded users.
func (s *Store) TotalCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, snap := range s.snapshots {
		total += snap.Len()
	}
	return total
}

// TotalCountsByType returns per-source-type counts across all loaded users.
func (s *Store) TotalCountsByType() map[record.SourceType]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[record.SourceType]int)
	for _, snap := range s.snapshots {
		for k, v := range snap.counts {
			out[k] += v
		}
	}
	return out
}
