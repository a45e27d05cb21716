package store

import (
	"testing"

	"github.com/kalvix/mailrag/internal/record"
)

func rec(id, userID string, st record.SourceType) record.Record {
	return record.Record{ID: id, UserID: userID, SourceType: st, Embedding: []float32{1, 0}}
}

func TestStore_NilSnapshotBehavesEmpty(t *testing.T) {
	st := New()

	snap := st.Snapshot("nobody")
	if snap.Len() != 0 {
		t.Errorf("Len = %d, want 0", snap.Len())
	}
	if snap.Records() != nil {
		t.Error("Records() on nil snapshot should be nil")
	}
	if counts := snap.CountsByType(); len(counts) != 0 {
		t.Errorf("CountsByType = %v, want empty", counts)
	}
}

func TestStore_PublishReplacesWholesale(t *testing.T) {
	st := New()

	st.Publish(NewSnapshot("alice", []record.Record{
		rec("a1", "alice", record.SourceEmail),
		rec("a2", "alice", record.SourceDocument),
	}))

	old := st.Snapshot("alice")
	if old.Len() != 2 {
		t.Fatalf("Len = %d, want 2", old.Len())
	}

	st.Publish(NewSnapshot("alice", []record.Record{
		rec("a3", "alice", record.SourceCalendarEvent),
	}))

	// The old snapshot an in-flight query holds is untouched.
	if old.Len() != 2 {
		t.Errorf("old snapshot Len = %d after republish, want 2", old.Len())
	}
	if got := st.Snapshot("alice").Len(); got != 1 {
		t.Errorf("new snapshot Len = %d, want 1", got)
	}
}

func TestStore_SnapshotsAreScopedPerUser(t *testing.T) {
	st := New()
	st.Publish(NewSnapshot("alice", []record.Record{rec("a1", "alice", record.SourceEmail)}))
	st.Publish(NewSnapshot("bob", []record.Record{
		rec("b1", "bob", record.SourceEmail),
		rec("b2", "bob", record.SourceEmail),
	}))

	if got := st.Snapshot("alice").Len(); got != 1 {
		t.Errorf("alice Len = %d, want 1", got)
	}
	if got := st.Snapshot("bob").Len(); got != 2 {
		t.Errorf("bob Len = %d, want 2", got)
	}
	if got := st.TotalCount(); got != 3 {
		t.Errorf("TotalCount = %d, want 3", got)
	}
}

func TestSnapshot_CountsByType(t *testing.T) {
	snap := NewSnapshot("alice", []record.Record{
		rec("e1", "alice", record.SourceEmail),
		rec("e2", "alice", record.SourceEmail),
		rec("d1", "alice", record.SourceDocument),
		rec("ev1", "alice", record.SourceNextWeekEvent),
	})

	counts := snap.CountsByType()
	if counts[record.SourceEmail] != 2 {
		t.Errorf("email count = %d, want 2", counts[record.SourceEmail])
	}
	if counts[record.SourceDocument] != 1 {
		t.Errorf("document count = %d, want 1", counts[record.SourceDocument])
	}
	if counts[record.SourceNextWeekEvent] != 1 {
		t.Errorf("next week event count = %d, want 1", counts[record.SourceNextWeekEvent])
	}
}
