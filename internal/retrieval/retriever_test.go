package retrieval

import (
	"testing"

	"github.com/kalvix/mailrag/internal/record"
)

func rec(id, userID string, embedding []float32) record.Record {
	return record.Record{ID: id, UserID: userID, SourceType: record.SourceEmail, Embedding: embedding}
}

func TestRetrieve_RanksByCosine(t *testing.T) {
	records := []record.Record{
		rec("a", "alice", []float32{0, 1}),
		rec("b", "alice", []float32{1, 0}),
		rec("c", "alice", []float32{0.7, 0.7}),
	}

	results := Retrieve([]float32{1, 0}, records, "alice", 3)

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].ID != "b" {
		t.Errorf("top result = %q, want %q", results[0].ID, "b")
	}
	if results[1].ID != "c" {
		t.Errorf("second result = %q, want %q", results[1].ID, "c")
	}
	if results[2].ID != "a" {
		t.Errorf("third result = %q, want %q", results[2].ID, "a")
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted: score[%d]=%v > score[%d]=%v", i, results[i].Score, i-1, results[i-1].Score)
		}
	}
}

func TestRetrieve_UserScopeIsolation(t *testing.T) {
	records := []record.Record{
		rec("a1", "alice", []float32{1, 0}),
		rec("b1", "bob", []float32{1, 0}),
		rec("b2", "bob", []float32{0.9, 0.1}),
	}

	results := Retrieve([]float32{1, 0}, records, "alice", 10)

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].ID != "a1" {
		t.Errorf("result = %q, want %q", results[0].ID, "a1")
	}
}

func TestRetrieve_EmptyScope(t *testing.T) {
	records := []record.Record{
		rec("b1", "bob", []float32{1, 0}),
	}

	results := Retrieve([]float32{1, 0}, records, "carol", 10)
	if len(results) != 0 {
		t.Errorf("got %d results for user with no records, want 0", len(results))
	}
}

func TestRetrieve_TopKBound(t *testing.T) {
	var records []record.Record
	for _, id := range []string{"r1", "r2", "r3", "r4", "r5"} {
		records = append(records, rec(id, "alice", []float32{1, 0}))
	}

	results := Retrieve([]float32{1, 0}, records, "alice", 2)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
}

func TestRetrieve_TieBreakAscendingID(t *testing.T) {
	// All records identical to the query vector: every score ties.
	records := []record.Record{
		rec("z", "alice", []float32{1, 0}),
		rec("a", "alice", []float32{1, 0}),
		rec("m", "alice", []float32{1, 0}),
	}

	for i := 0; i < 5; i++ {
		results := Retrieve([]float32{1, 0}, records, "alice", 2)
		if len(results) != 2 {
			t.Fatalf("got %d results, want 2", len(results))
		}
		if results[0].ID != "a" || results[1].ID != "m" {
			t.Fatalf("tie-break order = [%q %q], want [a m]", results[0].ID, results[1].ID)
		}
	}
}

func TestRetrieve_ZeroQueryVector(t *testing.T) {
	records := []record.Record{rec("a", "alice", []float32{1, 0})}

	if results := Retrieve([]float32{0, 0}, records, "alice", 10); results != nil {
		t.Errorf("got %d results for zero query vector, want none", len(results))
	}
}

func TestRetrieve_MismatchedDimensionsScoreZero(t *testing.T) {
	records := []record.Record{
		rec("short", "alice", []float32{1}),
		rec("good", "alice", []float32{1, 0}),
	}

	results := Retrieve([]float32{1, 0}, records, "alice", 10)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ID != "good" {
		t.Errorf("top result = %q, want %q", results[0].ID, "good")
	}
	if results[1].Score != 0 {
		t.Errorf("mismatched-dimension score = %v, want 0", results[1].Score)
	}
}

func TestCosine_Orthogonal(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	if got := cosine(a, b, norm(a)); got != 0 {
		t.Errorf("cosine of orthogonal vectors = %v, want 0", got)
	}
}
