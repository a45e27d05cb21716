package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/kalvix/mailrag/internal/llm"
	"github.com/kalvix/mailrag/internal/record"
)

// mockChatModel implements llm.ChatModel for testing.
type mockChatModel struct {
	reply string
	err   error
}

func (m *mockChatModel) Chat(context.Context, llm.ChatRequest) (string, error) {
	return m.reply, m.err
}

// mockJudge implements Judge for testing.
type mockJudge struct {
	relevantFn func(ctx context.Context, query string, top []record.Scored) (bool, error)
	calls      int
	lastTop    []record.Scored
}

func (m *mockJudge) Relevant(ctx context.Context, query string, top []record.Scored) (bool, error) {
	m.calls++
	m.lastTop = top
	return m.relevantFn(ctx, query, top)
}

func scored(id string, score float32) record.Scored {
	return record.Scored{Record: record.Record{ID: id}, Score: score}
}

func TestCheck_EmptyResultsNeverRelevant(t *testing.T) {
	judge := &mockJudge{relevantFn: func(context.Context, string, []record.Scored) (bool, error) {
		return true, nil
	}}
	g := New(judge, 0)

	if g.Check(context.Background(), "anything", nil) {
		t.Error("empty retrieval result judged relevant")
	}
	if judge.calls != 0 {
		t.Errorf("judge called %d times for empty results, want 0", judge.calls)
	}
}

func TestCheck_SamplesTopResults(t *testing.T) {
	judge := &mockJudge{relevantFn: func(context.Context, string, []record.Scored) (bool, error) {
		return true, nil
	}}
	g := New(judge, 0)

	results := []record.Scored{
		scored("a", 0.9), scored("b", 0.8), scored("c", 0.7),
		scored("d", 0.6), scored("e", 0.5),
	}
	if !g.Check(context.Background(), "query", results) {
		t.Error("relevant results judged not relevant")
	}
	if len(judge.lastTop) != DefaultSampleSize {
		t.Errorf("judge saw %d results, want %d", len(judge.lastTop), DefaultSampleSize)
	}
	if judge.lastTop[0].ID != "a" {
		t.Errorf("sample starts at %q, want top result", judge.lastTop[0].ID)
	}
}

func TestCheck_FailsOpenOnJudgeError(t *testing.T) {
	judge := &mockJudge{relevantFn: func(context.Context, string, []record.Scored) (bool, error) {
		return false, errors.New("model unavailable")
	}}
	g := New(judge, 0)

	if !g.Check(context.Background(), "query", []record.Scored{scored("a", 0.9)}) {
		t.Error("judge error should fail open, got not relevant")
	}
}

func TestCheck_NegativeJudgment(t *testing.T) {
	judge := &mockJudge{relevantFn: func(context.Context, string, []record.Scored) (bool, error) {
		return false, nil
	}}
	g := New(judge, 0)

	if g.Check(context.Background(), "what is the weather on mars", []record.Scored{scored("a", 0.1)}) {
		t.Error("negative judgment should not pass the gate")
	}
}

func TestModelJudge(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  bool
	}{
		{"yes", "YES", true},
		{"lowercase yes", "yes", true},
		{"yes in sentence", "The answer is YES.", true},
		{"no", "NO", false},
		{"unparseable", "maybe?", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := ModelJudge{Model: &mockChatModel{reply: tt.reply}}
			got, err := j.Relevant(context.Background(), "what is on my calendar", nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Relevant(%q) = %v, want %v", tt.reply, got, tt.want)
			}
		})
	}
}

func TestModelJudge_PropagatesError(t *testing.T) {
	j := ModelJudge{Model: &mockChatModel{err: errors.New("boom")}}
	if _, err := j.Relevant(context.Background(), "q", nil); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestFloorJudge(t *testing.T) {
	tests := []struct {
		name  string
		floor float32
		top   []record.Scored
		want  bool
	}{
		{"above floor", 0.25, []record.Scored{scored("a", 0.5)}, true},
		{"exactly at floor", 0.25, []record.Scored{scored("a", 0.25)}, true},
		{"below floor", 0.25, []record.Scored{scored("a", 0.1)}, false},
		{"one of several above", 0.25, []record.Scored{scored("a", 0.1), scored("b", 0.3)}, true},
		{"zero floor uses default", 0, []record.Scored{scored("a", 0.2)}, false},
		{"empty", 0.25, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := FloorJudge{Floor: tt.floor}
			got, err := j.Relevant(context.Background(), "q", tt.top)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Relevant = %v, want %v", got, tt.want)
			}
		})
	}
}
