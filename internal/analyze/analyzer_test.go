package analyze

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kalvix/mailrag/internal/llm"
	"github.com/kalvix/mailrag/internal/record"
)

// mockChatModel implements llm.ChatModel for testing.
type mockChatModel struct {
	chatFn func(ctx context.Context, req llm.ChatRequest) (string, error)
	calls  int
}

func (m *mockChatModel) Chat(ctx context.Context, req llm.ChatRequest) (string, error) {
	m.calls++
	return m.chatFn(ctx, req)
}

func TestAnalyze_ExtractsHints(t *testing.T) {
	model := &mockChatModel{chatFn: func(_ context.Context, req llm.ChatRequest) (string, error) {
		if !req.JSONOnly {
			t.Error("analysis request should demand JSON output")
		}
		return `{"person_names": ["John Smith"], "time_period": "last week", "content_type": "email", "other_criteria": "about the budget"}`, nil
	}}

	a := New(model).Analyze(context.Background(), "emails from John Smith last week about the budget")

	if len(a.People) != 1 || a.People[0] != "John Smith" {
		t.Errorf("People = %v, want [John Smith]", a.People)
	}
	if a.TimePeriod != "last week" {
		t.Errorf("TimePeriod = %q, want %q", a.TimePeriod, "last week")
	}
	if a.ContentType != "email" {
		t.Errorf("ContentType = %q, want %q", a.ContentType, "email")
	}
	if a.Empty() {
		t.Error("analysis with hints reported Empty")
	}
}

func TestAnalyze_DegradesOnModelError(t *testing.T) {
	model := &mockChatModel{chatFn: func(context.Context, llm.ChatRequest) (string, error) {
		return "", errors.New("model unavailable")
	}}

	a := New(model).Analyze(context.Background(), "any query")
	if !a.Empty() {
		t.Errorf("model error should degrade to empty analysis, got %+v", a)
	}
}

func TestAnalyze_DegradesOnMalformedJSON(t *testing.T) {
	model := &mockChatModel{chatFn: func(context.Context, llm.ChatRequest) (string, error) {
		return "I think the person is John", nil
	}}

	a := New(model).Analyze(context.Background(), "emails from John")
	if !a.Empty() {
		t.Errorf("malformed JSON should degrade to empty analysis, got %+v", a)
	}
}

func TestAnalyze_EmptyQuerySkipsModel(t *testing.T) {
	model := &mockChatModel{chatFn: func(context.Context, llm.ChatRequest) (string, error) {
		return "{}", nil
	}}

	a := New(model).Analyze(context.Background(), "")
	if !a.Empty() {
		t.Errorf("empty query should yield empty analysis, got %+v", a)
	}
	if model.calls != 0 {
		t.Errorf("model called %d times for empty query, want 0", model.calls)
	}
}

func TestRequestedTypes(t *testing.T) {
	tests := []struct {
		contentType string
		want        []record.SourceType
	}{
		{"email", []record.SourceType{record.SourceEmail}},
		{"event", []record.SourceType{record.SourceCalendarEvent, record.SourceNextWeekEvent}},
		{"calendar", []record.SourceType{record.SourceCalendarEvent, record.SourceNextWeekEvent}},
		{"document", []record.SourceType{record.SourceDocument}},
		{"", nil},
		{"spreadsheet", nil},
	}
	for _, tt := range tests {
		got := Analysis{ContentType: tt.contentType}.RequestedTypes()
		if len(got) != len(tt.want) {
			t.Errorf("RequestedTypes(%q) = %v, want %v", tt.contentType, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("RequestedTypes(%q)[%d] = %v, want %v", tt.contentType, i, got[i], tt.want[i])
			}
		}
	}
}

func TestResolveTimePeriod(t *testing.T) {
	// Wednesday, March 12, 2025.
	now := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		period   string
		wantNil  bool
		contains time.Time
		excludes time.Time
	}{
		{"today", false, time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC), time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)},
		{"yesterday", false, time.Date(2025, 3, 11, 18, 0, 0, 0, time.UTC), time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
		{"this week", false, time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC), time.Date(2025, 3, 9, 9, 0, 0, 0, time.UTC)},
		{"last week", false, time.Date(2025, 3, 8, 9, 0, 0, 0, time.UTC), time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
		{"next week", false, time.Date(2025, 3, 18, 9, 0, 0, 0, time.UTC), time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)},
		{"last month", false, time.Date(2025, 2, 15, 9, 0, 0, 0, time.UTC), time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)},
		{"", true, time.Time{}, time.Time{}},
		{"the nineties", true, time.Time{}, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			tr := ResolveTimePeriod(tt.period, now)
			if tt.wantNil {
				if tr != nil {
					t.Fatalf("ResolveTimePeriod(%q) = %+v, want nil", tt.period, tr)
				}
				return
			}
			if tr == nil {
				t.Fatalf("ResolveTimePeriod(%q) = nil, want range", tt.period)
			}
			if !tr.Contains(tt.contains) {
				t.Errorf("%q range %v..%v should contain %v", tt.period, tr.Start, tr.End, tt.contains)
			}
			if tr.Contains(tt.excludes) {
				t.Errorf("%q range %v..%v should not contain %v", tt.period, tr.Start, tr.End, tt.excludes)
			}
		})
	}
}
