// Package analyze extracts structured hints from a user query: person
// names, time period, and requested content type. Analysis is an
// enrichment, not a prerequisite — on any failure the analyzer degrades
// to an empty analysis and the pipeline filters by similarity alone.
package analyze

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/kalvix/mailrag/internal/llm"
	"github.com/kalvix/mailrag/internal/record"
)

const analysisTimeout = 3 * time.Second

// Analysis holds the structured extraction result from a user query.
type Analysis struct {
	People      []string `json:"person_names"`
	TimePeriod  string   `json:"time_period"`
	ContentType string   `json:"content_type"`
	Criteria    string   `json:"other_criteria"`
}

// Empty reports whether the analysis carries no usable hints.
func (a Analysis) Empty() bool {
	return len(a.People) == 0 && a.TimePeriod == "" && a.ContentType == ""
}

// RequestedTypes maps the extracted content type onto record source types.
// An unrecognized or absent content type requests nothing (no type filter).
func (a Analysis) RequestedTypes() []record.SourceType {
	switch a.ContentType {
	case "email":
		return []record.SourceType{record.SourceEmail}
	case "event", "calendar":
		return []record.SourceType{record.SourceCalendarEvent, record.SourceNextWeekEvent}
	case "document":
		return []record.SourceType{record.SourceDocument}
	}
	return nil
}

// Analyzer calls the chat model to extract query hints.
type Analyzer struct {
	model llm.ChatModel
}

// New creates an Analyzer using the given chat model.
func New(model llm.ChatModel) *Analyzer {
	return &Analyzer{model: model}
}

// Analyze extracts hints from the query. On any failure (timeout,
// model error, malformed JSON) it logs the degradation and returns a
// zero-value Analysis — callers never see an error from this stage.
func (a *Analyzer) Analyze(ctx context.Context, query string) Analysis {
	if query == "" {
		return Analysis{}
	}

	ctx, cancel := context.WithTimeout(ctx, analysisTimeout)
	defer cancel()

	raw, err := a.model.Chat(ctx, llm.ChatRequest{
		Messages:    buildPrompt(query),
		Temperature: 0.1,
		JSONOnly:    true,
	})
	if err != nil {
		slog.Warn("query analysis failed, retrieval degraded to similarity-only", "error", err)
		return Analysis{}
	}

	var result Analysis
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		slog.Warn("failed to unmarshal query analysis, retrieval degraded to similarity-only",
			"error", err, "response", raw)
		return Analysis{}
	}
	return result
}
