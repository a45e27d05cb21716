// Package trace defines the pipeline instrumentation contract. Stages
// report start/end/error events through a Tracer; tracing never affects a
// stage's return value or error semantics.
package trace

import (
	"log/slog"
	"time"
)

// Tracer receives stage lifecycle events for one query.
type Tracer interface {
	StageStart(queryID, stage string)
	StageEnd(queryID, stage string, elapsed time.Duration, err error)
}

// Slog logs stage events through the default slog logger.
type Slog struct{}

func (Slog) StageStart(queryID, stage string) {
	slog.Debug("stage start", "query_id", queryID, "stage", stage)
}

func (Slog) StageEnd(queryID, stage string, elapsed time.Duration, err error) {
	if err != nil {
		slog.Error("stage failed", "query_id", queryID, "stage", stage,
			"elapsed_ms", elapsed.Milliseconds(), "error", err)
		return
	}
	slog.Debug("stage end", "query_id", queryID, "stage", stage,
		"elapsed_ms", elapsed.Milliseconds())
}

// Nop discards all events. Used when tracing is not attached.
type Nop struct{}

func (Nop) StageStart(string, string)                     {}
func (Nop) StageEnd(string, string, time.Duration, error) {}
