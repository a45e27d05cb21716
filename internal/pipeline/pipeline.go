// Package pipeline sequences the query-time stages: embed, retrieve,
// gate, analyze, filter/format, synthesize. It owns per-stage timeouts,
// error isolation, and the user scoping every downstream call inherits.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kalvix/mailrag/internal/analyze"
	"github.com/kalvix/mailrag/internal/composer"
	"github.com/kalvix/mailrag/internal/gate"
	"github.com/kalvix/mailrag/internal/llm"
	"github.com/kalvix/mailrag/internal/record"
	"github.com/kalvix/mailrag/internal/retrieval"
	"github.com/kalvix/mailrag/internal/store"
	"github.com/kalvix/mailrag/internal/synthesis"
	"github.com/kalvix/mailrag/internal/trace"
)

// Default per-stage timeouts for external calls. Analysis carries its own
// shorter timeout inside the analyzer.
const (
	defaultEmbedTimeout = 10 * time.Second
	defaultSynthTimeout = 60 * time.Second
	defaultGateTimeout  = 10 * time.Second
)

// Query is one natural-language question scoped to a user.
type Query struct {
	Text    string
	UserID  string
	History []llm.Message
	TopK    int
}

// Answer is the pipeline's result: the answer text plus the records the
// context was built from, for citation.
type Answer struct {
	QueryID string
	Text    string
	Cited   []record.Scored
}

// Config wires a Pipeline's collaborators.
type Config struct {
	Embedder    llm.Embedder
	Store       *store.Store
	Gate        *gate.Gate
	Analyzer    *analyze.Analyzer
	Composer    *composer.Composer
	Synthesizer *synthesis.Synthesizer

	Tracer trace.Tracer // optional; nil disables tracing
	TopK   int          // default retrieval breadth when the query has none

	EmbedTimeout time.Duration
	SynthTimeout time.Duration
	GateTimeout  time.Duration

	Now func() time.Time // test hook for time-range resolution
}

// Pipeline answers queries over the record store.
type Pipeline struct {
	cfg Config
}

// New creates a Pipeline. Zero-value timeouts and hooks get defaults.
func New(cfg Config) *Pipeline {
	if cfg.Tracer == nil {
		cfg.Tracer = trace.Nop{}
	}
	if cfg.TopK <= 0 {
		cfg.TopK = retrieval.DefaultTopK
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = defaultEmbedTimeout
	}
	if cfg.SynthTimeout <= 0 {
		cfg.SynthTimeout = defaultSynthTimeout
	}
	if cfg.GateTimeout <= 0 {
		cfg.GateTimeout = defaultGateTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Pipeline{cfg: cfg}
}

// Answer runs the full pipeline for one query. Failures in embedding or
// synthesis are terminal and surface as typed errors; analysis failures
// degrade to similarity-only filtering inside the analyzer. Cancellation
// is honored at each stage boundary.
func (p *Pipeline) Answer(ctx context.Context, q Query) (Answer, error) {
	queryID := uuid.New().String()
	out := Answer{QueryID: queryID}

	topK := q.TopK
	if topK <= 0 {
		topK = p.cfg.TopK
	}

	// Scope check: no loaded records for the user is a normal outcome.
	snap := p.cfg.Store.Snapshot(q.UserID)
	if snap.Len() == 0 {
		out.Text = synthesis.EmptyScopeAnswer
		return out, nil
	}

	// Embed.
	var queryVec []float32
	err := p.stage(ctx, queryID, "embed", func(ctx context.Context) error {
		embedCtx, cancel := context.WithTimeout(ctx, p.cfg.EmbedTimeout)
		defer cancel()
		var err error
		queryVec, err = p.cfg.Embedder.Embed(embedCtx, q.Text)
		return err
	})
	if err != nil {
		return Answer{}, fmt.Errorf("embed: %w", err)
	}

	// Retrieve.
	var results []record.Scored
	err = p.stage(ctx, queryID, "retrieve", func(context.Context) error {
		results = retrieval.Retrieve(queryVec, snap.Records(), q.UserID, topK)
		return nil
	})
	if err != nil {
		return Answer{}, fmt.Errorf("retrieve: %w", err)
	}
	if len(results) == 0 {
		out.Text = synthesis.NoDataAnswer
		return out, nil
	}

	// Gate.
	relevant := true
	err = p.stage(ctx, queryID, "gate", func(ctx context.Context) error {
		gateCtx, cancel := context.WithTimeout(ctx, p.cfg.GateTimeout)
		defer cancel()
		relevant = p.cfg.Gate.Check(gateCtx, q.Text, results)
		return nil
	})
	if err != nil {
		return Answer{}, fmt.Errorf("gate: %w", err)
	}
	if !relevant {
		out.Text = synthesis.NoDataAnswer
		return out, nil
	}

	// Analyze. Degrades to a zero-value analysis on failure.
	var analysis analyze.Analysis
	err = p.stage(ctx, queryID, "analyze", func(ctx context.Context) error {
		analysis = p.cfg.Analyzer.Analyze(ctx, q.Text)
		return nil
	})
	if err != nil {
		return Answer{}, fmt.Errorf("analyze: %w", err)
	}

	// Filter and format.
	var contextText string
	var selected []record.Scored
	err = p.stage(ctx, queryID, "compose", func(context.Context) error {
		contextText, selected = p.cfg.Composer.FilterAndFormat(results, analysis, p.cfg.Now())
		return nil
	})
	if err != nil {
		return Answer{}, fmt.Errorf("compose: %w", err)
	}

	// Synthesize.
	var result synthesis.Result
	err = p.stage(ctx, queryID, "synthesize", func(ctx context.Context) error {
		synthCtx, cancel := context.WithTimeout(ctx, p.cfg.SynthTimeout)
		defer cancel()
		var err error
		result, err = p.cfg.Synthesizer.Synthesize(synthCtx, q.Text, contextText, analysis, q.History)
		return err
	})
	if err != nil {
		return Answer{}, fmt.Errorf("synthesize: %w", err)
	}

	out.Text = result.Answer
	if !result.OmitCitations {
		out.Cited = selected
	}
	return out, nil
}

// stage runs one pipeline stage with tracing. A canceled context stops
// the pipeline at the stage boundary before the stage runs.
func (p *Pipeline) stage(ctx context.Context, queryID, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.cfg.Tracer.StageStart(queryID, name)
	start := time.Now()
	err := fn(ctx)
	p.cfg.Tracer.StageEnd(queryID, name, time.Since(start), err)
	return err
}
