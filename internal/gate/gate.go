// Package gate decides whether retrieved records plausibly ground a query.
// It is a cheap check over a small sample of the retrieval result, not a
// ranker: on a negative judgment the pipeline short-circuits to a fixed
// no-data answer instead of synthesizing.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kalvix/mailrag/internal/llm"
	"github.com/kalvix/mailrag/internal/record"
)

const (
	// DefaultSampleSize bounds how many top results a judge sees.
	DefaultSampleSize = 3

	// DefaultScoreFloor is the similarity floor for the heuristic judge.
	// Cosine scores from the embedding models in use cluster well above
	// this for grounded queries; unrelated queries land below it.
	DefaultScoreFloor = 0.25
)

// Judge produces a relevance judgment from the query and the top retrieved
// candidates. Implementations may be heuristic or model-backed.
type Judge interface {
	Relevant(ctx context.Context, query string, top []record.Scored) (bool, error)
}

// Gate samples the retrieval result and applies a Judge. A judge failure
// fails open: a transient model error must not blank an answerable query.
type Gate struct {
	judge  Judge
	sample int
}

// New creates a Gate. sample <= 0 uses DefaultSampleSize.
func New(judge Judge, sample int) *Gate {
	if sample <= 0 {
		sample = DefaultSampleSize
	}
	return &Gate{judge: judge, sample: sample}
}

// Check reports whether the retrieval result grounds the query. An empty
// result is never relevant.
func (g *Gate) Check(ctx context.Context, query string, results []record.Scored) bool {
	if len(results) == 0 {
		return false
	}
	top := results
	if len(top) > g.sample {
		top = top[:g.sample]
	}

	ok, err := g.judge.Relevant(ctx, query, top)
	if err != nil {
		slog.Warn("relevance judge failed, failing open", "error", err)
		return true
	}
	return ok
}

// FloorJudge is the heuristic judge: relevant iff the best similarity
// score reaches the floor.
type FloorJudge struct {
	Floor float32
}

// Relevant never returns an error.
func (j FloorJudge) Relevant(_ context.Context, _ string, top []record.Scored) (bool, error) {
	floor := j.Floor
	if floor == 0 {
		floor = DefaultScoreFloor
	}
	for _, s := range top {
		if s.Score >= floor {
			return true, nil
		}
	}
	return false, nil
}

const domainCheckPrompt = `I have access to the following types of information:
1. Documents related to the current user, containing professional background, skills, education, and contact information
2. Emails with subjects, senders, recipients, and content previews
3. Calendar events with subjects, dates, times, and attendees
4. Upcoming events scheduled for next week

Given this context, determine if the following question is relevant to any of these domains:

Question: %s

Respond with ONLY "YES" if the question is relevant to any of the available information, or "NO" if it's completely unrelated.`

// ModelJudge asks the chat model for a YES/NO domain-relevance judgment.
type ModelJudge struct {
	Model llm.ChatModel
}

func (j ModelJudge) Relevant(ctx context.Context, query string, _ []record.Scored) (bool, error) {
	reply, err := j.Model.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: fmt.Sprintf(domainCheckPrompt, query)},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return false, fmt.Errorf("relevance check: %w", err)
	}
	return strings.Contains(strings.ToUpper(reply), "YES"), nil
}
