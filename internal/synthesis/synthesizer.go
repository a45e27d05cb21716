// Package synthesis produces the final grounded answer from the formatted
// context. It runs the model twice: an extraction pass that classifies the
// query and pulls relevant facts out of the context, then a formatting
// pass that turns the extracted facts into a conversational reply.
package synthesis

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/kalvix/mailrag/internal/analyze"
	"github.com/kalvix/mailrag/internal/llm"
)

// MaxHistoryTurns bounds how much conversation history reaches the model.
// Older turns are dropped, never summarized.
const MaxHistoryTurns = 6

// Result is the synthesis outcome.
type Result struct {
	Answer string

	// OmitCitations is set for social replies (greetings, thanks) where
	// listing sources would be noise.
	OmitCitations bool
}

// Synthesizer invokes the chat model over the assembled context.
type Synthesizer struct {
	model llm.ChatModel
}

// New creates a Synthesizer using the given chat model.
func New(model llm.ChatModel) *Synthesizer {
	return &Synthesizer{model: model}
}

// Synthesize answers the query from the context block. An empty context
// yields the templated no-relevant-information answer without a model
// call. Model failures surface as *llm.ModelError.
func (s *Synthesizer) Synthesize(ctx context.Context, query, contextText string, a analyze.Analysis, history []llm.Message) (Result, error) {
	if strings.TrimSpace(contextText) == "" {
		return Result{Answer: notFoundAnswer(a, query), OmitCitations: true}, nil
	}

	extracted, err := s.extract(ctx, query, contextText, a, truncateHistory(history))
	if err != nil {
		return Result{}, err
	}

	switch {
	case strings.HasPrefix(extracted, "GREETING"):
		return Result{Answer: pick(greetingAnswers), OmitCitations: true}, nil
	case strings.HasPrefix(extracted, "THANKS"):
		return Result{Answer: pick(thanksAnswers), OmitCitations: true}, nil
	case strings.HasPrefix(extracted, "FOUND:"):
		answer, err := s.formatAnswer(ctx, query, strings.TrimSpace(extracted[len("FOUND:"):]))
		if err != nil {
			return Result{}, err
		}
		return Result{Answer: answer}, nil
	default:
		return Result{Answer: notFoundAnswer(a, query), OmitCitations: true}, nil
	}
}

// extract runs the first model pass: classify the query and pull relevant
// information out of the context.
func (s *Synthesizer) extract(ctx context.Context, query, contextText string, a analyze.Analysis, history []llm.Message) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: buildExtractionPrompt(query, contextText, a)},
	}
	messages = append(messages, history...)

	reply, err := s.model.Chat(ctx, llm.ChatRequest{
		Messages:    messages,
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("extraction pass: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// formatAnswer runs the second model pass: render the extracted facts as a
// friendly conversational reply.
func (s *Synthesizer) formatAnswer(ctx context.Context, query, extracted string) (string, error) {
	reply, err := s.model.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: buildAnswerPrompt(query, extracted)},
		},
		Temperature: 0.6,
		MaxTokens:   4096,
	})
	if err != nil {
		return "", fmt.Errorf("answer pass: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// truncateHistory keeps the most recent MaxHistoryTurns turns.
func truncateHistory(history []llm.Message) []llm.Message {
	if len(history) <= MaxHistoryTurns {
		return history
	}
	return history[len(history)-MaxHistoryTurns:]
}

func pick(options []string) string {
	return options[rand.Intn(len(options))]
}
