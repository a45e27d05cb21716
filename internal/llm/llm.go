// Package llm wraps the external language-model service. The pipeline
// depends on the Embedder and ChatModel interfaces instead of a concrete
// client so stages can be tested with mocks.
package llm

import "context"

// Message is a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatRequest carries a chat completion call's inputs.
type ChatRequest struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int

	// JSONOnly requests a structured JSON object response.
	JSONOnly bool
}

// ChatModel is the chat completion collaborator. Failures are reported
// as *ModelError.
type ChatModel interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
}

// Embedder converts free text into a fixed-length vector. Failures are
// reported as *EmbeddingError.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the configured output vector size.
	Dimensions() int
}
