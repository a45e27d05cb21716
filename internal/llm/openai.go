package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
)

// embedBatchConcurrency bounds concurrent embedding requests so a large
// snapshot rebuild doesn't trip API rate limits.
const embedBatchConcurrency = 4

// Client talks to an OpenAI-compatible API for both embeddings and chat
// completions. It implements Embedder and ChatModel.
type Client struct {
	api        *openai.Client
	chatModel  string
	embedModel string
	dimensions int
}

var (
	_ Embedder  = (*Client)(nil)
	_ ChatModel = (*Client)(nil)
)

// NewClient creates a Client for the given API key and model names.
// baseURL overrides the API endpoint when non-empty.
func NewClient(apiKey, baseURL, chatModel, embedModel string, dimensions int) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		api:        openai.NewClientWithConfig(cfg),
		chatModel:  chatModel,
		embedModel: embedModel,
		dimensions: dimensions,
	}
}

// Dimensions returns the embedding model's output vector size.
func (c *Client) Dimensions() int { return c.dimensions }

// Embed returns the embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	rsp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embedModel),
	})
	if err != nil {
		return nil, &EmbeddingError{Err: err}
	}
	if len(rsp.Data) == 0 || len(rsp.Data[0].Embedding) == 0 {
		return nil, &EmbeddingError{Err: fmt.Errorf("empty embedding response")}
	}
	return rsp.Data[0].Embedding, nil
}

// EmbedBatch returns embedding vectors for multiple texts concurrently.
// Returns nil (not error) for empty input.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	results := make([][]float32, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(embedBatchConcurrency)

	for i, text := range texts {
		g.Go(func() error {
			vec, err := c.Embed(gCtx, text)
			if err != nil {
				return fmt.Errorf("embedding text %d: %w", i, err)
			}
			results[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Chat sends messages to the chat model and returns the assistant's reply.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	apiReq := openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONOnly {
		apiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	rsp, err := c.api.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return "", &ModelError{Op: "chat", Err: err}
	}
	if len(rsp.Choices) == 0 || rsp.Choices[0].Message.Content == "" {
		return "", &ModelError{Op: "chat", Err: fmt.Errorf("empty completion response")}
	}
	return rsp.Choices[0].Message.Content, nil
}
