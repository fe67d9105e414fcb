package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// Generator produces a single chat completion.
type Generator interface {
	Complete(ctx context.Context, request *LLMRequest) (*LLMResponse, error)
}

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// LLMRequest represents the structured request to LLM
type LLMRequest struct {
	SystemPrompts []string
	History       []llms.ChatMessage
	UserMessage   string
	MaxTokens     int
	Temperature   float64
	// Model overrides the provider default when set.
	Model string
}

// LLMResponse represents the raw response from LLM
type LLMResponse struct {
	Content string
	Usage   *Usage
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

// EmbedQuery embeds a single text.
func EmbedQuery(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, NewParseError(fmt.Sprintf("expected 1 embedding, got %d", len(vectors)), nil)
	}
	return vectors[0], nil
}
