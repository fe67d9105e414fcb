package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avvvet/hotel-concierge/internal/metrics"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	Timeout        time.Duration
}

// OpenAIProvider serves both completions and embeddings through an
// OpenAI-compatible endpoint.
type OpenAIProvider struct {
	client   *openai.LLM
	embedder *embeddings.EmbedderImpl
	model    string
	logger   *zap.Logger
}

func NewOpenAIProvider(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.ChatModel),
		openai.WithEmbeddingModel(cfg.EmbeddingModel),
		openai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return &OpenAIProvider{
		client:   client,
		embedder: embedder,
		model:    cfg.ChatModel,
		logger:   logger,
	}, nil
}

// Complete sends system prompts, history and the user message as one chat
// completion request.
func (p *OpenAIProvider) Complete(ctx context.Context, request *LLMRequest) (*LLMResponse, error) {
	model := p.model
	if request.Model != "" {
		model = request.Model
	}

	messages := buildMessages(request)
	opts := []llms.CallOption{
		llms.WithModel(model),
		llms.WithTemperature(request.Temperature),
	}
	if request.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(request.MaxTokens))
	}

	start := time.Now()
	resp, err := p.client.GenerateContent(ctx, messages, opts...)
	metrics.ObserveLLM("completion", start, err)
	if err != nil {
		p.logger.Warn("completion failed", zap.String("model", model), zap.Error(err))
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, NewAPIError(0, "completion returned no choices")
	}

	choice := resp.Choices[0]
	usage := &Usage{
		InputTokens:  intFromInfo(choice.GenerationInfo, "PromptTokens"),
		OutputTokens: intFromInfo(choice.GenerationInfo, "CompletionTokens"),
	}
	metrics.AddTokens("completion", usage.InputTokens, usage.OutputTokens)

	p.logger.Debug("completion finished",
		zap.String("model", model),
		zap.Duration("latency", time.Since(start)),
		zap.Int("input_tokens", usage.InputTokens),
		zap.Int("output_tokens", usage.OutputTokens),
	)

	return &LLMResponse{
		Content: strings.TrimSpace(choice.Content),
		Usage:   usage,
	}, nil
}

func (p *OpenAIProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	metrics.ObserveLLM("embedding", start, err)
	if err != nil {
		return nil, classify(err)
	}
	if len(vectors) != len(texts) {
		return nil, NewParseError(fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(vectors)), nil)
	}
	return vectors, nil
}

func buildMessages(request *LLMRequest) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(request.SystemPrompts)+len(request.History)+1)
	for _, prompt := range request.SystemPrompts {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, prompt))
	}
	for _, msg := range request.History {
		messages = append(messages, llms.TextParts(msg.GetType(), msg.GetContent()))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, request.UserMessage))
	return messages
}

func intFromInfo(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
