package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avvvet/hotel-concierge/internal/metrics"
	genai "github.com/google/generative-ai-go/genai"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiProvider is the alternate completion backend. Embeddings always go
// through OpenAIProvider so stored vectors stay comparable.
type GeminiProvider struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGeminiProvider builds the client; extra options such as an endpoint
// override are applied after the API key.
func NewGeminiProvider(ctx context.Context, apiKey, model string, logger *zap.Logger, opts ...option.ClientOption) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiProvider{client: client, model: model, logger: logger}, nil
}

func (g *GeminiProvider) Complete(ctx context.Context, request *LLMRequest) (*LLMResponse, error) {
	name := g.model
	if request.Model != "" && strings.HasPrefix(request.Model, "gemini") {
		name = request.Model
	}

	model := g.client.GenerativeModel(name)
	model.SetTemperature(float32(request.Temperature))
	if request.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(request.MaxTokens))
	}

	chat := model.StartChat()
	chat.History, model.SystemInstruction = geminiHistory(request)

	start := time.Now()
	resp, err := chat.SendMessage(ctx, genai.Text(request.UserMessage))
	metrics.ObserveLLM("completion", start, err)
	if err != nil {
		g.logger.Warn("gemini completion failed", zap.String("model", name), zap.Error(err))
		return nil, classify(fmt.Errorf("gemini generate error: %w", err))
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, NewAPIError(0, "gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	usage := &Usage{}
	if resp.UsageMetadata != nil {
		usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	metrics.AddTokens("completion", usage.InputTokens, usage.OutputTokens)

	return &LLMResponse{Content: strings.TrimSpace(sb.String()), Usage: usage}, nil
}

// geminiHistory maps transcript roles onto Gemini's user/model turns. System
// messages join the system prompts as one instruction.
func geminiHistory(request *LLMRequest) ([]*genai.Content, *genai.Content) {
	system := append([]string{}, request.SystemPrompts...)
	var history []*genai.Content
	for _, msg := range request.History {
		switch msg.GetType() {
		case llms.ChatMessageTypeAI:
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(msg.GetContent())}})
		case llms.ChatMessageTypeSystem:
			system = append(system, msg.GetContent())
		default:
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(msg.GetContent())}})
		}
	}
	if len(system) == 0 {
		return history, nil
	}
	return history, &genai.Content{Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))}}
}

func (g *GeminiProvider) Close() error {
	return g.client.Close()
}
