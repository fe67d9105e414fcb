package smalltalk

import (
	"context"

	"github.com/avvvet/hotel-concierge/internal/llm"
	"github.com/avvvet/hotel-concierge/internal/prompts"
	"go.uber.org/zap"
)

const (
	temperature = 0.7
	maxTokens   = 150
)

// Responder handles greetings, thanks and goodbyes.
type Responder struct {
	generator llm.Generator
	model     string
	logger    *zap.Logger
}

// NewResponder uses model for replies; empty means the generator default.
func NewResponder(generator llm.Generator, model string, logger *zap.Logger) *Responder {
	return &Responder{generator: generator, model: model, logger: logger}
}

func (r *Responder) Respond(ctx context.Context, message string) string {
	resp, err := r.generator.Complete(ctx, &llm.LLMRequest{
		SystemPrompts: []string{prompts.SmallTalkSystemPrompt},
		UserMessage:   message,
		Temperature:   temperature,
		MaxTokens:     maxTokens,
		Model:         r.model,
	})
	if err != nil || resp.Content == "" {
		r.logger.Warn("small talk generation failed, using fallback", zap.Error(err))
		return prompts.SmallTalkFallbacks[0]
	}
	return resp.Content
}
