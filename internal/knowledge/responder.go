package knowledge

import (
	"context"

	"github.com/avvvet/hotel-concierge/internal/llm"
	"github.com/avvvet/hotel-concierge/internal/prompts"
	"github.com/avvvet/hotel-concierge/internal/vectorstore"
	"go.uber.org/zap"
)

const (
	DefaultTopN = 10

	answerTemperature = 0.1
	answerMaxTokens   = 500
)

// Responder answers free-form questions from the hotel knowledge base.
type Responder struct {
	embedder  llm.Embedder
	index     vectorstore.Index
	generator llm.Generator
	topN      int
	logger    *zap.Logger
}

func NewResponder(embedder llm.Embedder, index vectorstore.Index, generator llm.Generator, topN int, logger *zap.Logger) *Responder {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Responder{
		embedder:  embedder,
		index:     index,
		generator: generator,
		topN:      topN,
		logger:    logger,
	}
}

// Answer retrieves the closest chunks and asks the generator to answer from
// them only. No chunks means a fixed reply without a model call.
func (r *Responder) Answer(ctx context.Context, question string) string {
	vector, err := llm.EmbedQuery(ctx, r.embedder, question)
	if err != nil {
		r.logger.Warn("knowledge embedding failed", zap.Error(err))
		return prompts.KnowledgeApology
	}

	matches, err := r.index.Query(ctx, vector, r.topN)
	if err != nil {
		r.logger.Warn("knowledge retrieval failed", zap.Error(err))
		return prompts.KnowledgeApology
	}
	if len(matches) == 0 {
		return prompts.InsufficientKnowledge
	}

	chunks := make([]string, len(matches))
	for i, m := range matches {
		chunks[i] = m.Text
	}

	resp, err := r.generator.Complete(ctx, &llm.LLMRequest{
		SystemPrompts: []string{prompts.KnowledgeSystemPrompt, prompts.BuildKnowledgeContext(chunks)},
		UserMessage:   question,
		Temperature:   answerTemperature,
		MaxTokens:     answerMaxTokens,
	})
	if err != nil {
		r.logger.Warn("knowledge generation failed", zap.Error(err))
		return prompts.KnowledgeApology
	}
	if resp.Content == "" {
		return prompts.KnowledgeApology
	}

	r.logger.Debug("knowledge answer generated",
		zap.Int("chunks", len(chunks)),
		zap.Float64("best_distance", matches[0].Distance),
	)
	return resp.Content
}
