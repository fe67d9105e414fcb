// Package app builds the shared service components from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/avvvet/hotel-concierge/internal/config"
	"github.com/avvvet/hotel-concierge/internal/corpus"
	"github.com/avvvet/hotel-concierge/internal/llm"
	"github.com/avvvet/hotel-concierge/internal/vectorstore"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Indexes are the two vector collections the service reads.
type Indexes struct {
	Intents   vectorstore.Index
	Knowledge vectorstore.Index
}

func NewOpenAI(cfg *config.Config, logger *zap.Logger) (*llm.OpenAIProvider, error) {
	return llm.NewOpenAIProvider(llm.OpenAIConfig{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		ChatModel:      cfg.OpenAIChatModel,
		EmbeddingModel: cfg.OpenAIEmbedModel,
		Timeout:        cfg.LLMTimeout,
	}, logger)
}

func NewEmbedder(cfg *config.Config, next llm.Embedder, logger *zap.Logger) *llm.RetryingEmbedder {
	return llm.NewRetryingEmbedder(next, llm.RetryPolicy{
		MaxAttempts: cfg.EmbedMaxAttempts,
		MinDelay:    cfg.EmbedRetryMin,
		MaxDelay:    cfg.EmbedRetryMax,
	}, logger)
}

// NewGenerator returns the configured completion backend and a close func.
func NewGenerator(ctx context.Context, cfg *config.Config, openai *llm.OpenAIProvider, logger *zap.Logger) (llm.Generator, func() error, error) {
	switch cfg.LLMProvider {
	case "gemini":
		g, err := llm.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			return nil, nil, err
		}
		return g, g.Close, nil
	default:
		return openai, func() error { return nil }, nil
	}
}

// OpenIndexes returns in-process indexes for the memory backend, or Redis
// indexes (created if absent) for the redis backend.
func OpenIndexes(ctx context.Context, cfg *config.Config, client *redis.Client, logger *zap.Logger) (*Indexes, error) {
	if cfg.VectorBackend != "redis" {
		return &Indexes{
			Intents:   vectorstore.NewMemoryIndex(cfg.EmbedDim),
			Knowledge: vectorstore.NewMemoryIndex(cfg.EmbedDim),
		}, nil
	}
	if client == nil {
		return nil, fmt.Errorf("redis vector backend needs a redis client")
	}

	intents := vectorstore.NewRedisIndex(client, cfg.IntentIndex, cfg.EmbedDim, logger)
	knowledge := vectorstore.NewRedisIndex(client, cfg.KnowledgeIndex, cfg.EmbedDim, logger)
	for _, idx := range []*vectorstore.RedisIndex{intents, knowledge} {
		if err := idx.EnsureIndex(ctx); err != nil {
			return nil, err
		}
	}
	return &Indexes{Intents: intents, Knowledge: knowledge}, nil
}

// SeedAll loads both corpora from disk and writes them into the indexes.
func SeedAll(ctx context.Context, cfg *config.Config, embedder llm.Embedder, idx *Indexes, logger *zap.Logger) error {
	intents, err := corpus.LoadIntents(cfg.IntentCorpusPath)
	if err != nil {
		return err
	}
	knowledge, err := corpus.LoadKnowledge(cfg.KnowledgeCorpusPath)
	if err != nil {
		return err
	}

	n, err := corpus.Seed(ctx, embedder, idx.Intents, intents.Records(), corpus.DefaultBatchSize, logger)
	if err != nil {
		return fmt.Errorf("failed to seed intents: %w", err)
	}
	logger.Info("intent corpus seeded", zap.Int("records", n), zap.String("path", cfg.IntentCorpusPath))

	n, err = corpus.Seed(ctx, embedder, idx.Knowledge, knowledge.Records(), corpus.DefaultBatchSize, logger)
	if err != nil {
		return fmt.Errorf("failed to seed knowledge: %w", err)
	}
	logger.Info("knowledge corpus seeded", zap.Int("records", n), zap.String("path", cfg.KnowledgeCorpusPath))
	return nil
}
