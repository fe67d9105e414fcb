// Command seed embeds the intent and knowledge corpora and writes them into
// the Redis vector indexes used by the server.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/avvvet/hotel-concierge/internal/app"
	"github.com/avvvet/hotel-concierge/internal/config"
	"github.com/avvvet/hotel-concierge/internal/logger"
	"github.com/avvvet/hotel-concierge/internal/vectorstore"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	intentsPath := flag.String("intents", "", "intent corpus YAML (defaults to INTENT_CORPUS_PATH)")
	knowledgePath := flag.String("knowledge", "", "knowledge corpus YAML (defaults to KNOWLEDGE_CORPUS_PATH)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *intentsPath != "" {
		cfg.IntentCorpusPath = *intentsPath
	}
	if *knowledgePath != "" {
		cfg.KnowledgeCorpusPath = *knowledgePath
	}

	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	if cfg.VectorBackend != "redis" {
		zl.Fatal("seeding needs VECTOR_BACKEND=redis; the memory backend seeds itself at server start")
	}
	if err := cfg.Validate(); err != nil {
		zl.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := vectorstore.ConnectRedis(cfg.RedisURL)
	if err != nil {
		zl.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer client.Close()

	openai, err := app.NewOpenAI(cfg, zl)
	if err != nil {
		zl.Fatal("failed to initialize OpenAI provider", zap.Error(err))
	}

	indexes, err := app.OpenIndexes(ctx, cfg, client, zl)
	if err != nil {
		zl.Fatal("failed to open vector indexes", zap.Error(err))
	}

	if err := app.SeedAll(ctx, cfg, app.NewEmbedder(cfg, openai, zl), indexes, zl); err != nil {
		zl.Fatal("seeding failed", zap.Error(err))
	}
	zl.Info("seeding complete",
		zap.String("intent_index", cfg.IntentIndex),
		zap.String("knowledge_index", cfg.KnowledgeIndex),
	)
}
