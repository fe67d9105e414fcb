package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/avvvet/hotel-concierge/internal/app"
	"github.com/avvvet/hotel-concierge/internal/booking"
	"github.com/avvvet/hotel-concierge/internal/config"
	"github.com/avvvet/hotel-concierge/internal/dispatch"
	"github.com/avvvet/hotel-concierge/internal/handlers"
	"github.com/avvvet/hotel-concierge/internal/intent"
	"github.com/avvvet/hotel-concierge/internal/knowledge"
	"github.com/avvvet/hotel-concierge/internal/logger"
	"github.com/avvvet/hotel-concierge/internal/memory"
	"github.com/avvvet/hotel-concierge/internal/redirect"
	"github.com/avvvet/hotel-concierge/internal/smalltalk"
	"github.com/avvvet/hotel-concierge/internal/transport"
	"github.com/avvvet/hotel-concierge/internal/vectorstore"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load .env file if it exists (for development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	if err := cfg.Validate(); err != nil {
		zl.Fatal("invalid configuration", zap.Error(err))
	}

	zl.Info("starting hotel concierge",
		zap.String("service", cfg.ServiceName),
		zap.String("env", cfg.Env),
		zap.String("llm_provider", cfg.LLMProvider),
		zap.String("vector_backend", cfg.VectorBackend),
		zap.String("session_backend", cfg.SessionBackend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.UsesRedis() {
		redisClient, err = vectorstore.ConnectRedis(cfg.RedisURL)
		if err != nil {
			zl.Fatal("failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		zl.Info("Redis connected", zap.String("url", cfg.RedisURL))
	}

	// Model providers
	openai, err := app.NewOpenAI(cfg, zl)
	if err != nil {
		zl.Fatal("failed to initialize OpenAI provider", zap.Error(err))
	}
	embedder := app.NewEmbedder(cfg, openai, zl)

	generator, closeGenerator, err := app.NewGenerator(ctx, cfg, openai, zl)
	if err != nil {
		zl.Fatal("failed to initialize generator", zap.Error(err))
	}
	defer closeGenerator() //nolint:errcheck

	// Vector indexes
	indexes, err := app.OpenIndexes(ctx, cfg, redisClient, zl)
	if err != nil {
		zl.Fatal("failed to open vector indexes", zap.Error(err))
	}
	if cfg.VectorBackend == "memory" {
		seedCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		err := app.SeedAll(seedCtx, cfg, embedder, indexes, zl)
		cancel()
		if err != nil {
			zl.Fatal("failed to seed in-memory indexes", zap.Error(err))
		}
	}

	// Sessions
	var store memory.Store
	if cfg.SessionBackend == "redis" {
		store = memory.NewRedisStoreWithClient(redisClient, cfg.SessionTTL)
	} else {
		local := memory.NewInMemoryStore(cfg.SessionTTL)
		go local.Run(ctx, time.Minute)
		store = local
	}
	sessions := memory.NewManager(store, memory.DefaultMaxMessages, zl)
	defer sessions.Close()

	// Strategies
	dispatcher := dispatch.New(dispatch.Deps{
		Classifier: intent.NewMatcher(embedder, indexes.Intents, cfg.IntentK, zl),
		Knowledge:  knowledge.NewResponder(embedder, indexes.Knowledge, generator, cfg.KnowledgeTopN, zl),
		SmallTalk:  smalltalk.NewResponder(generator, cfg.OpenAISmallTalkModel, zl),
		Links:      redirect.New(redirect.DefaultLinks()),
		Booking: booking.NewDialog(generator, booking.NewURLBuilder(booking.URLConfig{
			Host:       cfg.BookingHost,
			PropertyID: cfg.BookingPropertyID,
			Domain:     cfg.BookingDomain,
			LanguageID: cfg.BookingLanguageID,
			Anchor:     cfg.BookingAnchor,
		}), zl),
	}, zl)

	chatHandler := handlers.NewChatHandler(dispatcher, sessions, zl)

	// Transports
	var natsTransport *transport.NATSTransport
	if cfg.NatsEnabled {
		natsTransport, err = transport.NewNATSTransport(cfg, chatHandler, zl)
		if err != nil {
			zl.Fatal("failed to initialize NATS transport", zap.Error(err))
		}
		if err := natsTransport.Start(); err != nil {
			zl.Fatal("failed to start NATS transport", zap.Error(err))
		}
	}

	httpServer := transport.NewHTTPServer(cfg, chatHandler, zl)
	httpServer.AddHealthCheck("sessions", sessions.Ping)
	if cfg.VectorBackend == "redis" {
		httpServer.AddHealthCheck("vectors", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	zl.Info("hotel concierge is running",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.Bool("nats", cfg.NatsEnabled),
		zap.String("nats_subject", cfg.NatsRequestSubject),
	)

	select {
	case <-ctx.Done():
		zl.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			zl.Error("HTTP server stopped", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zl.Warn("error shutting down HTTP server", zap.Error(err))
	}
	if natsTransport != nil {
		if err := natsTransport.Close(); err != nil {
			zl.Warn("error closing NATS transport", zap.Error(err))
		}
	}

	zl.Info("hotel concierge stopped", zap.Int("active_sessions", sessions.GetActiveSessionCount()))
}
