package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Service configuration
	Env         string `mapstructure:"ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	ServiceName string `mapstructure:"SERVICE_NAME"`
	HTTPAddr    string `mapstructure:"HTTP_ADDR"`

	// NATS configuration
	NatsEnabled        bool          `mapstructure:"NATS_ENABLED"`
	NatsURL            string        `mapstructure:"NATS_URL"`
	NatsRequestSubject string        `mapstructure:"NATS_REQUEST_SUBJECT"`
	NatsTimeout        time.Duration `mapstructure:"NATS_TIMEOUT"`
	NatsWorkers        int           `mapstructure:"NATS_WORKERS"`

	// Model providers
	LLMProvider          string        `mapstructure:"LLM_PROVIDER"`
	OpenAIAPIKey         string        `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL        string        `mapstructure:"OPENAI_BASE_URL"`
	OpenAIChatModel      string        `mapstructure:"OPENAI_CHAT_MODEL"`
	OpenAISmallTalkModel string        `mapstructure:"OPENAI_SMALLTALK_MODEL"`
	OpenAIEmbedModel     string        `mapstructure:"OPENAI_EMBED_MODEL"`
	GeminiAPIKey         string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel          string        `mapstructure:"GEMINI_MODEL"`
	LLMTimeout           time.Duration `mapstructure:"LLM_TIMEOUT"`

	// TurnTimeout bounds a whole chat turn: embedding retries plus generation.
	TurnTimeout time.Duration `mapstructure:"TURN_TIMEOUT"`

	// Embedding retry policy
	EmbedMaxAttempts int           `mapstructure:"EMBED_MAX_ATTEMPTS"`
	EmbedRetryMin    time.Duration `mapstructure:"EMBED_RETRY_MIN"`
	EmbedRetryMax    time.Duration `mapstructure:"EMBED_RETRY_MAX"`

	// Storage
	VectorBackend  string        `mapstructure:"VECTOR_BACKEND"`
	SessionBackend string        `mapstructure:"SESSION_BACKEND"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL"`
	EmbedDim       int           `mapstructure:"EMBED_DIM"`
	IntentIndex    string        `mapstructure:"INTENT_INDEX"`
	KnowledgeIndex string        `mapstructure:"KNOWLEDGE_INDEX"`
	IntentK        int           `mapstructure:"INTENT_K"`
	KnowledgeTopN  int           `mapstructure:"KNOWLEDGE_TOP_N"`

	// Corpora
	IntentCorpusPath    string `mapstructure:"INTENT_CORPUS_PATH"`
	KnowledgeCorpusPath string `mapstructure:"KNOWLEDGE_CORPUS_PATH"`

	// Booking engine
	BookingHost       string `mapstructure:"BOOKING_HOST"`
	BookingPropertyID int    `mapstructure:"BOOKING_PROPERTY_ID"`
	BookingDomain     string `mapstructure:"BOOKING_DOMAIN"`
	BookingLanguageID int    `mapstructure:"BOOKING_LANGUAGE_ID"`
	BookingAnchor     string `mapstructure:"BOOKING_ANCHOR"`

	// HTTP surface
	RateLimitPerMin int      `mapstructure:"RATE_LIMIT_PER_MIN"`
	CORSOrigins     []string `mapstructure:"CORS_ORIGINS"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVICE_NAME", "hotel-concierge")
	v.SetDefault("HTTP_ADDR", ":8080")

	v.SetDefault("NATS_ENABLED", false)
	v.SetDefault("NATS_URL", "nats://localhost:4222")
	v.SetDefault("NATS_REQUEST_SUBJECT", "hotel.chat")
	v.SetDefault("NATS_TIMEOUT", 30*time.Second)
	v.SetDefault("NATS_WORKERS", 16)

	v.SetDefault("LLM_PROVIDER", "openai")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_BASE_URL", "")
	v.SetDefault("OPENAI_CHAT_MODEL", "gpt-4o-mini")
	v.SetDefault("OPENAI_SMALLTALK_MODEL", "")
	v.SetDefault("OPENAI_EMBED_MODEL", "text-embedding-3-large")
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("LLM_TIMEOUT", 30*time.Second)
	v.SetDefault("TURN_TIMEOUT", 2*time.Minute)

	v.SetDefault("EMBED_MAX_ATTEMPTS", 5)
	v.SetDefault("EMBED_RETRY_MIN", time.Second)
	v.SetDefault("EMBED_RETRY_MAX", 20*time.Second)

	v.SetDefault("VECTOR_BACKEND", "memory")
	v.SetDefault("SESSION_BACKEND", "memory")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("SESSION_TTL", 30*time.Minute)
	v.SetDefault("EMBED_DIM", 3072)
	v.SetDefault("INTENT_INDEX", "hotel_intents")
	v.SetDefault("KNOWLEDGE_INDEX", "hotel_knowledge")
	v.SetDefault("INTENT_K", 3)
	v.SetDefault("KNOWLEDGE_TOP_N", 10)

	v.SetDefault("INTENT_CORPUS_PATH", "data/intents.yaml")
	v.SetDefault("KNOWLEDGE_CORPUS_PATH", "data/knowledge.yaml")

	v.SetDefault("BOOKING_HOST", "bookings.travelclick.com")
	v.SetDefault("BOOKING_PROPERTY_ID", 114738)
	v.SetDefault("BOOKING_DOMAIN", "www.cullinanhotels.com")
	v.SetDefault("BOOKING_LANGUAGE_ID", 1)
	v.SetDefault("BOOKING_ANCHOR", "guestsandrooms")

	v.SetDefault("RATE_LIMIT_PER_MIN", 60)
	v.SetDefault("CORS_ORIGINS", []string{})
}

// Load reads defaults, an optional config.yaml from . or ./config, and the
// environment, in increasing priority.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.CORSOrigins = splitList(cfg.CORSOrigins)
	return &cfg, nil
}

// Validate reports configuration that would make the service unusable.
func (c *Config) Validate() error {
	var errs []error

	switch c.LLMProvider {
	case "openai":
	case "gemini":
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required when LLM_PROVIDER=gemini"))
		}
	default:
		errs = append(errs, fmt.Errorf("LLM_PROVIDER must be openai or gemini, got %q", c.LLMProvider))
	}
	// Embeddings always use OpenAI.
	if c.OpenAIAPIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}

	if c.VectorBackend != "memory" && c.VectorBackend != "redis" {
		errs = append(errs, fmt.Errorf("VECTOR_BACKEND must be memory or redis, got %q", c.VectorBackend))
	}
	if c.SessionBackend != "memory" && c.SessionBackend != "redis" {
		errs = append(errs, fmt.Errorf("SESSION_BACKEND must be memory or redis, got %q", c.SessionBackend))
	}
	if c.EmbedDim <= 0 {
		errs = append(errs, errors.New("EMBED_DIM must be positive"))
	}
	if c.IntentK <= 0 || c.KnowledgeTopN <= 0 {
		errs = append(errs, errors.New("INTENT_K and KNOWLEDGE_TOP_N must be positive"))
	}
	if c.EmbedMaxAttempts < 1 {
		errs = append(errs, errors.New("EMBED_MAX_ATTEMPTS must be at least 1"))
	}
	if c.EmbedRetryMin > c.EmbedRetryMax {
		errs = append(errs, errors.New("EMBED_RETRY_MIN must not exceed EMBED_RETRY_MAX"))
	}
	if c.NatsEnabled && c.NatsWorkers < 1 {
		errs = append(errs, errors.New("NATS_WORKERS must be at least 1"))
	}
	if c.TurnTimeout <= c.LLMTimeout {
		errs = append(errs, errors.New("TURN_TIMEOUT must exceed LLM_TIMEOUT"))
	}
	if c.BookingHost == "" || c.BookingPropertyID <= 0 {
		errs = append(errs, errors.New("BOOKING_HOST and BOOKING_PROPERTY_ID are required"))
	}

	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) UsesRedis() bool {
	return c.VectorBackend == "redis" || c.SessionBackend == "redis"
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
