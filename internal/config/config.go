package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"

	StoreQdrant  = "qdrant"
	StoreChromem = "chromem"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is everything the ingest tools read from the environment.
type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"debug"`

	ListenAddr   string `env:"LISTEN_ADDR" envDefault:":3000"`
	AuthToken    string `env:"AUTH_TOKEN"`
	NoAuthBypass bool   `env:"NO_AUTH_BYPASS" envDefault:"false"`

	EmbeddingProvider  string `env:"EMBEDDING_PROVIDER" envDefault:"openai"`
	EmbeddingModel     string `env:"EMBEDDING_MODEL"`
	EmbeddingDimension int    `env:"EMBEDDING_DIMENSION" envDefault:"1536"`
	OpenAIAPIKey       string `env:"OPENAI_API_KEY"`
	GoogleAPIKey       string `env:"GOOGLE_API_KEY"`

	VectorStore  string `env:"VECTOR_STORE" envDefault:"qdrant"`
	IndexName    string `env:"INDEX_NAME" envDefault:"client-documents"`
	QdrantHost   string `env:"QDRANT_HOST" envDefault:"localhost"`
	QdrantPort   int    `env:"QDRANT_PORT" envDefault:"6334"`
	QdrantAPIKey string `env:"QDRANT_API_KEY"`
	QdrantUseTLS bool   `env:"QDRANT_USE_TLS" envDefault:"false"`
	ChromemPath  string `env:"CHROMEM_PATH" envDefault:"./data/chromem"`

	ChunkSize      int      `env:"CHUNK_SIZE" envDefault:"3000"`
	ChunkOverlap   int      `env:"CHUNK_OVERLAP" envDefault:"200"`
	EmbedBatchSize int      `env:"EMBED_BATCH_SIZE" envDefault:"100"`
	IngestWorkers  int      `env:"INGEST_WORKERS" envDefault:"1"`
	ScanExtensions []string `env:"SCAN_EXTENSIONS" envDefault:".md" envSeparator:","`

	RetryAttempts     int           `env:"RETRY_ATTEMPTS" envDefault:"3"`
	RetryBackoff      time.Duration `env:"RETRY_BACKOFF" envDefault:"2s"`
	RequestsPerSecond float64       `env:"REQUESTS_PER_SECOND" envDefault:"5"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
}

// Load reads an optional .env file, then the process environment.
func Load() (Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var problems []string
	if c.ChunkSize <= 0 {
		problems = append(problems, "CHUNK_SIZE must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		problems = append(problems, "CHUNK_OVERLAP must be in [0, CHUNK_SIZE)")
	}
	if c.EmbeddingDimension <= 0 {
		problems = append(problems, "EMBEDDING_DIMENSION must be positive")
	}
	if c.EmbedBatchSize <= 0 {
		problems = append(problems, "EMBED_BATCH_SIZE must be positive")
	}
	if c.IngestWorkers <= 0 {
		problems = append(problems, "INGEST_WORKERS must be positive")
	}
	if c.RetryAttempts <= 0 {
		problems = append(problems, "RETRY_ATTEMPTS must be positive")
	}
	switch c.EmbeddingProvider {
	case ProviderOpenAI, ProviderGoogle:
	default:
		problems = append(problems, fmt.Sprintf("unknown EMBEDDING_PROVIDER %q", c.EmbeddingProvider))
	}
	switch c.VectorStore {
	case StoreQdrant, StoreChromem:
	default:
		problems = append(problems, fmt.Sprintf("unknown VECTOR_STORE %q", c.VectorStore))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func (c Config) IsProd() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// SlogLevel falls back to info for anything slog does not recognise.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (c Config) ResolvedEmbeddingModel() string {
	if c.EmbeddingModel != "" {
		return c.EmbeddingModel
	}
	if c.EmbeddingProvider == ProviderGoogle {
		return GoogleEmbeddingModel
	}
	return OpenAIEmbeddingModel
}
