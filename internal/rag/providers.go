package rag

import (
	"context"
	"fmt"

	"github.com/akolanti/MedIngest/internal/config"
	"github.com/akolanti/MedIngest/internal/customHttpClient"
	"github.com/akolanti/MedIngest/internal/rag/chunker"
	"github.com/akolanti/MedIngest/internal/rag/embedding"
	"github.com/akolanti/MedIngest/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/MedIngest/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/MedIngest/internal/rag/guard"
	"github.com/akolanti/MedIngest/internal/rag/tokenizer"
	"github.com/akolanti/MedIngest/internal/rag/vectorDB"
	"github.com/akolanti/MedIngest/internal/rag/vectorDB/chromemDB"
	"github.com/akolanti/MedIngest/internal/rag/vectorDB/qdrantDB"
)

func guardFor(name string, cfg config.Config, transient func(error) bool) *guard.Guard {
	return guard.New(guard.Settings{
		Name:              name,
		Attempts:          cfg.RetryAttempts,
		Backoff:           cfg.RetryBackoff,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             1,
		Transient:         transient,
	})
}

// NewEmbedder picks the embedding provider named by EMBEDDING_PROVIDER.
func NewEmbedder(ctx context.Context, cfg config.Config) (embedding.Embedder, error) {
	model := cfg.ResolvedEmbeddingModel()
	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		return openaiEmbedding.NewOpenAIEmbedder(cfg.OpenAIAPIKey, model, cfg.EmbeddingDimension,
			guardFor("openai", cfg, openaiEmbedding.IsTransient), customHttpClient.Client())
	case config.ProviderGoogle:
		return googleEmbedding.NewGoogleEmbedder(ctx, cfg.GoogleAPIKey, model, cfg.EmbeddingDimension,
			guardFor("google", cfg, googleEmbedding.IsTransient), customHttpClient.Client())
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
}

// NewVectorStore picks the index backend named by VECTOR_STORE.
func NewVectorStore(ctx context.Context, cfg config.Config) (vectorDB.DataProcessor, error) {
	switch cfg.VectorStore {
	case config.StoreQdrant:
		return qdrantDB.NewQdrantClient(ctx, qdrantDB.Settings{
			Host:   cfg.QdrantHost,
			Port:   cfg.QdrantPort,
			APIKey: cfg.QdrantAPIKey,
			UseTLS: cfg.QdrantUseTLS,
		}, guardFor("qdrant", cfg, guard.IsTransientGRPC))
	case config.StoreChromem:
		return chromemDB.NewChromemStore(cfg.ChromemPath)
	default:
		return nil, fmt.Errorf("unknown vector store %q", cfg.VectorStore)
	}
}

// NewBuilder returns a chunk builder counting cl100k_base tokens.
func NewBuilder(opts chunker.Options, options ...chunker.Option) (*chunker.Builder, error) {
	tok, err := tokenizer.NewBPETokenizer(config.TokenEncoding)
	if err != nil {
		return nil, err
	}
	return chunker.NewBuilder(tok, opts, options...)
}
