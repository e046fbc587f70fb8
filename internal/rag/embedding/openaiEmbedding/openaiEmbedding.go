package openaiEmbedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/akolanti/MedIngest/internal/metrics"
	"github.com/akolanti/MedIngest/internal/rag/embedding"
	"github.com/akolanti/MedIngest/internal/rag/guard"
	"github.com/akolanti/MedIngest/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type client struct {
	api       openai.Client
	model     string
	dimension int
	guard     *guard.Guard
	logger    *logger_i.Logger
}

// NewOpenAIEmbedder builds an embedder for the OpenAI embeddings endpoint.
// Retries are left to g; the SDK's own retry loop is switched off.
func NewOpenAIEmbedder(apiKey, model string, dimension int, g *guard.Guard, httpClient *http.Client, opts ...option.RequestOption) (embedding.Embedder, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension %d", dimension)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(httpClient))
	}
	reqOpts = append(reqOpts, opts...)

	logger := logger_i.NewLogger("openai_embedding")
	logger.Info("OpenAI embedding client created", "model", model, "dimension", dimension)
	return &client{
		api:       openai.NewClient(reqOpts...),
		model:     model,
		dimension: dimension,
		guard:     g,
		logger:    logger,
	}, nil
}

// IsTransient retries throttling and server-side failures.
func IsTransient(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return guard.IsTransientHTTP(apiErr.StatusCode)
	}
	return false
}

func (c *client) Dimension() int {
	return c.dimension
}

func (c *client) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.BatchEmbedding(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *client) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	log := c.logger.WithTrace(ctx)
	log.Debug("Requesting embeddings", "count", len(texts))

	var resp *openai.CreateEmbeddingResponse
	start := time.Now()
	err := c.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		resp, err = c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
			Model:          openai.EmbeddingModel(c.model),
			Dimensions:     openai.Int(int64(c.dimension)),
			EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
		})
		return err
	})
	metrics.CaptureExecutionMetrics("openai_embedding", time.Since(start))
	if err != nil {
		log.Error("Error getting embeddings from OpenAI", "error", err)
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: sent %d, got %d", embedding.ErrVectorCount, len(texts), len(resp.Data))
	}
	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(texts) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		vectors[d.Index] = toFloat32(d.Embedding)
	}
	return vectors, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
