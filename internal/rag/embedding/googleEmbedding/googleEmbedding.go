package googleEmbedding

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
	"google.golang.org/genai"
)

const taskType = "RETRIEVAL_DOCUMENT"

type client struct {
	genAi     *genai.Client
	model     string
	dimension int32
	guard     *guard.Guard
	logger    *logger_i.Logger
}

func NewGoogleEmbedder(ctx context.Context, apiKey, model string, dimension int, g *guard.Guard, httpClient *http.Client) (embedding.Embedder, error) {
	if apiKey == "" {
		return nil, errors.New("GOOGLE_API_KEY is not set")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension %d", dimension)
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Google embedding client: %w", err)
	}

	logger := logger_i.NewLogger("google_embedding")
	logger.Info("Google Embedding client created", "model", model, "dimension", dimension)
	return &client{
		genAi:     c,
		model:     model,
		dimension: int32(dimension),
		guard:     g,
		logger:    logger,
	}, nil
}

func (c *client) Dimension() int {
	return int(c.dimension)
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

	var res *genai.EmbedContentResponse
	start := time.Now()
	err := c.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		res, err = c.doCall(ctx, getContent(texts))
		return err
	})
	metrics.CaptureExecutionMetrics("google_embedding", time.Since(start))
	if err != nil {
		log.Error("Error getting Embeddings from Google", "error", err)
		return nil, fmt.Errorf("google embeddings: %w", err)
	}
	if res == nil || len(res.Embeddings) != len(texts) {
		got := 0
		if res != nil {
			got = len(res.Embeddings)
		}
		return nil, fmt.Errorf("%w: sent %d, got %d", embedding.ErrVectorCount, len(texts), got)
	}

	vectors := make([][]float32, 0, len(res.Embeddings))
	for _, r := range res.Embeddings {
		if r == nil {
			return nil, fmt.Errorf("%w: missing embedding in response", embedding.ErrVectorCount)
		}
		vectors = append(vectors, r.Values)
	}
	return vectors, nil
}

func (c *client) doCall(ctx context.Context, content []*genai.Content) (*genai.EmbedContentResponse, error) {
	return c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{
		OutputDimensionality: &c.dimension,
		TaskType:             taskType,
	})
}
