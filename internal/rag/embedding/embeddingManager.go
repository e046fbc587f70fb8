package embedding

import (
	"context"
	"errors"
)

var ErrVectorCount = errors.New("embedding provider returned a different number of vectors than inputs")

type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
	// BatchEmbedding returns one vector per text, in input order.
	BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}
