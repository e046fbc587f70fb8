package rag_test

import (
	"context"

	"github.com/akolanti/MedIngest/internal/domain/commonModels"
)

// MockVectorDB implements vectorDB.DataProcessor
type MockVectorDB struct {
	OnEnsureIndex func(ctx context.Context, name string, dimension int) error
	OnUpsert      func(ctx context.Context, index, namespace string, chunks []commonModels.DocumentChunk, vectors [][]float32) error
}

func (m *MockVectorDB) EnsureIndex(ctx context.Context, name string, dimension int) error {
	if m.OnEnsureIndex != nil {
		return m.OnEnsureIndex(ctx, name, dimension)
	}
	return nil
}

func (m *MockVectorDB) Upsert(ctx context.Context, index, namespace string, chunks []commonModels.DocumentChunk, vectors [][]float32) error {
	if m.OnUpsert != nil {
		return m.OnUpsert(ctx, index, namespace, chunks, vectors)
	}
	return nil
}

type MockEmbedder struct {
	OnBatchEmbedding func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if m.OnBatchEmbedding != nil {
		return m.OnBatchEmbedding(ctx, texts)
	}
	// one dummy vector per text
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *MockEmbedder) Dimension() int {
	return 3
}
