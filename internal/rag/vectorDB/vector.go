package vectorDB

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/MedIngest/internal/domain/commonModels"
	"github.com/google/uuid"
)

var (
	ErrDimensionMismatch = errors.New("vector dimension does not match the index")
	ErrBatchMismatch     = errors.New("chunk and vector counts differ")
	ErrIndexNotFound     = errors.New("index does not exist")
)

// DataProcessor is a vector index that chunks can be upserted into.
type DataProcessor interface {
	// EnsureIndex creates indexName with cosine distance when it is missing.
	// An existing index with another dimension is an error.
	EnsureIndex(ctx context.Context, indexName string, dimension int) error
	// Upsert writes chunks[i] with vectors[i] under namespace. Re-upserting
	// the same doc id overwrites the earlier point.
	Upsert(ctx context.Context, indexName, namespace string, chunks []commonModels.DocumentChunk, vectors [][]float32) error
}

var pointNamespace = uuid.MustParse("4c0e8a52-6f1d-4d8b-9a3e-2b7f61c5d019")

// PointID derives a stable UUID for a doc id inside a namespace, for stores
// that only accept UUID or integer keys.
func PointID(namespace, docID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(namespace+"/"+docID)).String()
}

// CheckBatch validates an upsert batch against the index dimension.
func CheckBatch(chunks []commonModels.DocumentChunk, vectors [][]float32, dimension int) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks, %d vectors", ErrBatchMismatch, len(chunks), len(vectors))
	}
	for i, v := range vectors {
		if dimension > 0 && len(v) != dimension {
			return fmt.Errorf("%w: vector %d (%s) has %d values, index has %d", ErrDimensionMismatch, i, chunks[i].DocID, len(v), dimension)
		}
	}
	return nil
}
