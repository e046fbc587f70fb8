package ingest

import (
	"context"
	"fmt"

	"github.com/akolanti/MedIngest/internal/domain/commonModels"
	"github.com/akolanti/MedIngest/internal/metrics"
	"github.com/akolanti/MedIngest/internal/rag/embedding"
	"github.com/akolanti/MedIngest/internal/rag/vectorDB"
)

// BatchIngest embeds chunks batchSize at a time and upserts each batch into
// the namespace of its patient. It returns the doc ids written before the
// first failure.
func BatchIngest(ctx context.Context, chunks []commonModels.DocumentChunk, indexName string, batchSize int, store vectorDB.DataProcessor, embedder embedding.Embedder) ([]string, error) {
	log := logger.WithTrace(ctx)
	if batchSize <= 0 {
		batchSize = len(chunks)
	}

	var upserted []string
	for i := 0; i < len(chunks); i += batchSize {
		end := min(i+batchSize, len(chunks))
		currentBatch := chunks[i:end]

		texts := make([]string, len(currentBatch))
		for j, c := range currentBatch {
			texts[j] = c.Text
		}

		log.Debug("Starting embedding call", "batch_start", i, "batch_length", len(currentBatch))
		vectors, err := embedder.BatchEmbedding(ctx, texts)
		if err != nil {
			return upserted, fmt.Errorf("embedding batch failed: %w", err)
		}
		if len(vectors) != len(currentBatch) {
			return upserted, fmt.Errorf("%w: sent %d, got %d", embedding.ErrVectorCount, len(currentBatch), len(vectors))
		}

		for _, group := range groupByNamespace(currentBatch, vectors) {
			if err := store.Upsert(ctx, indexName, group.namespace, group.chunks, group.vectors); err != nil {
				return upserted, fmt.Errorf("upserting to %s failed: %w", indexName, err)
			}
			for _, c := range group.chunks {
				upserted = append(upserted, c.DocID)
			}
			metrics.RecordUpserted(len(group.chunks))
		}
	}
	return upserted, nil
}

type namespaceGroup struct {
	namespace string
	chunks    []commonModels.DocumentChunk
	vectors   [][]float32
}

// groupByNamespace keeps first-seen namespace order and chunk order within it.
func groupByNamespace(chunks []commonModels.DocumentChunk, vectors [][]float32) []namespaceGroup {
	var groups []namespaceGroup
	index := make(map[string]int)
	for i, c := range chunks {
		at, ok := index[c.PatientID]
		if !ok {
			at = len(groups)
			index[c.PatientID] = at
			groups = append(groups, namespaceGroup{namespace: c.PatientID})
		}
		groups[at].chunks = append(groups[at].chunks, c)
		groups[at].vectors = append(groups[at].vectors, vectors[i])
	}
	return groups
}
